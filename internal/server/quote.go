package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	quotedomain "github.com/smallbiznis/pressroom/internal/quote/domain"
)

// ListQuotes returns every quote matching ?search=, or the single quote
// named by ?id=.
func (s *Server) ListQuotes(c *gin.Context) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		resp, err := s.quoteSvc.Get(c.Request.Context(), id)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	resp, err := s.quoteSvc.List(c.Request.Context(), quotedomain.ListRequest{
		Search: strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateQuote(c *gin.Context) {
	var req quotedomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.quoteSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) UpdateQuote(c *gin.Context) {
	var req quotedomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if id := strings.TrimSpace(c.Query("id")); id != "" && strings.TrimSpace(req.ID) == "" {
		req.ID = id
	}

	resp, err := s.quoteSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) DeleteQuotes(c *gin.Context) {
	ids, err := deleteIDs(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	deleted, err := s.quoteSvc.Delete(c.Request.Context(), ids)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func isQuoteValidationError(err error) bool {
	switch {
	case errors.Is(err, quotedomain.ErrInvalidID),
		errors.Is(err, quotedomain.ErrInvalidIDs),
		errors.Is(err, quotedomain.ErrInvalidCustomer),
		errors.Is(err, quotedomain.ErrInvalidStatus):
		return true
	default:
		return false
	}
}
