package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	lineitemdomain "github.com/smallbiznis/pressroom/internal/lineitem/domain"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/dates"
)

func (s *Server) ListAgents(c *gin.Context) {
	resp, err := s.staffSvc.ListAgents(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateAgent(c *gin.Context) {
	var req staffdomain.CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.CreateAgent(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListDepartments(c *gin.Context) {
	resp, err := s.staffSvc.ListDepartments(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateDepartment(c *gin.Context) {
	var req staffdomain.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.staffSvc.CreateDepartment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListUsers(c *gin.Context) {
	resp, err := s.organizationSvc.ListUsers(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateUser(c *gin.Context) {
	var req organizationdomain.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.organizationSvc.CreateUser(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func isStaffValidationError(err error) bool {
	switch {
	case errors.Is(err, staffdomain.ErrInvalidName),
		errors.Is(err, staffdomain.ErrInvalidCode),
		errors.Is(err, staffdomain.ErrDuplicateCode),
		errors.Is(err, staffdomain.ErrInvalidAgent),
		errors.Is(err, staffdomain.ErrInvalidDepartment),
		errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidEmail),
		errors.Is(err, organizationdomain.ErrInvalidRole):
		return true
	default:
		return false
	}
}

func isLineItemValidationError(err error) bool {
	switch {
	case errors.Is(err, lineitemdomain.ErrInvalidDescription),
		errors.Is(err, lineitemdomain.ErrInvalidQuantity),
		errors.Is(err, lineitemdomain.ErrInvalidUnitPrice),
		errors.Is(err, lineitemdomain.ErrInvalidProduct):
		return true
	default:
		return false
	}
}

func isDateValidationError(err error) bool {
	return errors.Is(err, dates.ErrInvalidDate)
}
