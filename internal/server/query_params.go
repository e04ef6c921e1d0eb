package server

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type bulkIDsRequest struct {
	IDs []string `json:"ids"`
}

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// bodyIDs reads {"ids": [...]} through gin's cached body so later readers
// still see it. A missing body yields no ids.
func bodyIDs(c *gin.Context) ([]string, error) {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil, nil
	}
	var req bulkIDsRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, invalidRequestError()
	}
	return req.IDs, nil
}

// deleteIDs accepts a single ?id= or a JSON body of ids.
func deleteIDs(c *gin.Context) ([]string, error) {
	if id := strings.TrimSpace(c.Query("id")); id != "" {
		return []string{id}, nil
	}
	return bodyIDs(c)
}
