package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pressroom/internal/auth/session"
	"github.com/smallbiznis/pressroom/internal/authorization"
	"github.com/smallbiznis/pressroom/internal/cascade"
	customerdomain "github.com/smallbiznis/pressroom/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/pressroom/internal/invoice/domain"
	orderdomain "github.com/smallbiznis/pressroom/internal/order/domain"
	organizationdomain "github.com/smallbiznis/pressroom/internal/organization/domain"
	productdomain "github.com/smallbiznis/pressroom/internal/product/domain"
	quotedomain "github.com/smallbiznis/pressroom/internal/quote/domain"
	staffdomain "github.com/smallbiznis/pressroom/internal/staff/domain"
	"github.com/smallbiznis/pressroom/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorResponse) {
	if err == nil {
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		message := "validation error"
		if len(vErr.Errors) > 0 && vErr.Errors[0].Message != "" {
			message = vErr.Errors[0].Message
		}
		return http.StatusBadRequest, errorResponse{
			Error:  message,
			Code:   "validation_error",
			Errors: vErr.Errors,
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized", Code: "unauthorized"}
	case errors.Is(err, ErrForbidden), errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden", Code: "forbidden"}
	case isCascadeError(err):
		return http.StatusInternalServerError, errorResponse{Error: err.Error(), Code: "cascade_failed"}
	case errors.Is(err, productdomain.ErrInsufficientStock):
		return http.StatusInternalServerError, errorResponse{Error: "insufficient stock", Code: "insufficient_stock"}
	case isValidationError(err):
		code := validationErrorCode(err)
		message := validationErrorMessage(code)
		return http.StatusBadRequest, errorResponse{
			Error: message,
			Code:  "validation_error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: message,
				},
			},
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorResponse{Error: "not found", Code: "not_found"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: "internal_error"}
	}
}

// classifyErrorForLog reports the error type and code written to the request log.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Code, payload.Errors[0].Code
	}
	return payload.Code, payload.Code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isCascadeError(err error) bool {
	var cErr *cascade.Error
	return errors.As(err, &cErr)
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, session.ErrMissingToken),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrMissingSecret),
		errors.Is(err, db.ErrMissingTenant),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidOrganization),
		errors.Is(err, customerdomain.ErrInvalidOrganization),
		errors.Is(err, productdomain.ErrInvalidOrganization),
		errors.Is(err, quotedomain.ErrInvalidOrganization),
		errors.Is(err, invoicedomain.ErrInvalidOrganization),
		errors.Is(err, orderdomain.ErrInvalidOrganization),
		errors.Is(err, staffdomain.ErrInvalidOrganization),
		errors.Is(err, organizationdomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case isCustomerValidationError(err),
		isProductValidationError(err),
		isQuoteValidationError(err),
		isInvoiceValidationError(err),
		isOrderValidationError(err),
		isStaffValidationError(err),
		isLineItemValidationError(err),
		isDateValidationError(err):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, quotedomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if code := e.Error(); !strings.Contains(code, " ") && !strings.Contains(code, ":") {
			return code
		}
	}
	return err.Error()
}

func validationErrorField(code string) string {
	field := strings.TrimPrefix(code, "invalid_")
	field = strings.TrimPrefix(field, "line_")
	if field == code {
		return ""
	}
	return field
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_ids":
		return "ids are required"
	case "invalid_customer":
		return "customerId is required"
	case "invalid_id":
		return "id is required"
	case "invalid_product":
		return "productId does not match a product"
	case "invalid_status":
		return "status is not allowed"
	case "invalid_priority":
		return "priority is not allowed"
	case "invalid_line_quantity":
		return "line quantity must be positive"
	case "invalid_line_description":
		return "line description is required"
	case "invalid_line_unit_price":
		return "line unit price must not be negative"
	case "invalid_date":
		return "date must be YYYY-MM-DD"
	case "invalid_organization":
		return "invalid organization"
	case "duplicate_code":
		return "code already exists"
	default:
		if strings.HasPrefix(code, "invalid_") {
			return "invalid " + strings.ReplaceAll(strings.TrimPrefix(code, "invalid_"), "_", " ")
		}
		return "invalid value"
	}
}
