package server

import (
	"errors"
	"net/http"
	"strings"

	clientdomain "github.com/AdrianPopi/acont/internal/client/domain"
	"github.com/AdrianPopi/acont/internal/document"
	productdomain "github.com/AdrianPopi/acont/internal/product/domain"
	"github.com/gin-gonic/gin"
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

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Rule    string            `json:"rule,omitempty"`
	Date    string            `json:"date,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrMerchantRequired   = errors.New("merchant_required")
	ErrRateLimited        = errors.New("rate_limited")
	ErrIssueInProgress    = errors.New("issue_in_progress")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
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
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
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

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var chronoErr *document.ChronologyViolation
	if errors.As(err, &chronoErr) {
		payload := errorPayload{
			Type:    "chronology_violation",
			Message: chronoErr.Message,
			Rule:    string(chronoErr.Rule),
		}
		if !chronoErr.Date.IsZero() {
			payload.Date = chronoErr.Date.Format(dateOnlyLayout)
		}
		return http.StatusBadRequest, payload
	}

	var docErr *document.ValidationError
	if errors.As(err, &docErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: docErr.Message,
			Errors: []ValidationError{
				{Field: docErr.Field, Code: docErr.Code, Message: docErr.Message},
			},
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrMerchantRequired),
		errors.Is(err, document.ErrInvalidMerchant),
		errors.Is(err, clientdomain.ErrInvalidMerchant),
		errors.Is(err, productdomain.ErrInvalidMerchant):
		return http.StatusUnauthorized, errorPayload{
			Type:    "merchant_required",
			Message: "merchant is required",
		}
	case errors.Is(err, document.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_transition",
			Message: err.Error(),
		}
	case errors.Is(err, document.ErrNotDraft):
		return http.StatusConflict, errorPayload{
			Type:    "not_draft",
			Message: "only draft documents can be changed",
		}
	case errors.Is(err, ErrIssueInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "issue_in_progress",
			Message: "document is already being issued",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, document.ErrConcurrencyTimeout):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "concurrency_timeout",
			Message: "numbering is busy, retry shortly",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the access log with the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError && payload.Type == "internal_error" {
		return "internal_error", ""
	}
	code := payload.Rule
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, document.ErrInvalidID):
		return true
	case isClientValidationError(err),
		isProductValidationError(err):
		return true
	default:
		return false
	}
}

func isClientValidationError(err error) bool {
	switch {
	case errors.Is(err, clientdomain.ErrInvalidName),
		errors.Is(err, clientdomain.ErrInvalidEmail),
		errors.Is(err, clientdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isProductValidationError(err error) bool {
	switch {
	case errors.Is(err, productdomain.ErrInvalidName),
		errors.Is(err, productdomain.ErrInvalidUnitPrice),
		errors.Is(err, productdomain.ErrInvalidVATRate),
		errors.Is(err, productdomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, clientdomain.ErrNotFound),
		errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// notFoundMessage keeps wrapped context such as "client not_found".
func notFoundMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" || msg == "not_found" {
		return "not found"
	}
	return strings.ReplaceAll(msg, "not_found", "not found")
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
