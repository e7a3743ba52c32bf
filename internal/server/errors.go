package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/shaadmin/internal/ratelimit"
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
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
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

// errorKind buckets a domain sentinel by its code. Domains name their
// sentinels invalid_*, duplicate_*, *not_found and so on, so the code alone
// decides the HTTP status.
type errorKind int

const (
	kindInternal errorKind = iota
	kindValidation
	kindUnauthorized
	kindForbidden
	kindNotFound
	kindConflict
	kindRateLimited
	kindUnavailable
)

var conflictCodes = map[string]bool{
	"invalid_transition":           true,
	"claim_not_approved":           true,
	"reference_sequence_exhausted": true,
}

func classify(err error) (errorKind, string) {
	if err == nil {
		return kindInternal, ""
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return kindNotFound, "not_found"
	}
	if errors.Is(err, ratelimit.ErrLockHeld) {
		return kindRateLimited, ratelimit.ErrLockHeld.Error()
	}

	code := rootError(err).Error()
	switch {
	case code == ErrUnauthorized.Error(), code == "invalid_credentials":
		return kindUnauthorized, code
	case code == ErrForbidden.Error():
		return kindForbidden, code
	case code == ErrRateLimited.Error():
		return kindRateLimited, code
	case code == ErrServiceUnavailable.Error():
		return kindUnavailable, code
	case code == "not_found", strings.HasSuffix(code, "_not_found"):
		return kindNotFound, code
	case conflictCodes[code], strings.HasPrefix(code, "duplicate_"):
		return kindConflict, code
	case strings.HasPrefix(code, "invalid_"), code == "password_too_short":
		return kindValidation, code
	}
	return kindInternal, "internal_error"
}

// rootError unwraps single-error chains down to the sentinel.
func rootError(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	kind, code := classify(err)
	switch kind {
	case kindValidation:
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
	case kindUnauthorized:
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}
	case kindForbidden:
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "forbidden"}
	case kindNotFound:
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: strings.ReplaceAll(code, "_", " ")}
	case kindConflict:
		return http.StatusConflict, errorPayload{Type: "conflict", Message: code}
	case kindRateLimited:
		return http.StatusTooManyRequests, errorPayload{Type: "rate_limited", Message: "too many requests"}
	case kindUnavailable:
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "service unavailable"}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

// classifyErrorForLog feeds the access log's error_type / error_code fields.
func classifyErrorForLog(err error) (string, string) {
	if vErr := asValidationErrors(err); vErr != nil {
		code := "validation_error"
		if len(vErr.Errors) > 0 {
			code = vErr.Errors[0].Code
		}
		return "validation_error", code
	}
	_, payload := mapError(err)
	_, code := classify(err)
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
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
	case "password_too_short":
		return "password is too short"
	default:
		return "invalid value"
	}
}
