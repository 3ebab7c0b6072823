// Package apperr provides structured application errors with stable codes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Auth errors
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeForbidden             = "FORBIDDEN"
	CodeRequiresAuthorization = "REQUIRES_AUTHORIZATION"

	// Validation errors
	CodeBadRequest   = "BAD_REQUEST"
	CodeInvalidInput = "INVALID_INPUT"
	CodeMissingField = "MISSING_FIELD"

	// Resource errors
	CodeNotFound = "NOT_FOUND"
	CodeConflict = "CONFLICT"

	// Pipeline errors
	CodeQuotaExceeded = "QUOTA_EXCEEDED"
	CodeUpstreamFetch = "UPSTREAM_FETCH_FAILED"
	CodePersistence   = "PERSISTENCE_FAILURE"
	CodeOAuthFailed   = "OAUTH_FAILED"
	CodeRateLimited   = "RATE_LIMITED"

	// Internal errors
	CodeInternalError = "INTERNAL_ERROR"
	CodeConfigError   = "CONFIG_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Status  int            `json:"-"`
	Details map[string]any `json:"details,omitempty"`
	Err     error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// HTTPStatus returns the HTTP status code
func (e *AppError) HTTPStatus() int {
	return e.Status
}

// Constructor functions
func New(code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, code, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Auth errors
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  http.StatusUnauthorized,
	}
}

// RequiresAuthorization signals that no usable mailbox credential exists and
// the user has to go through the connect flow again. User-actionable, not a bug.
func RequiresAuthorization() *AppError {
	return &AppError{
		Code:    CodeRequiresAuthorization,
		Message: "mailbox not connected",
		Status:  http.StatusBadRequest,
		Details: map[string]any{"action": "connect_mailbox"},
	}
}

// QuotaExceeded is the admission-control rejection. It carries used/limit so
// clients can render an upgrade prompt.
func QuotaExceeded(used, limit int) *AppError {
	return &AppError{
		Code:    CodeQuotaExceeded,
		Message: "monthly analysis limit reached",
		Status:  http.StatusTooManyRequests,
		Details: map[string]any{"used": used, "limit": limit, "upgrade_required": true},
	}
}

// UpstreamFetchFailed indicates the mailbox transport was unreachable; the
// whole batch aborts and nothing is persisted.
func UpstreamFetchFailed(err error) *AppError {
	return &AppError{
		Code:    CodeUpstreamFetch,
		Message: "failed to fetch messages from mailbox",
		Status:  http.StatusBadGateway,
		Err:     err,
	}
}

// PersistenceFailure is fatal to the request; partial in-memory results must
// not be reported as success.
func PersistenceFailure(operation string, err error) *AppError {
	return &AppError{
		Code:    CodePersistence,
		Message: fmt.Sprintf("persistence failed: %s", operation),
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

func OAuthFailed(message string) *AppError {
	return &AppError{
		Code:    CodeOAuthFailed,
		Message: message,
		Status:  http.StatusBadGateway,
	}
}

// Validation errors
func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

func MissingField(field string) *AppError {
	return &AppError{
		Code:    CodeMissingField,
		Message: fmt.Sprintf("missing required field: %s", field),
		Status:  http.StatusBadRequest,
		Details: map[string]any{"field": field},
	}
}

// Resource errors
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
	}
}

func RateLimited(limit int, window string) *AppError {
	return &AppError{
		Code:    CodeRateLimited,
		Message: "too many requests",
		Status:  http.StatusTooManyRequests,
		Details: map[string]any{"limit": limit, "window": window},
	}
}

// Internal errors
func Internal(message string) *AppError {
	if message == "" {
		message = "internal server error"
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

func InternalWithError(err error) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: "internal server error",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Helper functions
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalWithError(err)
}

func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
