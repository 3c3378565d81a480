package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation             ErrorType = "validation"
	ErrorTypeInvalidAnchor          ErrorType = "invalid_anchor"
	ErrorTypeNotFound               ErrorType = "not_found"
	ErrorTypeDuplicateConflict      ErrorType = "duplicate_conflict"
	ErrorTypePersistenceUnavailable ErrorType = "persistence_unavailable"
	ErrorTypeUnauthorized           ErrorType = "unauthorized"
	ErrorTypeRateLimited            ErrorType = "rate_limited"
	ErrorTypeInternal               ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type, so the
// sentinels below work with errors.Is regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Sentinels for errors.Is checks.
var (
	ErrValidation             = &AppError{Type: ErrorTypeValidation, Message: "validation failed", StatusCode: http.StatusBadRequest}
	ErrInvalidAnchor          = &AppError{Type: ErrorTypeInvalidAnchor, Message: "invalid anchor", StatusCode: http.StatusBadRequest}
	ErrNotFound               = &AppError{Type: ErrorTypeNotFound, Message: "not found", StatusCode: http.StatusNotFound}
	ErrDuplicateConflict      = &AppError{Type: ErrorTypeDuplicateConflict, Message: "duplicate conflict", StatusCode: http.StatusConflict}
	ErrPersistenceUnavailable = &AppError{Type: ErrorTypePersistenceUnavailable, Message: "persistence unavailable", StatusCode: http.StatusServiceUnavailable}
)

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		Details:    firstDetail(details),
		StatusCode: http.StatusBadRequest,
	}
}

// NewInvalidAnchorError creates an error for malformed or out-of-range position data
func NewInvalidAnchorError(message string, details ...string) *AppError {
	return &AppError{
		Type:       ErrorTypeInvalidAnchor,
		Message:    message,
		Details:    firstDetail(details),
		StatusCode: http.StatusBadRequest,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewDuplicateConflictError creates an error for an upsert the store could not resolve
func NewDuplicateConflictError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDuplicateConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
		Cause:      cause,
	}
}

// NewPersistenceUnavailableError creates an error for storage or timeout failures
func NewPersistenceUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypePersistenceUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Cause:      cause,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewRateLimitedError creates an error for callers over their request budget
func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsType checks if the error chain contains an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message that is safe to echo back to a caller.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Details != "" {
			return appErr.Message + ": " + appErr.Details
		}
		return appErr.Message
	}
	return "internal error"
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}
