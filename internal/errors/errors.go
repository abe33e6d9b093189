// Package errors provides structured error handling with machine-readable
// codes and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates invalid input (HTTP 400)
	TypeValidation ErrorType = "validation"
	// TypeUnauthorized indicates a missing or failed credential (HTTP 401)
	TypeUnauthorized ErrorType = "unauthorized"
	// TypeForbidden indicates a valid credential without permission (HTTP 403)
	TypeForbidden ErrorType = "forbidden"
	// TypeNotFound indicates resource not found (HTTP 404)
	TypeNotFound ErrorType = "not_found"
	// TypeConflict indicates resource conflict (HTTP 409)
	TypeConflict ErrorType = "conflict"
	// TypeUnavailable indicates a disabled or unconfigured capability (HTTP 503)
	TypeUnavailable ErrorType = "unavailable"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, code, message, and context.
// Code is a stable machine-readable identifier clients branch on; Message is
// for humans.
type Error struct {
	Type    ErrorType
	Code    string
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeConflict:
		return http.StatusConflict
	case TypeUnavailable:
		return http.StatusServiceUnavailable
	case TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(code, message string) *Error {
	return &Error{Type: TypeValidation, Code: code, Message: message}
}

// UnauthorizedError creates a new unauthorized error (HTTP 401).
func UnauthorizedError(code, message string) *Error {
	return &Error{Type: TypeUnauthorized, Code: code, Message: message}
}

// ForbiddenError creates a new forbidden error (HTTP 403).
func ForbiddenError(code, message string) *Error {
	return &Error{Type: TypeForbidden, Code: code, Message: message}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(code, message string) *Error {
	return &Error{Type: TypeNotFound, Code: code, Message: message}
}

// ConflictError creates a new conflict error (HTTP 409).
func ConflictError(code, message string) *Error {
	return &Error{Type: TypeConflict, Code: code, Message: message}
}

// UnavailableError creates a new unavailable error (HTTP 503).
func UnavailableError(code, message string) *Error {
	return &Error{Type: TypeUnavailable, Code: code, Message: message}
}

// InternalError creates a new internal error (HTTP 500). The cause is kept
// for server-side logging and never rendered to clients.
func InternalError(message string, cause error) *Error {
	return &Error{Type: TypeInternal, Code: "internal_error", Message: message, Cause: cause}
}

// WithContext adds context fields to the error (chainable).
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
// Internal errors are rendered opaquely; the cause stays in the logs.
func (e *Error) ToResponse() ErrorResponse {
	if e.Type == TypeInternal {
		return ErrorResponse{Error: e.Code, Message: "internal server error"}
	}
	return ErrorResponse{Error: e.Code, Message: e.Message}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
