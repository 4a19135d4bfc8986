// Package errors provides structured error handling with a taxonomy matching
// the engine's upstream failure modes and HTTP status code mapping for the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics, propagation policy
// and response formatting.
type ErrorType string

const (
	// TypeUpstreamAuth indicates rejected credentials. Fatal for the affected
	// source; polling is suspended until reconfigured.
	TypeUpstreamAuth ErrorType = "upstream_auth"
	// TypeRateLimited indicates the upstream throttled us. Non-fatal; stale
	// data is served and back-off scheduled.
	TypeRateLimited ErrorType = "rate_limited"
	// TypeTimeout indicates an upstream call exceeded its deadline. Non-fatal;
	// the cycle skips that source's update.
	TypeTimeout ErrorType = "timeout"
	// TypeParse indicates a malformed post or bar. The item is skipped and
	// counted; the cycle continues.
	TypeParse ErrorType = "parse"
	// TypeValidation indicates invalid input or configuration (HTTP 400).
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates a missing resource (HTTP 404).
	TypeNotFound ErrorType = "not_found"
	// TypeInternal indicates an unexpected server-side error (HTTP 500).
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must be escalated to the operator rather
// than degraded around. Only auth failures qualify.
func (e *Error) Fatal() bool {
	return e.Type == TypeUpstreamAuth
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeRateLimited:
		return http.StatusTooManyRequests
	case TypeTimeout:
		return http.StatusGatewayTimeout
	case TypeUpstreamAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UpstreamAuthError creates a fatal auth error for a source.
func UpstreamAuthError(source string, cause error) *Error {
	return &Error{
		Type:    TypeUpstreamAuth,
		Message: "upstream rejected credentials",
		Cause:   cause,
		Context: map[string]any{"source": source},
	}
}

// RateLimitedError creates a non-fatal rate-limit error for a source.
func RateLimitedError(source string, cause error) *Error {
	return &Error{
		Type:    TypeRateLimited,
		Message: "upstream rate limited",
		Cause:   cause,
		Context: map[string]any{"source": source},
	}
}

// TimeoutError creates a non-fatal timeout error for a source.
func TimeoutError(source string, cause error) *Error {
	return &Error{
		Type:    TypeTimeout,
		Message: "upstream timed out",
		Cause:   cause,
		Context: map[string]any{"source": source},
	}
}

// ParseError creates an error for a single malformed item.
func ParseError(message string, cause error) *Error {
	return &Error{
		Type:    TypeParse,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// ValidationError creates a new validation error (HTTP 400).
func ValidationError(message string) *Error {
	return &Error{
		Type:    TypeValidation,
		Message: message,
		Context: make(map[string]any),
	}
}

// NotFoundError creates a new not-found error (HTTP 404).
func NotFoundError(message string) *Error {
	return &Error{
		Type:    TypeNotFound,
		Message: message,
		Context: make(map[string]any),
	}
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return &Error{
		Type:    TypeInternal,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
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
	Error   string         `json:"error"`
	Type    ErrorType      `json:"type"`
	Context map[string]any `json:"context,omitempty"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Type:    e.Type,
		Context: e.Context,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged. Otherwise wraps it as an
// internal error.
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

// TypeOf returns the taxonomy type of any error, defaulting to TypeInternal.
func TypeOf(err error) ErrorType {
	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr.Type
	}
	return TypeInternal
}
