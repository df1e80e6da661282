package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AppError represents an infrastructure or request-level failure with structured details.
// Manifest problems are never AppErrors: they are reported as Diagnostics.
type AppError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StatusCode int       `json:"-"`
	Details    any       `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	Operation  string    `json:"operation,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext records the request ID found in ctx and the failing operation
func (e *AppError) WithContext(ctx context.Context, operation string) *AppError {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		e.RequestID = requestID
	}
	e.Operation = operation
	return e
}

type contextKey string

// RequestIDKey is the context key holding the request ID
const RequestIDKey contextKey = "request_id"

// Error codes
const (
	ErrInvalidInput     = "INVALID_INPUT"     // 400
	ErrValidationFailed = "VALIDATION_FAILED" // 422
	ErrNotFound         = "NOT_FOUND"         // 404
	ErrInternal         = "INTERNAL_ERROR"    // 500
	ErrTimeout          = "TIMEOUT"           // 408
	ErrTooLarge         = "PAYLOAD_TOO_LARGE" // 413
	ErrRateLimit        = "RATE_LIMIT"        // 429

	ErrRulesetInvalid    = "RULESET_INVALID"    // rule document failed to load or compile
	ErrManifestNotFound  = "MANIFEST_NOT_FOUND" // no manifest file at the given path
	ErrManifestReadError = "MANIFEST_READ_ERROR"
)

// NewAppError creates a new AppError
func NewAppError(code, message string, statusCode int, details any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
		Timestamp:  time.Now(),
	}
}

// NewAppErrorWithCause creates a new AppError wrapping cause
func NewAppErrorWithCause(code, message string, statusCode int, cause error, details any) *AppError {
	appErr := NewAppError(code, message, statusCode, details)
	appErr.Cause = cause
	return appErr
}

// HasCode reports whether err (or anything it wraps) is an AppError with the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return HasCode(err, ErrNotFound) || HasCode(err, ErrManifestNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return HasCode(err, ErrValidationFailed)
}

// IsRulesetError checks if the error comes from loading rule documents
func IsRulesetError(err error) bool {
	return HasCode(err, ErrRulesetInvalid)
}
