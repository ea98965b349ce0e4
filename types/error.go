package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the mirror.
type ErrorCode string

// Lifecycle error codes
const (
	ErrPlatformUnsupported ErrorCode = "PLATFORM_UNSUPPORTED"
	ErrAddressUnavailable  ErrorCode = "ADDRESS_UNAVAILABLE"
	ErrStagingFailed       ErrorCode = "STAGING_FAILED"
	ErrBindConflict        ErrorCode = "BIND_CONFLICT"
	ErrBindFailed          ErrorCode = "BIND_FAILED"
	ErrPortsExhausted      ErrorCode = "PORTS_EXHAUSTED"
	ErrServiceDisposed     ErrorCode = "SERVICE_DISPOSED"
)

// Request / API error codes
const (
	ErrRequestFailed      ErrorCode = "REQUEST_FAILED"
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrMethodNotAllowed   ErrorCode = "METHOD_NOT_ALLOWED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error (or anything it wraps) is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}
