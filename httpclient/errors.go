package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication/authorization failure (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates the resource was not found (404).
	ErrCodeNotFound
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a request the server refused as malformed (other 4xx)
	// or one that could not be built locally.
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a structured HTTP client error with classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for connection-level errors).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether the operation can be retried.
	Retryable bool
	// Body is the original response body (may be nil).
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError creates a local request-building error.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d %s", statusCode, http.StatusText(statusCode)),
		Body:       body,
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// StatusCode extracts the HTTP status from err, or 0 if there is none.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return hasCode(err, ErrCodeTimeout) }

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool { return hasCode(err, ErrCodeConnection) }

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool { return hasCode(err, ErrCodeAuth) }

// IsUnauthorized checks for a 401 specifically, the signal that the access
// token is no longer accepted.
func IsUnauthorized(err error) bool { return StatusCode(err) == http.StatusUnauthorized }

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsRateLimit checks if an error is a rate-limit error.
func IsRateLimit(err error) bool { return hasCode(err, ErrCodeRateLimit) }

// IsServerError checks if an error is a server error.
func IsServerError(err error) bool { return hasCode(err, ErrCodeServer) }

// IsClientError reports a 4xx response: the server understood the request
// and refused it.
func IsClientError(err error) bool {
	code := StatusCode(err)
	return code >= 400 && code < 500
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
