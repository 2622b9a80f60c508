// Package errors provides the brokerkit error taxonomy.
// Every failure the access layer surfaces is an *AppError carrying a
// machine-readable code, a retryable flag and the underlying cause.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the upstream status code when one was involved.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code, so errors.Is(err, ErrNoCredential) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNoCredential    = &AppError{Code: ErrCodeNoCredential}
	ErrRefreshFailed   = &AppError{Code: ErrCodeRefreshFailed}
	ErrTooManyStreams  = &AppError{Code: ErrCodeTooManyStreams}
	ErrStreamTransport = &AppError{Code: ErrCodeStreamTransport}
	ErrStreamClosed    = &AppError{Code: ErrCodeStreamClosed}
)

// --- Constructors ---

// NoCredential reports that no credential is available and none can be acquired.
func NoCredential() *AppError {
	return &AppError{
		Code:       ErrCodeNoCredential,
		Message:    "no refresh token available and no credential acquirer configured",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// RefreshFailed reports a failed token refresh. Transport failures are
// retryable; rejections (invalid or expired refresh token) are not.
func RefreshFailed(reason RefreshReason, status int, cause error) *AppError {
	msg := "token refresh failed: transport error"
	if reason == RefreshRejected {
		msg = "token refresh failed: credential rejected by server"
	}
	return &AppError{
		Code:       ErrCodeRefreshFailed,
		Message:    msg,
		Retryable:  reason == RefreshTransport,
		HTTPStatus: status,
		Details:    map[string]any{"reason": string(reason)},
		Cause:      cause,
	}
}

// TooManyStreams reports that opening another stream would exceed the ceiling.
func TooManyStreams(limit int) *AppError {
	return &AppError{
		Code:    ErrCodeTooManyStreams,
		Message: fmt.Sprintf("concurrent stream limit of %d reached", limit),
		Details: map[string]any{"limit": limit},
	}
}

// StreamTransport wraps an error from the underlying stream connection.
func StreamTransport(key string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeStreamTransport,
		Message:   "stream connection failed",
		Retryable: true,
		Details:   map[string]any{"stream": key},
		Cause:     cause,
	}
}

// FrameParse describes a malformed stream line.
func FrameParse(line []byte, cause error) *AppError {
	const maxPreview = 128
	preview := line
	if len(preview) > maxPreview {
		preview = preview[:maxPreview]
	}
	return &AppError{
		Code:    ErrCodeFrameParse,
		Message: "dropping malformed stream frame",
		Details: map[string]any{"frame": string(preview), "size": len(line)},
		Cause:   cause,
	}
}

// StreamClosed reports an operation on a stream that is no longer open.
func StreamClosed(key string) *AppError {
	return &AppError{
		Code:    ErrCodeStreamClosed,
		Message: "stream is closed",
		Details: map[string]any{"stream": key},
	}
}

// InvalidInput reports an invalid argument.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code:       ErrCodeInvalidInput,
		Message:    fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Unauthorized reports that the server refused the bearer credential.
func Unauthorized(cause error) *AppError {
	return &AppError{
		Code:       ErrCodeUnauthorized,
		Message:    "request rejected: bearer credential not accepted",
		HTTPStatus: http.StatusUnauthorized,
		Cause:      cause,
	}
}

// Internal wraps an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "an unexpected error occurred",
		Cause:   cause,
	}
}

// --- Inspection ---

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsRefreshRejected reports whether err is a refresh the server refused.
func IsRefreshRejected(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == ErrCodeRefreshFailed && appErr.Details["reason"] == string(RefreshRejected)
}

// IsRetryable reports whether err is an AppError marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}
