package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Credential errors
const (
	// ErrCodeNoCredential indicates no credential could be obtained: there is
	// no refresh token and no primary acquisition is configured.
	ErrCodeNoCredential ErrorCode = "NO_CREDENTIAL"
	// ErrCodeRefreshFailed indicates the token endpoint call failed.
	// Details["reason"] distinguishes "transport" from "rejected".
	ErrCodeRefreshFailed ErrorCode = "REFRESH_FAILED"
)

// Streaming errors
const (
	// ErrCodeTooManyStreams indicates the concurrent stream ceiling was reached.
	ErrCodeTooManyStreams ErrorCode = "TOO_MANY_STREAMS"
	// ErrCodeStreamTransport indicates the underlying stream connection failed.
	ErrCodeStreamTransport ErrorCode = "STREAM_TRANSPORT"
	// ErrCodeFrameParse indicates a stream line was not valid JSON. Never
	// returned to callers; used for logging and counting only.
	ErrCodeFrameParse ErrorCode = "FRAME_PARSE"
	// ErrCodeStreamClosed indicates an operation on a stream that was torn down.
	ErrCodeStreamClosed ErrorCode = "STREAM_CLOSED"
)

// Request errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnauthorized indicates the server rejected the bearer credential.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInternal indicates an unexpected client-side failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// RefreshReason classifies why a refresh failed.
type RefreshReason string

const (
	// RefreshTransport covers connection errors, timeouts and 5xx responses.
	RefreshTransport RefreshReason = "transport"
	// RefreshRejected covers 4xx responses such as invalid_grant.
	RefreshRejected RefreshReason = "rejected"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStreamTransport: true,
	ErrCodeTooManyStreams:  false,
	ErrCodeNoCredential:    false,
	ErrCodeInternal:        false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// REFRESH_FAILED depends on its reason and is decided by the constructor.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
