// Package errors defines the brokerkit error taxonomy.
//
// Credential and stream-creation failures propagate to the caller as
// *AppError values; use errors.Is with the exported sentinels or HasCode to
// branch on them:
//
//	if errors.Is(err, bkerrors.ErrTooManyStreams) { ... }
//
// Rate limiting is never an error: the throttle absorbs it as latency.
package errors
