package contracts

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy for the routing core.
//
//   - ConfigurationError: missing required external credentials.
//     Fatal for the call, never retried.
//   - TransientUpstreamError: network failure or rate limiting.
//     Retried up to the fixed budget, then surfaced.
//   - ParseError: structured-output extraction failed. Never surfaced
//     to callers; agents absorb it with their deterministic fallback.
//   - ValidationError: malformed caller input to a tool. Surfaced
//     immediately, no retry.
//   - CancellationError: the caller withdrew the request. Surfaced and
//     logged as a failure, no retry.

// ConfigurationError indicates required external credentials or
// endpoints are missing.
type ConfigurationError struct {
	Component string
	Missing   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s not configured", e.Component, e.Missing)
}

// TransientUpstreamError wraps a retryable upstream failure.
type TransientUpstreamError struct {
	Component string
	Err       error
}

func (e *TransientUpstreamError) Error() string {
	return fmt.Sprintf("%s: transient upstream failure: %v", e.Component, e.Err)
}

func (e *TransientUpstreamError) Unwrap() error { return e.Err }

// ParseError indicates structured-output extraction failed.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse: " + e.Reason
}

// ValidationError indicates malformed input to a tool.
type ValidationError struct {
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %s: invalid input: %s", e.Tool, e.Reason)
}

// CancellationError indicates the caller withdrew the request.
type CancellationError struct {
	Err error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("request cancelled: %v", e.Err)
}

func (e *CancellationError) Unwrap() error { return e.Err }

// TranscriptionError indicates the speech provider could not produce
// a usable transcript.
type TranscriptionError struct {
	Reason string
	Err    error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription: %s: %v", e.Reason, e.Err)
	}
	return "transcription: " + e.Reason
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// ── Classification helpers ──────────────────────────────────

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientUpstreamError
	return errors.As(err, &te)
}

// IsConfiguration reports whether err is a fatal configuration error.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsParse reports whether err is an absorbed-by-fallback parse error.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsCancellation reports whether err comes from caller cancellation,
// either as a typed CancellationError or a raw context.Canceled.
// A deadline blown on a single upstream attempt is a transient
// failure, not a cancellation, so DeadlineExceeded alone does not
// qualify.
func IsCancellation(err error) bool {
	var ce *CancellationError
	if errors.As(err, &ce) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
