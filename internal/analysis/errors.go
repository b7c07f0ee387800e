package analysis

import (
	"context"
	"errors"
)

var (
	// ErrSchemaViolation means the model returned output that does not match the analysis contract.
	ErrSchemaViolation = errors.New("analysis output violates schema")

	// ErrUpstreamTransient marks a single failed attempt that may succeed on retry.
	ErrUpstreamTransient = errors.New("analysis upstream transient failure")

	// ErrUpstreamUnavailable is returned when every attempt failed with a transient error.
	ErrUpstreamUnavailable = errors.New("analysis upstream unavailable")

	// ErrUnexpected is returned for any non-retryable failure.
	ErrUnexpected = errors.New("analysis failed unexpectedly")
)

// IsRetryable reports whether err from a single attempt is worth retrying.
// parent is the caller's context: its cancellation is never retryable,
// while a per-attempt deadline is.
func IsRetryable(parent context.Context, err error) bool {
	if err == nil {
		return false
	}

	if parent.Err() != nil {
		return false
	}

	if errors.Is(err, ErrSchemaViolation) || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// API error responses of any status, connection failures, and
	// truncated bodies are all transient.
	return true
}
