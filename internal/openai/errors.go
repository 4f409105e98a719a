package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// RecoverableError marks a completion failure that should be recorded against
// the prompt and skipped, without killing the rest of the shard. This covers
// responses the API returned but we could not use, plus interruption of an
// in-flight call.
type RecoverableError struct {
	Reason string
}

func (e *RecoverableError) Error() string {
	return e.Reason
}

// APIError is a non-2xx response from the completions endpoint. These are
// treated as fatal for the shard: a bad key or exhausted quota will fail every
// remaining prompt the same way, so there is no point burning through them.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API returned status %d", e.StatusCode)
}

// IsRecoverable reports whether err should be recorded as a per-prompt failure
// rather than aborting the shard. Context cancellation and timeouts count as
// recoverable so an interrupted run still writes the in-flight prompt to the
// failure store before stopping.
func IsRecoverable(err error) bool {
	var rec *RecoverableError
	if errors.As(err, &rec) {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
