// Package api implements the rate-limited, retrying RanobeLIB API client.
package api

import (
	"errors"
	"fmt"

	"github.com/ranobe-tools/ranobe-dl/internal/cancel"
)

// TransportError reports a network or HTTP failure that survived the whole
// retry schedule. It is fatal for the call that produced it; callers decide
// whether to abort or skip.
type TransportError struct {
	Target   string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed after %d attempts: %v", e.Target, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that could not be decoded where one
// was expected. The server answered, so the call is not retried.
type DecodeError struct {
	Target string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode response from %s: %v", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsCancelled reports whether err is a user cancellation. Cancellation is a
// graceful outcome, distinct from transport failure, and should not produce
// an error dialog or log entry.
func IsCancelled(err error) bool {
	return errors.Is(err, cancel.ErrCancelled)
}

// IsTransport reports whether err is a transport failure after exhausted
// retries.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsDecode reports whether err is a malformed-body failure.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
