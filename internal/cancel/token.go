// Package cancel provides a reusable cancellation token that interrupts
// rate-limit and retry waits in flight.
package cancel

import (
	"errors"
	"sync"
	"time"
)

// ErrCancelled is returned from waits interrupted by a set token. Callers
// treat it as graceful termination, not a failure.
var ErrCancelled = errors.New("operation cancelled")

// Token is a shared cancellable flag. Set marks the token cancelled and
// releases every goroutine blocked in Wait; Clear re-arms the token for the
// next operation. A token is reusable across operations and safe for
// concurrent use.
type Token struct {
	mu   sync.Mutex
	set  bool
	done chan struct{}
}

// NewToken returns a token in the clear state.
func NewToken() *Token {
	return &Token{done: make(chan struct{})}
}

// Set cancels the token. Any Wait in progress returns ErrCancelled
// immediately.
func (t *Token) Set() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.set {
		return
	}
	t.set = true
	close(t.done)
}

// Clear re-arms the token. A cancellation signalled before Clear does not
// affect waits started after it.
func (t *Token) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.set {
		return
	}
	t.set = false
	t.done = make(chan struct{})
}

// IsSet reports whether the token is cancelled.
func (t *Token) IsSet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set
}

// Done returns a channel closed while the token is set. The channel is
// replaced on Clear, so callers must not cache it across operations.
func (t *Token) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Wait sleeps for d, returning ErrCancelled if the token is set before or
// during the sleep. A nil token degrades to a plain sleep so optional
// cancellation does not force nil checks on every call site.
func (t *Token) Wait(d time.Duration) error {
	if t == nil {
		time.Sleep(d)
		return nil
	}

	t.mu.Lock()
	if t.set {
		t.mu.Unlock()
		return ErrCancelled
	}
	done := t.done
	t.mu.Unlock()

	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-done:
		return ErrCancelled
	case <-timer.C:
		return nil
	}
}
