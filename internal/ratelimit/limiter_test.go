package ratelimit

import (
	"errors"
	"testing"
	"time"

	"github.com/ranobe-tools/ranobe-dl/internal/cancel"
)

// TestFastPathAdmitsUpToCeiling verifies that requests under the ceiling are
// admitted without waiting.
func TestFastPathAdmitsUpToCeiling(t *testing.T) {
	l := NewLimiter(5, time.Second)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Wait(nil, 0); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("5 admissions under the ceiling took %v, want near-instant", elapsed)
	}
	if got := l.InWindow(); got != 5 {
		t.Errorf("InWindow() = %d, want 5", got)
	}
}

// TestCeilingHoldsOverTrailingWindow verifies the core property: for
// back-to-back admissions, no more than limit admissions fall within any
// trailing window.
func TestCeilingHoldsOverTrailingWindow(t *testing.T) {
	const limit = 5
	window := 250 * time.Millisecond
	l := NewLimiter(limit, window)

	times := make([]time.Time, 0, 15)
	for i := 0; i < 15; i++ {
		if err := l.Wait(nil, 0); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
		times = append(times, time.Now())
	}

	// If admission i+limit happened less than a window after admission i,
	// then limit+1 admissions shared one trailing window.
	slack := 20 * time.Millisecond
	for i := 0; i+limit < len(times); i++ {
		gap := times[i+limit].Sub(times[i])
		if gap < window-slack {
			t.Errorf("admissions %d..%d within %v, want >= %v", i, i+limit, gap, window)
		}
	}
}

// TestUpcomingRequestsReserveCapacity verifies the lookahead: announcing
// upcoming requests forces pacing even while the window has room.
func TestUpcomingRequestsReserveCapacity(t *testing.T) {
	l := NewLimiter(5, 300*time.Millisecond)

	// Two plain admissions keep the fast path.
	for i := 0; i < 2; i++ {
		if err := l.Wait(nil, 0); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	// 2 in window + 3 upcoming + 1 > 5: this admission must be paced.
	start := time.Now()
	if err := l.Wait(nil, 3); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Wait(upcoming=3) returned after %v, expected a pacing delay", elapsed)
	}
}

// TestWaitRecoversAfterWindowExpires verifies stale timestamps are purged
// and admission becomes immediate again.
func TestWaitRecoversAfterWindowExpires(t *testing.T) {
	l := NewLimiter(3, 150*time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := l.Wait(nil, 0); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	time.Sleep(200 * time.Millisecond)
	if got := l.InWindow(); got != 0 {
		t.Errorf("InWindow() after expiry = %d, want 0", got)
	}

	start := time.Now()
	if err := l.Wait(nil, 0); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait() after expiry took %v, want near-instant", elapsed)
	}
}

// TestCancelDuringRateLimitWait verifies that cancelling the token aborts an
// active admission wait promptly with the cancellation error.
func TestCancelDuringRateLimitWait(t *testing.T) {
	l := NewLimiter(1, 10*time.Second)
	tok := cancel.NewToken()

	if err := l.Wait(tok, 0); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Wait(tok, 0) // ceiling reached: would wait ~10s
	}()

	time.Sleep(50 * time.Millisecond)
	start := time.Now()
	tok.Set()

	select {
	case err := <-errCh:
		if !errors.Is(err, cancel.ErrCancelled) {
			t.Fatalf("Wait() error = %v, want ErrCancelled", err)
		}
		if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
			t.Errorf("cancellation latency = %v, want <= 200ms", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after cancellation")
	}
}

// TestClearedTokenDoesNotAffectNextWait verifies a stale cancellation,
// once cleared, does not poison subsequent admissions.
func TestClearedTokenDoesNotAffectNextWait(t *testing.T) {
	l := NewLimiter(5, time.Second)
	tok := cancel.NewToken()
	tok.Set()
	tok.Clear()

	if err := l.Wait(tok, 0); err != nil {
		t.Errorf("Wait() after Clear() error = %v, want nil", err)
	}
}
