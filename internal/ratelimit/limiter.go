package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Waiter performs an interruptible sleep. It is satisfied by *cancel.Token;
// a wait that is interrupted returns the waiter's cancellation error, which
// the limiter propagates unchanged.
type Waiter interface {
	Wait(d time.Duration) error
}

// Limiter keeps a sliding window of admission timestamps and delays callers
// so that no more than limit requests are admitted within any trailing
// window. When the window is only partially full but a burst is underway,
// admissions are spaced evenly across the remainder of the window rather
// than granted all at once (a leaky bucket with lookahead, not a fixed
// counter).
//
// The timestamp sequence is always sorted ascending; stale entries are
// purged lazily at the front before every admission decision. All state is
// mutex-guarded so one limiter may serve a client shared across goroutines.
// The mutex is never held across a sleep.
type Limiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	stamps   []time.Time
	lastWarn time.Time
}

// NewLimiter creates a limiter admitting at most limit requests per window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{limit: limit, window: window}
}

// NewAPILimiter creates a limiter with the RanobeLIB ceiling (90 requests
// per 60 seconds).
func NewAPILimiter() *Limiter {
	return NewLimiter(RequestCeiling, WindowLength)
}

// Wait blocks until the next request may be dispatched, then records its
// admission. upcoming reserves capacity for requests the caller is about to
// issue (a chapter batch, for example), so the fast path does not admit a
// burst that would push the batch over the ceiling. The only error Wait can
// return is the waiter's cancellation error; the limiter itself never fails,
// only delays.
func (l *Limiter) Wait(w Waiter, upcoming int) error {
	if upcoming < 0 {
		upcoming = 0
	}

	// Fast path: the window has room for this request and everything the
	// caller has announced.
	now := time.Now()
	l.mu.Lock()
	l.purge(now)
	if len(l.stamps)+upcoming+1 <= l.limit {
		l.stamps = append(l.stamps, time.Now())
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	for {
		now = time.Now()
		l.mu.Lock()
		l.purge(now)

		// Over the ceiling: wait until the oldest admission leaves the
		// window, then re-check — another goroutine may have been admitted
		// in the meantime.
		if len(l.stamps) >= l.limit {
			wait := l.stamps[0].Add(l.window).Sub(now)
			l.mu.Unlock()
			if wait > 0 {
				l.warnThrottled(wait)
				if err := l.sleep(w, wait); err != nil {
					return err
				}
			}
			continue
		}

		// Under the ceiling but the window is filling: space this request
		// evenly across what remains of the window, minus whatever time
		// this admission pass has already consumed.
		if len(l.stamps) > 0 {
			windowRemaining := l.window - now.Sub(l.stamps[0])
			remaining := l.limit - len(l.stamps)
			if remaining < 1 {
				remaining = 1
			}
			pacing := windowRemaining / time.Duration(remaining)
			l.mu.Unlock()

			if wait := pacing - time.Since(now); wait > 0 {
				if err := l.sleep(w, wait); err != nil {
					return err
				}
			}
		} else {
			l.mu.Unlock()
		}
		break
	}

	l.mu.Lock()
	l.stamps = append(l.stamps, time.Now())
	l.mu.Unlock()
	return nil
}

// InWindow returns how many admissions are currently inside the window.
func (l *Limiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge(time.Now())
	return len(l.stamps)
}

// purge drops timestamps older than the window from the front of the
// sequence. Caller must hold l.mu.
func (l *Limiter) purge(now time.Time) {
	cut := 0
	for cut < len(l.stamps) && now.Sub(l.stamps[cut]) > l.window {
		cut++
	}
	if cut > 0 {
		l.stamps = append(l.stamps[:0], l.stamps[cut:]...)
	}
}

// sleep runs an interruptible wait through the waiter, or a plain sleep
// when no waiter was supplied.
func (l *Limiter) sleep(w Waiter, d time.Duration) error {
	if w == nil {
		time.Sleep(d)
		return nil
	}
	return w.Wait(d)
}

// warnThrottled tells the user about a long rate-limit wait, at most once
// per warnEvery.
func (l *Limiter) warnThrottled(wait time.Duration) {
	if wait < warnAfter {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if time.Since(l.lastWarn) < warnEvery {
		return
	}
	l.lastWarn = time.Now()
	log.Warn().Msgf("Rate limited: waiting ~%.1fs for API capacity...", wait.Seconds())
}
