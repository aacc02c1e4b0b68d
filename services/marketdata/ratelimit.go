package marketdata

import (
	"context"
	"sync"
	"time"
)

// Limiter gates upstream requests. Acquire blocks until a request may
// proceed or the context is cancelled.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Unlimited is the no-op policy for providers without a request budget.
type Unlimited struct{}

func (Unlimited) Acquire(ctx context.Context) error {
	return ctx.Err()
}

// WindowLimiter enforces a sliding-window request budget: at most n
// acquisitions may start within any trailing window. Each acquisition takes
// a permit from a fixed pool and the permit is re-armed one full window
// after it was taken, so the window slides per request rather than
// resetting on a fixed boundary. Acquire suspends the caller; it never
// busy-waits.
type WindowLimiter struct {
	permits chan struct{}
	window  time.Duration

	mu     sync.Mutex
	issued []time.Time
}

// NewWindowLimiter creates a limiter allowing n acquisitions per window.
func NewWindowLimiter(n int, window time.Duration) *WindowLimiter {
	if n < 1 {
		n = 1
	}
	l := &WindowLimiter{
		permits: make(chan struct{}, n),
		window:  window,
	}
	for i := 0; i < n; i++ {
		l.permits <- struct{}{}
	}
	return l
}

// Acquire takes a permit, blocking until one frees or ctx is cancelled.
func (l *WindowLimiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.permits:
	}

	now := time.Now()
	l.mu.Lock()
	l.prune(now)
	l.issued = append(l.issued, now)
	l.mu.Unlock()

	time.AfterFunc(l.window, func() {
		l.permits <- struct{}{}
	})
	return nil
}

// InWindow reports how many acquisitions happened within the trailing window.
func (l *WindowLimiter) InWindow() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return len(l.issued)
}

// prune drops ledger entries older than the window. Caller holds l.mu.
func (l *WindowLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.issued[:0]
	for _, t := range l.issued {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.issued = kept
}
