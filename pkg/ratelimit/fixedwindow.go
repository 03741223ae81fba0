package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/screwyprof/brawlstats/pkg/clock"
)

// FixedWindow admits up to limit callers per discrete window.
// A window opens with the first caller after the previous one has elapsed.
type FixedWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	clock  clock.Clock
	start  time.Time
	count  int
}

// FixedWindowOption configures a FixedWindow
type FixedWindowOption func(*FixedWindow)

// WithWindowClock injects a custom Clock
func WithWindowClock(c clock.Clock) FixedWindowOption {
	return func(w *FixedWindow) { w.clock = c }
}

// NewFixedWindow creates a window admitting limit callers per window. limit below 1 is treated as 1.
func NewFixedWindow(limit int, window time.Duration, opts ...FixedWindowOption) *FixedWindow {
	w := &FixedWindow{
		limit:  max(1, limit),
		window: window,
		clock:  clock.SystemClock{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait blocks until the current window has room
func (w *FixedWindow) Wait(ctx context.Context) error {
	for {
		delay, ok := w.tryAcquire()
		if ok {
			return nil
		}
		if err := clock.Sleep(ctx, w.clock, delay); err != nil {
			return err
		}
	}
}

// tryAcquire takes a slot or reports how long until the window resets
func (w *FixedWindow) tryAcquire() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	if w.start.IsZero() || now.Sub(w.start) >= w.window {
		w.start = now
		w.count = 0
	}

	if w.count < w.limit {
		w.count++
		return 0, true
	}
	return w.window - now.Sub(w.start), false
}
