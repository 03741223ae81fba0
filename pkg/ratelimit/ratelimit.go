// Package ratelimit gates outbound calls behind one or more blocking permit sources.
//
// The default limiter mirrors the upstream game API quota: at most one request per second
// and at most 100 requests per 15 minutes. Permits are acquired in gate order, so the
// per-second window is always satisfied before the sustained bucket is consulted.
// Waiting never drops a call; callers only observe added latency or a cancelled context.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/screwyprof/brawlstats/pkg/clock"
	"github.com/screwyprof/brawlstats/pkg/metrics"
)

// Default quota of the upstream API
const (
	DefaultBurstLimit      = 1
	DefaultBurstWindow     = time.Second
	DefaultSustainedLimit  = 100
	DefaultSustainedWindow = 15 * time.Minute
)

var ErrWaitAborted = errors.New("rate limit wait aborted")

// Gate blocks until the caller may proceed
type Gate interface {
	Wait(ctx context.Context) error
}

// Limiter chains gates in a fixed order
type Limiter struct {
	gates []Gate
	clock clock.Clock
}

// New composes gates; they are acquired in the order given
func New(gates ...Gate) *Limiter {
	return &Limiter{gates: gates, clock: clock.SystemClock{}}
}

// NewDefault builds the 1/second fixed window followed by the 100/15 minutes bucket
func NewDefault() *Limiter {
	return New(
		NewFixedWindow(DefaultBurstLimit, DefaultBurstWindow),
		NewTokenBucket(DefaultSustainedLimit, DefaultSustainedWindow),
	)
}

// Wait acquires a permit from every gate
func (l *Limiter) Wait(ctx context.Context) error {
	start := l.clock.Now()
	for _, g := range l.gates {
		if err := g.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrWaitAborted, err)
		}
	}
	metrics.ObserveRateLimitWait(l.clock.Now().Sub(start))
	return nil
}

// Do runs op once g grants a permit
func Do[T any](ctx context.Context, g Gate, op func(context.Context) (T, error)) (T, error) {
	if err := g.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}
