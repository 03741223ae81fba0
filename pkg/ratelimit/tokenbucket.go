package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/screwyprof/brawlstats/pkg/clock"
)

// TokenBucket holds up to capacity tokens refilled continuously over window.
// The bucket starts full.
type TokenBucket struct {
	limiter *rate.Limiter
	clock   clock.Clock
}

// TokenBucketOption configures a TokenBucket
type TokenBucketOption func(*TokenBucket)

// WithBucketClock injects a custom Clock
func WithBucketClock(c clock.Clock) TokenBucketOption {
	return func(b *TokenBucket) { b.clock = c }
}

// NewTokenBucket creates a bucket refilling capacity tokens per window. capacity below 1 is treated as 1.
func NewTokenBucket(capacity int, window time.Duration, opts ...TokenBucketOption) *TokenBucket {
	capacity = max(1, capacity)
	b := &TokenBucket{
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(capacity)), capacity),
		clock:   clock.SystemClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wait reserves a token and sleeps until it becomes available.
// The reservation is returned to the bucket when ctx is cancelled.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := b.clock.Now()
	r := b.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)

	if err := clock.Sleep(ctx, b.clock, delay); err != nil {
		r.CancelAt(b.clock.Now())
		return err
	}
	return nil
}
