// Package retry re-runs failing operations with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/screwyprof/brawlstats/pkg/clock"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
	"github.com/screwyprof/brawlstats/pkg/metrics"
)

// Default rate-limit backoff: 5s, 10s, 20s
const (
	DefaultBaseDelay  = 5 * time.Second
	DefaultMultiplier = 2.0
	DefaultMaxRetries = 3
)

var ErrAborted = errors.New("retry aborted")

// Classifier reports whether err is worth another attempt
type Classifier func(err error) bool

// IsRateLimited retries only failures carrying HTTP 429
func IsRateLimited(err error) bool {
	return httpkit.HasStatus(err, http.StatusTooManyRequests)
}

// Notify observes a scheduled retry before the backoff starts
type Notify func(err error, attempt int, delay time.Duration)

// Option configures a Policy
type Option func(*Policy)

// WithBaseDelay sets the delay before the first retry
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) { p.baseDelay = d }
}

// WithMultiplier sets the backoff growth factor
func WithMultiplier(m float64) Option {
	return func(p *Policy) { p.multiplier = m }
}

// WithMaxRetries sets how many retries follow the initial attempt
func WithMaxRetries(n int) Option {
	return func(p *Policy) { p.maxRetries = max(0, n) }
}

// WithClassifier sets the retryable predicate
func WithClassifier(c Classifier) Option {
	return func(p *Policy) { p.retryable = c }
}

// WithClock injects a custom Clock
func WithClock(c clock.Clock) Option {
	return func(p *Policy) { p.clock = c }
}

// WithNotify registers a hook called before every backoff
func WithNotify(fn Notify) Option {
	return func(p *Policy) { p.notify = fn }
}

// WithName labels the policy in metrics
func WithName(name string) Option {
	return func(p *Policy) { p.name = name }
}

// Policy is an immutable retry schedule
type Policy struct {
	name       string
	baseDelay  time.Duration
	multiplier float64
	maxRetries int
	retryable  Classifier
	clock      clock.Clock
	notify     Notify
}

// New builds a policy that by default retries 429 failures three times starting at 5s
func New(opts ...Option) *Policy {
	p := &Policy{
		name:       "rate_limit",
		baseDelay:  DefaultBaseDelay,
		multiplier: DefaultMultiplier,
		maxRetries: DefaultMaxRetries,
		retryable:  IsRateLimited,
		clock:      clock.SystemClock{},
		notify:     func(error, int, time.Duration) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxRetries returns the number of retries after the initial attempt
func (p *Policy) MaxRetries() int {
	return p.maxRetries
}

// Delay returns the backoff before retry number attempt, counting from 0
func (p *Policy) Delay(attempt int) time.Duration {
	b := p.exponential()
	d := b.NextBackOff()
	for range max(0, attempt) {
		d = b.NextBackOff()
	}
	return d
}

// ShouldRetry reports whether a failure on retry number attempt gets another try
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	return err != nil && attempt < p.maxRetries && p.retryable(err)
}

// exponential builds a fresh jitter-free schedule that saturates instead of overflowing
func (p *Policy) exponential() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          p.multiplier,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               p.clock,
	}
	b.Reset()
	return b
}

// Do runs op until it succeeds, the error is not retryable or retries run out.
// The last error is returned unchanged; a cancelled backoff returns ErrAborted.
func Do[T any](ctx context.Context, p *Policy, op func(context.Context) (T, error)) (T, error) {
	schedule := backoff.WithMaxRetries(p.exponential(), uint64(p.maxRetries))
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil || ctx.Err() != nil || !p.ShouldRetry(err, attempt) {
			return v, err
		}

		delay := schedule.NextBackOff()
		if delay == backoff.Stop {
			return v, err
		}
		p.notify(err, attempt+1, delay)
		metrics.Retries.WithLabelValues(p.name).Inc()

		if serr := clock.Sleep(ctx, p.clock, delay); serr != nil {
			var zero T
			return zero, fmt.Errorf("%w: %w (last error: %v)", ErrAborted, serr, err)
		}
	}
}
