// Package fetchcache implements a read-through cache with stale-on-error fallback.
//
// A lookup returns the newest entry for a name and the configured version when it is
// younger than the key's max age. Otherwise the live fetch runs with a per-attempt timeout
// and a bounded retry for transient failures. Successful results are written back in the
// background; if the live fetch fails, any older entry is served instead of the error.
package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/screwyprof/brawlstats/pkg/clock"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
	"github.com/screwyprof/brawlstats/pkg/metrics"
	"github.com/screwyprof/brawlstats/pkg/retry"
)

// Default live fetch settings
const (
	DefaultTimeout          = 10 * time.Second
	DefaultAttempts         = 3
	DefaultRetryBaseDelay   = time.Second
	DefaultMaxPendingWrites = 64
	DefaultWriteTimeout     = 5 * time.Second
)

// Key names a cached payload and how old it may be before it is revalidated
type Key struct {
	Name   string
	MaxAge time.Duration
}

// Result is the payload plus when it was obtained; Cached reports it came from the store
type Result[T any] struct {
	Data      T
	UpdatedAt time.Time
	Cached    bool
}

// IsTransient classifies failures the live fetch retries.
// Rate limiting is left to the caller's own policy; bad payloads never improve on retry.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, httpkit.ErrDecode), errors.Is(err, ErrInvalidPayload):
		return false
	case httpkit.HasStatus(err, http.StatusTooManyRequests):
		return false
	default:
		return true
	}
}

// NewRetryPolicy builds the live fetch policy: attempts in total, backoff doubling from base
func NewRetryPolicy(attempts int, base time.Duration, opts ...retry.Option) *retry.Policy {
	defaults := []retry.Option{
		retry.WithName("upstream"),
		retry.WithBaseDelay(base),
		retry.WithMaxRetries(max(0, attempts-1)),
		retry.WithClassifier(IsTransient),
	}
	return retry.New(append(defaults, opts...)...)
}

// Option configures the Cache
// ------------------------------------------------
type Option func(*Cache)

// WithClock injects a custom Clock
func WithClock(c clock.Clock) Option {
	return func(cc *Cache) { cc.clock = c }
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithTimeout bounds every live fetch attempt
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithRetryPolicy replaces the live fetch retry policy
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *Cache) { c.retry = p }
}

// WithMaxPendingWrites caps background writes in flight; writes beyond the cap are dropped.
// n below 1 is treated as 1.
func WithMaxPendingWrites(n int) Option {
	return func(c *Cache) { c.maxPendingWrites = max(1, n) }
}

// WithWriteTimeout bounds a single background write
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Cache) { c.writeTimeout = d }
}

// Cache reads through to live fetches
// -----------------------------------
type Cache struct {
	store            Store
	version          int
	clock            clock.Clock
	log              *zap.Logger
	timeout          time.Duration
	retry            *retry.Policy
	maxPendingWrites int
	writeTimeout     time.Duration
	writes           errgroup.Group
}

// New constructs a Cache over store; entries written with another version are never selected
func New(store Store, version int, opts ...Option) *Cache {
	c := &Cache{
		store:            store,
		version:          version,
		clock:            clock.SystemClock{},
		log:              zap.NewNop(),
		timeout:          DefaultTimeout,
		maxPendingWrites: DefaultMaxPendingWrites,
		writeTimeout:     DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry == nil {
		c.retry = NewRetryPolicy(DefaultAttempts, DefaultRetryBaseDelay, retry.WithClock(c.clock))
	}
	c.writes.SetLimit(c.maxPendingWrites)
	return c
}

// Version returns the cache schema version
func (c *Cache) Version() int {
	return c.version
}

// Close waits for background writes to finish
func (c *Cache) Close() {
	_ = c.writes.Wait()
}

// FetchOrRevalidate returns cached data for key when fresh and otherwise calls live.
// The strategy on ctx decides whether the cache is read first.
func FetchOrRevalidate[T any](ctx context.Context, c *Cache, key Key, live func(context.Context) (T, error)) (Result[T], error) {
	strategy := StrategyFromContext(ctx)
	log := c.log.With(zap.String("cache_name", key.Name), zap.Stringer("strategy", strategy))

	var stale *Entry
	if strategy == CacheFirst {
		entry, found := c.lookup(ctx, log, key.Name)
		if found {
			if !c.isFresh(entry, key.MaxAge) {
				stale = &entry
			} else if v, err := decode[T](entry.Data); err != nil {
				log.Warn("Ignoring undecodable cache entry", zap.String("cache_id", entry.ID), zap.Error(err))
			} else {
				metrics.CacheLookups.WithLabelValues(metrics.CacheHit).Inc()
				log.Debug("Cache hit", zap.Time("created_at", entry.CreatedAt))
				return Result[T]{Data: v, UpdatedAt: entry.CreatedAt, Cached: true}, nil
			}
		}
		metrics.CacheLookups.WithLabelValues(metrics.CacheMiss).Inc()
	}

	v, err := fetchLive(ctx, c, live)
	if err == nil {
		now := c.clock.Now()
		c.write(ctx, log, key.Name, v, now)
		return Result[T]{Data: v, UpdatedAt: now, Cached: false}, nil
	}

	if strategy == FetchFirst {
		if entry, found := c.lookup(ctx, log, key.Name); found {
			stale = &entry
		}
	}

	if stale != nil {
		if sv, derr := decode[T](stale.Data); derr == nil {
			metrics.CacheLookups.WithLabelValues(metrics.CacheStale).Inc()
			log.Warn("Serving stale cache entry", zap.Time("created_at", stale.CreatedAt), zap.Error(err))
			return Result[T]{Data: sv, UpdatedAt: stale.CreatedAt, Cached: true}, nil
		}
	}

	var zero Result[T]
	return zero, err
}

// lookup reports whether an entry exists; store failures count as a miss
func (c *Cache) lookup(ctx context.Context, log *zap.Logger, name string) (Entry, bool) {
	entry, err := c.store.Latest(ctx, name, c.version)
	switch {
	case err == nil:
		return entry, true
	case errors.Is(err, ErrNotFound):
		return Entry{}, false
	default:
		metrics.CacheLookups.WithLabelValues(metrics.CacheError).Inc()
		log.Warn("Cache lookup failed", zap.Error(err))
		return Entry{}, false
	}
}

func (c *Cache) isFresh(entry Entry, maxAge time.Duration) bool {
	return c.clock.Now().Sub(entry.CreatedAt) <= maxAge
}

func fetchLive[T any](ctx context.Context, c *Cache, live func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, c.retry, func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		v, err := live(ctx)
		if err != nil {
			return v, err
		}
		return v, validate(v)
	})
}

// write persists v in the background. The write outlives the request that triggered it
// and its failure is only logged.
func (c *Cache) write(ctx context.Context, log *zap.Logger, name string, v any, now time.Time) {
	data, err := json.Marshal(v)
	if err != nil {
		metrics.CacheWrites.WithLabelValues(metrics.OutcomeFailure).Inc()
		log.Warn("Cache write skipped", zap.Error(err))
		return
	}

	entry := Entry{
		ID:        CacheID(name, now),
		Name:      name,
		Data:      data,
		CreatedAt: now,
		Version:   c.version,
	}

	detached := context.WithoutCancel(ctx)
	started := c.writes.TryGo(func() error {
		wctx, cancel := context.WithTimeout(detached, c.writeTimeout)
		defer cancel()

		if err := c.store.Insert(wctx, entry); err != nil {
			metrics.CacheWrites.WithLabelValues(metrics.OutcomeFailure).Inc()
			log.Warn(ErrCacheWrite.Error(), zap.String("cache_id", entry.ID), zap.Error(err))
			return nil
		}
		metrics.CacheWrites.WithLabelValues(metrics.OutcomeSuccess).Inc()
		return nil
	})
	if !started {
		metrics.CacheWrites.WithLabelValues(metrics.OutcomeDropped).Inc()
		log.Warn("Cache write dropped", zap.String("cache_id", entry.ID))
	}
}
