// Package metrics holds the Prometheus collectors shared by the crawler and the web API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brawlstats"

// Label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDropped = "dropped"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheStale = "stale"
	CacheError = "error"
)

var (
	RateLimitWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rate_limit_wait_seconds",
		Help:      "Time spent waiting for rate limiter permits.",
		Buckets:   []float64{0, 0.1, 0.5, 1, 2, 5, 15, 60, 300, 900},
	})

	Retries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retries_total",
		Help:      "Retry attempts scheduled after a retryable failure.",
	}, []string{"policy"})

	CrawlerTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "crawler_tasks_total",
		Help:      "Crawl tasks processed, by crawler and outcome.",
	}, []string{"crawler", "outcome"})

	PlayerFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "crawler_player_fetches_total",
		Help:      "Player detail fetches, by outcome.",
	}, []string{"outcome"})

	Sweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Scheduled sweeps, by scheduler and outcome.",
	}, []string{"scheduler", "outcome"})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of completed sweeps.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"scheduler"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Read-through cache results.",
	}, []string{"result"})

	CacheWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_writes_total",
		Help:      "Background cache writes, by outcome.",
	}, []string{"outcome"})
)

// ObserveRateLimitWait records how long a caller waited for permits
func ObserveRateLimitWait(d time.Duration) {
	RateLimitWait.Observe(d.Seconds())
}

// ObserveSweep records a finished sweep
func ObserveSweep(scheduler, outcome string, d time.Duration) {
	Sweeps.WithLabelValues(scheduler, outcome).Inc()
	if outcome == OutcomeSuccess {
		SweepDuration.WithLabelValues(scheduler).Observe(d.Seconds())
	}
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
