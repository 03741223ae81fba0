package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/pkg/clock"
	"github.com/screwyprof/brawlstats/pkg/metrics"
	"github.com/screwyprof/brawlstats/pkg/ratelimit"
	"github.com/screwyprof/brawlstats/pkg/retry"
	"github.com/screwyprof/brawlstats/pkg/statsclient"
)

// Crawler names used in logs and metrics
const (
	LeaderboardName = "leaderboard"
	RankingsName    = "rankings"
)

// Client fetches pages and players from the internal API
// --------------------------------------------------------
type Client interface {
	GetRankings(ctx context.Context, rankingType brawlhalla.RankingType, region brawlhalla.Region, page int) (statsclient.RankingsResponse, error)
	GetPlayerByID(ctx context.Context, id int) (statsclient.PlayerResponse, error)
}

// Limiter blocks until the next outbound call may start
type Limiter interface {
	Wait(ctx context.Context) error
}

// Summary reports what one sweep did
type Summary struct {
	SweepID        string
	Tasks          int
	Succeeded      int
	Failed         int
	PlayersFetched int
	PlayersFailed  int
	PlayersSkipped int
	Duration       time.Duration
}

// Option configures a crawler
// ------------------------------------------------
type Option func(*base)

// WithLogger sets the logger
func WithLogger(log *zap.Logger) Option {
	return func(b *base) { b.log = log }
}

// WithTaskOptions sets the provider consulted at the start of every sweep
func WithTaskOptions(fn func() TaskOptions) Option {
	return func(b *base) { b.taskOptions = fn }
}

// WithClock injects a custom Clock
func WithClock(c clock.Clock) Option {
	return func(b *base) { b.clock = c }
}

// base holds what both crawlers share: every call goes through the limiter and the retry policy
type base struct {
	name        string
	api         Client
	limiter     Limiter
	retry       *retry.Policy
	log         *zap.Logger
	clock       clock.Clock
	taskOptions func() TaskOptions
}

func newBase(name string, api Client, limiter Limiter, policy *retry.Policy, opts []Option) base {
	b := base{
		name:        name,
		api:         api,
		limiter:     limiter,
		retry:       policy,
		log:         zap.NewNop(),
		clock:       clock.SystemClock{},
		taskOptions: func() TaskOptions { return TaskOptions{} },
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.log = b.log.With(zap.String("crawler", name))
	return b
}

// begin generates the sweep's tasks and a logger tagged with a fresh sweep id
func (b *base) begin() (Summary, []Task, *zap.Logger) {
	id := newSweepID()
	tasks := GenerateTasks(b.taskOptions())
	log := b.log.With(zap.String("sweep_id", id))
	log.Info("Sweep started", zap.Int("tasks", len(tasks)))
	return Summary{SweepID: id, Tasks: len(tasks)}, tasks, log
}

func (b *base) finish(log *zap.Logger, summary *Summary, start time.Time) {
	summary.Duration = b.clock.Now().Sub(start)
	log.Info("Sweep completed",
		zap.Int("tasks", summary.Tasks),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("playersFetched", summary.PlayersFetched),
		zap.Int("playersFailed", summary.PlayersFailed),
		zap.Int("playersSkipped", summary.PlayersSkipped),
		zap.Duration("duration", summary.Duration),
	)
}

// fetchPage returns the page's rows, or false when the task must be skipped
func (b *base) fetchPage(ctx context.Context, log *zap.Logger, task Task) (brawlhalla.Rankings, bool) {
	fields := []zap.Field{
		zap.String("region", string(task.Region)),
		zap.String("type", string(task.Type)),
		zap.Int("page", task.Page),
	}
	log.Debug("Fetching rankings page", fields...)

	resp, err := limited(ctx, b, func(ctx context.Context) (statsclient.RankingsResponse, error) {
		return b.api.GetRankings(ctx, task.Type, task.Region, task.Page)
	})
	if err != nil {
		metrics.CrawlerTasks.WithLabelValues(b.name, metrics.OutcomeFailure).Inc()
		if ctx.Err() == nil {
			log.Warn("Skipping task", append(fields, zap.String("task", task.String()), zap.String("error", err.Error()))...)
		}
		return nil, false
	}

	metrics.CrawlerTasks.WithLabelValues(b.name, metrics.OutcomeSuccess).Inc()
	log.Info("Fetched rankings page", append(fields, zap.Int("rows", len(resp.Data)), zap.Bool("cached", resp.Cached))...)
	return resp.Data, true
}

// limited runs op behind the limiter, retrying per policy; each retry waits for a new permit
func limited[T any](ctx context.Context, b *base, op func(context.Context) (T, error)) (T, error) {
	return retry.Do(ctx, b.retry, func(ctx context.Context) (T, error) {
		return ratelimit.Do(ctx, b.limiter, op)
	})
}

func newSweepID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
