package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/fetchcache/store/memstore"
	"github.com/screwyprof/brawlstats/fetchcache/store/pgxstore"
	"github.com/screwyprof/brawlstats/fetchcache/store/redisstore"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/pkg/logger"
	"github.com/screwyprof/brawlstats/pkg/pgxdb"
	"github.com/screwyprof/brawlstats/scheduler"
	"github.com/screwyprof/brawlstats/web/config"
	"github.com/screwyprof/brawlstats/web/handler"
	"github.com/screwyprof/brawlstats/web/stats"
)

const pruneSchedulerName = "cache-prune"

var ErrUnknownBackend = errors.New("unknown cache backend")

var (
	version = "dev"
	date    = "unknown"
)

// backend is the cache store plus what the process needs to run and stop it
type backend struct {
	store  fetchcache.Store
	pruner fetchcache.Pruner // nil when the store expires entries itself
	checks map[string]handler.Check
	close  func()
}

func main() {
	// Load configuration
	cfg := config.New()

	// Initialize logger
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	defer func() { _ = log.Sync() }()

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Brawlstats Web API Service starting",
		zap.String("version", version),
		zap.String("date", date),
		zap.String("cacheBackend", cfg.CacheBackend),
		zap.Int("cacheVersion", cfg.CacheVersion),
	)

	// Initialize cache store
	be, err := newBackend(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize cache backend", zap.Error(err))
		os.Exit(1)
	}
	defer be.close()

	cache := fetchcache.New(be.store, cfg.CacheVersion,
		fetchcache.WithLogger(log),
		fetchcache.WithTimeout(cfg.UpstreamTimeout),
		fetchcache.WithRetryPolicy(fetchcache.NewRetryPolicy(cfg.UpstreamAttempts, cfg.UpstreamRetry)),
	)

	// Upstream client and stats service
	upstream := brawlhalla.NewClient(&http.Client{}, cfg.BrawlhallaAPIURL, cfg.BrawlhallaAPIKey)
	svc := stats.NewService(upstream, cache,
		stats.WithRankingsMaxAge(cfg.RankingsMaxAge),
		stats.WithPlayerMaxAge(cfg.PlayerMaxAge),
	)

	// Scheduled pruning of superseded and expired entries
	pruneDone := startPruning(ctx, log, cfg, be.pruner, cache.Version())

	// Create HTTP server
	mux := http.NewServeMux()
	handler.NewStats(svc).AddRoutes(mux)
	handler.NewHealth(be.checks).AddRoutes(mux)

	// Strategy first so the access log sees it
	h := handler.NewStrategyMiddleware(cfg.WorkerSecret)(logger.NewMiddleware(log, handler.StrategyFields)(mux))

	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain background cache writes before closing the store
	cache.Close()
	<-pruneDone

	log.Info("Server exited gracefully")
}

func newBackend(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.CacheBackend {
	case config.BackendPostgres:
		db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return backend{}, err
		}
		store := pgxstore.New(db)
		return backend{
			store:  store,
			pruner: store,
			checks: map[string]handler.Check{"postgres": db.Ping},
			close:  db.Close,
		}, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
		if err := ping(ctx); err != nil {
			_ = client.Close()
			return backend{}, fmt.Errorf("connecting to redis: %w", err)
		}
		return backend{
			store:  redisstore.New(client, redisstore.WithTTL(cfg.CacheRetention)),
			checks: map[string]handler.Check{"redis": ping},
			close:  func() { _ = client.Close() },
		}, nil

	case config.BackendMemory:
		store := memstore.New()
		return backend{store: store, pruner: store, close: func() {}}, nil

	default:
		return backend{}, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.CacheBackend)
	}
}

// startPruning runs the pruner on its cron schedule; the returned channel closes once it stopped
func startPruning(ctx context.Context, log *zap.Logger, cfg config.Config, pruner fetchcache.Pruner, version int) <-chan struct{} {
	if pruner == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	schedule, err := cron.ParseStandard(cfg.CachePruneSchedule)
	if err != nil {
		log.Error("Invalid cache prune schedule", zap.String("schedule", cfg.CachePruneSchedule), zap.Error(err))
		os.Exit(1)
	}

	prune := func(ctx context.Context) error {
		removed, err := pruner.Prune(ctx, version, time.Now().Add(-cfg.CacheRetention))
		if err != nil {
			return err
		}
		log.Info("Cache pruned", zap.Int64("removed", removed))
		return nil
	}

	events, done := scheduler.New(pruneSchedulerName, prune, scheduler.WithSchedule(schedule)).Start(ctx)
	subCloser := scheduler.NewSubscriber(events,
		scheduler.OnSweepFailed(func(event scheduler.SweepFailed) {
			log.Error("Cache prune failed", zap.String("scheduler", event.Scheduler), zap.Error(event.Err))
		}),
		scheduler.OnSweepScheduled(func(event scheduler.SweepScheduled) {
			log.Debug("Next cache prune scheduled", zap.String("at", event.At.Format(logger.BritishTimeFormat)))
		}),
	)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		defer subCloser()
		<-done
	}()
	return stopped
}
