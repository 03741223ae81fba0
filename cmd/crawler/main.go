package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/screwyprof/brawlstats/crawler"
	"github.com/screwyprof/brawlstats/crawler/config"
	"github.com/screwyprof/brawlstats/pkg/logger"
	"github.com/screwyprof/brawlstats/pkg/metrics"
	"github.com/screwyprof/brawlstats/pkg/ratelimit"
	"github.com/screwyprof/brawlstats/pkg/retry"
	"github.com/screwyprof/brawlstats/pkg/statsclient"
	"github.com/screwyprof/brawlstats/scheduler"
)

// These values are overridden at build time using -ldflags
var (
	version = "dev"
	date    = "unknown"
)

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

	log.Info("Brawlstats crawler starting",
		zap.String("version", version),
		zap.String("date", date),
	)

	// One limiter and one policy shared by both crawlers
	limiter := ratelimit.New(
		ratelimit.NewFixedWindow(cfg.BurstLimit, cfg.BurstWindow),
		ratelimit.NewTokenBucket(cfg.SustainedLimit, cfg.SustainedWindow),
	)
	policy := retry.New(
		retry.WithName("crawler"),
		retry.WithBaseDelay(cfg.RetryBaseDelay),
		retry.WithMaxRetries(cfg.RetryMaxRetries),
		retry.WithNotify(func(err error, attempt int, delay time.Duration) {
			log.Info("Rate limited, backing off",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
		}),
	)

	httpClient := &http.Client{Timeout: cfg.HttpClientTimeout}
	client := statsclient.NewClient(httpClient, cfg.APIURL, cfg.WorkerSecret)

	var schedulers []*scheduler.Scheduler
	if cfg.LeaderboardEnabled {
		lb := crawler.NewLeaderboard(client, limiter, policy,
			crawler.WithLogger(log),
			crawler.WithTaskOptions(taskOptions(log, cfg, config.Config.LeaderboardTasks)),
		)
		schedulers = append(schedulers, scheduler.New(crawler.LeaderboardName, sweepFunc(lb.Sweep),
			scheduler.WithInterval(cfg.LeaderboardInterval)))
	}
	if cfg.RankingsEnabled {
		rk := crawler.NewRankings(client, limiter, policy,
			crawler.WithLogger(log),
			crawler.WithTaskOptions(taskOptions(log, cfg, config.Config.RankingsTasks)),
		)
		schedulers = append(schedulers, scheduler.New(crawler.RankingsName, sweepFunc(rk.Sweep),
			scheduler.WithInterval(cfg.RankingsInterval)))
	}
	if len(schedulers) == 0 {
		log.Error("No crawler enabled")
		os.Exit(1)
	}

	// Metrics endpoint
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler()}
	go func() {
		log.Info("Metrics server started", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Start schedulers and wait for all of them to stop
	var wg sync.WaitGroup
	for _, s := range schedulers {
		events, done := s.Start(ctx)
		subCloser := setupEventLogging(events, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer subCloser()
			<-done
		}()
	}
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server forced to shutdown", zap.Error(err))
	}

	log.Info("Crawler stopped gracefully")
}

// taskOptions re-reads the environment at every sweep, keeping the last valid options
func taskOptions(log *zap.Logger, initial config.Config, build func(config.Config) (crawler.TaskOptions, error)) func() crawler.TaskOptions {
	last, err := build(initial)
	if err != nil {
		log.Error("Invalid crawl task options", zap.Error(err))
		os.Exit(1)
	}

	var mu sync.Mutex
	return func() crawler.TaskOptions {
		mu.Lock()
		defer mu.Unlock()

		cfg, err := config.Load()
		if err == nil {
			var opts crawler.TaskOptions
			if opts, err = build(cfg); err == nil {
				last = opts
				return last
			}
		}
		log.Warn("Keeping previous crawl task options", zap.Error(err))
		return last
	}
}

func sweepFunc(sweep func(context.Context) (crawler.Summary, error)) scheduler.SweepFunc {
	return func(ctx context.Context) error {
		_, err := sweep(ctx)
		return err
	}
}

// setupEventLogging configures event handlers using zap directly
func setupEventLogging(events <-chan scheduler.Event, log *zap.Logger) func() {
	return scheduler.NewSubscriber(events,
		scheduler.OnSweepStarted(func(event scheduler.SweepStarted) {
			log.Info("Sweep started",
				zap.String("scheduler", event.Scheduler),
				zap.Int("run", event.Run),
				zap.String("startedAt", event.StartedAt.Format(logger.BritishTimeFormat)),
			)
		}),
		scheduler.OnSweepCompleted(func(event scheduler.SweepCompleted) {
			log.Info("Sweep completed",
				zap.String("scheduler", event.Scheduler),
				zap.Int("run", event.Run),
				zap.Duration("duration", event.Duration),
			)
		}),
		scheduler.OnSweepFailed(func(event scheduler.SweepFailed) {
			log.Error("Sweep failed",
				zap.String("scheduler", event.Scheduler),
				zap.Int("run", event.Run),
				zap.Duration("duration", event.Duration),
				zap.Error(event.Err),
			)
		}),
		scheduler.OnSweepScheduled(func(event scheduler.SweepScheduled) {
			log.Info("Next sweep scheduled",
				zap.String("scheduler", event.Scheduler),
				zap.String("at", event.At.Format(logger.BritishTimeFormat)),
				zap.Duration("wait", event.Wait),
			)
		}),
		scheduler.OnSchedulerStopped(func(event scheduler.SchedulerStopped) {
			log.Info("Scheduler stopped",
				zap.String("scheduler", event.Scheduler),
				zap.Int("runs", event.Runs),
				zap.Error(event.Reason),
			)
		}),
	)
}
