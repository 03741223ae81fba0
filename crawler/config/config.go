package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/screwyprof/brawlstats/crawler"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
)

var ErrInvalidTaskOptions = errors.New("invalid crawl task options")

// Config holds all configuration loaded from environment variables
type Config struct {
	APIURL            string        `env:"CRAWLER_API_URL" envDefault:"http://localhost:8080"`
	WorkerSecret      string        `env:"CRAWLER_WORKER_SECRET,required,notEmpty"`
	// Must outlast the API's worst-case upstream miss (3 attempts of 10s plus 1s and 2s backoff)
	// so the API can still answer from stale cache
	HttpClientTimeout time.Duration `env:"CRAWLER_HTTP_CLIENT_TIMEOUT" envDefault:"45s"`

	LeaderboardEnabled  bool          `env:"CRAWLER_LEADERBOARD_ENABLED" envDefault:"true"`
	LeaderboardInterval time.Duration `env:"CRAWLER_LEADERBOARD_INTERVAL" envDefault:"1h"`
	LeaderboardTypes    []string      `env:"CRAWLER_LEADERBOARD_TYPES" envSeparator:"," envDefault:"1v1,2v2,rotating"`

	RankingsEnabled  bool          `env:"CRAWLER_RANKINGS_ENABLED" envDefault:"true"`
	RankingsInterval time.Duration `env:"CRAWLER_RANKINGS_INTERVAL" envDefault:"6h"`
	RankingsTypes    []string      `env:"CRAWLER_RANKINGS_TYPES" envSeparator:"," envDefault:"1v1,2v2"`

	// Regions and page counts are shared by both crawlers; unset page counts use the built-in table
	Regions    []string       `env:"CRAWLER_REGIONS" envSeparator:"," envDefault:"us-e,eu,sea,brz,aus,us-w,jpn,sa,me"`
	PageCounts map[string]int `env:"CRAWLER_PAGE_COUNTS" envSeparator:"," envKeyValSeparator:":"`

	BurstLimit      int           `env:"CRAWLER_BURST_LIMIT" envDefault:"1"`
	BurstWindow     time.Duration `env:"CRAWLER_BURST_WINDOW" envDefault:"1s"`
	SustainedLimit  int           `env:"CRAWLER_SUSTAINED_LIMIT" envDefault:"100"`
	SustainedWindow time.Duration `env:"CRAWLER_SUSTAINED_WINDOW" envDefault:"15m"`

	RetryBaseDelay  time.Duration `env:"CRAWLER_RETRY_BASE_DELAY" envDefault:"5s"`
	RetryMaxRetries int           `env:"CRAWLER_RETRY_MAX" envDefault:"3"`

	MetricsAddr      string `env:"CRAWLER_METRICS_ADDR" envDefault:":9090"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogHumanFriendly bool   `env:"LOG_HUMAN_FRIENDLY" envDefault:"false"`
}

// Load parses the environment
func Load() (Config, error) {
	var cfg Config
	err := env.Parse(&cfg)
	return cfg, err
}

// New loads all configuration from environment variables
func New() Config {
	return env.Must(Load())
}

// LeaderboardTasks builds the leaderboard crawler's task options
func (c Config) LeaderboardTasks() (crawler.TaskOptions, error) {
	return c.taskOptions(c.LeaderboardTypes)
}

// RankingsTasks builds the rankings crawler's task options
func (c Config) RankingsTasks() (crawler.TaskOptions, error) {
	return c.taskOptions(c.RankingsTypes)
}

func (c Config) taskOptions(types []string) (crawler.TaskOptions, error) {
	opts := crawler.TaskOptions{
		Types:   make([]brawlhalla.RankingType, 0, len(types)),
		Regions: make([]brawlhalla.Region, 0, len(c.Regions)),
	}

	for _, s := range types {
		rt, err := brawlhalla.ParseRankingType(s)
		if err != nil {
			return crawler.TaskOptions{}, fmt.Errorf("%w: %w", ErrInvalidTaskOptions, err)
		}
		opts.Types = append(opts.Types, rt)
	}

	for _, s := range c.Regions {
		region, err := brawlhalla.ParseRegion(s)
		if err != nil {
			return crawler.TaskOptions{}, fmt.Errorf("%w: %w", ErrInvalidTaskOptions, err)
		}
		opts.Regions = append(opts.Regions, region)
	}

	if len(c.PageCounts) > 0 {
		opts.PageCounts = make(map[brawlhalla.Region]int, len(c.PageCounts))
		for s, n := range c.PageCounts {
			region, err := brawlhalla.ParseRegion(s)
			if err != nil {
				return crawler.TaskOptions{}, fmt.Errorf("%w: %w", ErrInvalidTaskOptions, err)
			}
			opts.PageCounts[region] = max(0, n)
		}
	}

	return opts, nil
}
