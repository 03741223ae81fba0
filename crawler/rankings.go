package crawler

import (
	"context"

	"go.uber.org/zap"

	"github.com/screwyprof/brawlstats/pkg/metrics"
	"github.com/screwyprof/brawlstats/pkg/retry"
	"github.com/screwyprof/brawlstats/pkg/statsclient"
)

// Rankings walks the leaderboards and fetches the detail of every player found,
// each player at most once per sweep.
type Rankings struct {
	base
}

// NewRankings constructs a Rankings crawler
func NewRankings(api Client, limiter Limiter, policy *retry.Policy, opts ...Option) *Rankings {
	return &Rankings{base: newBase(RankingsName, api, limiter, policy, opts)}
}

// Sweep processes every task and its players sequentially
func (c *Rankings) Sweep(ctx context.Context) (Summary, error) {
	start := c.clock.Now()
	summary, tasks, log := c.begin()
	processed := NewProcessedPlayerSet()

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		page, ok := c.fetchPage(ctx, log, task)
		if !ok {
			summary.Failed++
			continue
		}
		summary.Succeeded++

		ids := page.PlayerIDs()
		fresh := processed.AddNew(ids)
		summary.PlayersSkipped += len(ids) - len(fresh)

		for _, id := range fresh {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			if player := c.fetchPlayer(ctx, log, id); player != nil {
				summary.PlayersFetched++
			} else {
				summary.PlayersFailed++
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	c.finish(log, &summary, start)
	return summary, nil
}

// fetchPlayer returns nil when the player could not be fetched
func (c *Rankings) fetchPlayer(ctx context.Context, log *zap.Logger, id int) *statsclient.Player {
	log.Debug("Fetching player", zap.Int("player_id", id))

	resp, err := limited(ctx, &c.base, func(ctx context.Context) (statsclient.PlayerResponse, error) {
		return c.api.GetPlayerByID(ctx, id)
	})
	if err != nil {
		metrics.PlayerFetches.WithLabelValues(metrics.OutcomeFailure).Inc()
		if ctx.Err() == nil {
			log.Warn("Skipping player", zap.Int("player_id", id), zap.String("error", err.Error()))
		}
		return nil
	}

	metrics.PlayerFetches.WithLabelValues(metrics.OutcomeSuccess).Inc()
	log.Info("Fetched player", zap.Int("player_id", id), zap.Bool("cached", resp.Cached))
	return &resp.Data
}
