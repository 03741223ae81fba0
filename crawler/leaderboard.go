package crawler

import (
	"context"

	"github.com/screwyprof/brawlstats/pkg/retry"
)

// Leaderboard walks every leaderboard page once per sweep, one page at a time.
// Fetching through the API keeps its cache warm.
type Leaderboard struct {
	base
}

// NewLeaderboard constructs a Leaderboard crawler
func NewLeaderboard(api Client, limiter Limiter, policy *retry.Policy, opts ...Option) *Leaderboard {
	return &Leaderboard{base: newBase(LeaderboardName, api, limiter, policy, opts)}
}

// Sweep processes every task. Failed tasks are logged and skipped;
// only cancellation ends a sweep early.
func (c *Leaderboard) Sweep(ctx context.Context) (Summary, error) {
	start := c.clock.Now()
	summary, tasks, log := c.begin()

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if _, ok := c.fetchPage(ctx, log, task); ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	c.finish(log, &summary, start)
	return summary, nil
}
