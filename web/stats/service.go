// Package stats serves game statistics through the read-through cache.
package stats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
)

// Default cache ages per call site
const (
	DefaultRankingsMaxAge = 15 * time.Minute
	DefaultPlayerMaxAge   = time.Hour
)

// Upstream is the live game API
type Upstream interface {
	GetRankings(ctx context.Context, rankingType brawlhalla.RankingType, region brawlhalla.Region, page int) (brawlhalla.Rankings, error)
	GetPlayerStats(ctx context.Context, id int) (brawlhalla.PlayerStats, error)
	GetPlayerRanked(ctx context.Context, id int) (brawlhalla.PlayerRanked, error)
}

// RankingsKey names the cache entry of one leaderboard page
func RankingsKey(rankingType brawlhalla.RankingType, region brawlhalla.Region, page int) string {
	return fmt.Sprintf("rankings-%s-%s-%d", rankingType, region, page)
}

// PlayerStatsKey names the cache entry of a player's lifetime stats
func PlayerStatsKey(id int) string {
	return fmt.Sprintf("player-stats-%d", id)
}

// PlayerRankedKey names the cache entry of a player's ranked season
func PlayerRankedKey(id int) string {
	return fmt.Sprintf("player-ranked-%d", id)
}

// Option configures the Service
type Option func(*Service)

// WithRankingsMaxAge sets how long a leaderboard page is served from cache
func WithRankingsMaxAge(d time.Duration) Option {
	return func(s *Service) { s.rankingsMaxAge = d }
}

// WithPlayerMaxAge sets how long player payloads are served from cache
func WithPlayerMaxAge(d time.Duration) Option {
	return func(s *Service) { s.playerMaxAge = d }
}

// Service answers stats queries, revalidating through the cache on every call
type Service struct {
	upstream       Upstream
	cache          *fetchcache.Cache
	rankingsMaxAge time.Duration
	playerMaxAge   time.Duration
}

func NewService(upstream Upstream, cache *fetchcache.Cache, opts ...Option) *Service {
	s := &Service{
		upstream:       upstream,
		cache:          cache,
		rankingsMaxAge: DefaultRankingsMaxAge,
		playerMaxAge:   DefaultPlayerMaxAge,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rankings returns one leaderboard page
func (s *Service) Rankings(ctx context.Context, rankingType brawlhalla.RankingType, region brawlhalla.Region, page int) (fetchcache.Result[brawlhalla.Rankings], error) {
	key := fetchcache.Key{Name: RankingsKey(rankingType, region, page), MaxAge: s.rankingsMaxAge}
	res, err := fetchcache.FetchOrRevalidate(ctx, s.cache, key, func(ctx context.Context) (brawlhalla.Rankings, error) {
		return s.upstream.GetRankings(ctx, rankingType, region, page)
	})
	if err != nil {
		return res, err
	}
	if res.Data == nil {
		res.Data = brawlhalla.Rankings{}
	}
	return res, nil
}

// Player returns a player's stats and ranked season, fetched concurrently.
// The result is as old as its older half and counts as cached only when both halves were.
func (s *Service) Player(ctx context.Context, id int) (fetchcache.Result[brawlhalla.Player], error) {
	var (
		statsRes  fetchcache.Result[brawlhalla.PlayerStats]
		rankedRes fetchcache.Result[brawlhalla.PlayerRanked]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		key := fetchcache.Key{Name: PlayerStatsKey(id), MaxAge: s.playerMaxAge}
		statsRes, err = fetchcache.FetchOrRevalidate(gctx, s.cache, key, func(ctx context.Context) (brawlhalla.PlayerStats, error) {
			return s.upstream.GetPlayerStats(ctx, id)
		})
		return err
	})
	g.Go(func() (err error) {
		key := fetchcache.Key{Name: PlayerRankedKey(id), MaxAge: s.playerMaxAge}
		rankedRes, err = fetchcache.FetchOrRevalidate(gctx, s.cache, key, func(ctx context.Context) (brawlhalla.PlayerRanked, error) {
			return s.upstream.GetPlayerRanked(ctx, id)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return fetchcache.Result[brawlhalla.Player]{}, err
	}

	updatedAt := statsRes.UpdatedAt
	if rankedRes.UpdatedAt.Before(updatedAt) {
		updatedAt = rankedRes.UpdatedAt
	}

	return fetchcache.Result[brawlhalla.Player]{
		Data:      brawlhalla.Player{Stats: statsRes.Data, Ranked: rankedRes.Data},
		UpdatedAt: updatedAt,
		Cached:    statsRes.Cached && rankedRes.Cached,
	}, nil
}
