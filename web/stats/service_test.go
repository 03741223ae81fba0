package stats_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/fetchcache/store/memstore"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
	"github.com/screwyprof/brawlstats/web/stats"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type mockUpstream struct {
	mock.Mock
}

func (m *mockUpstream) GetRankings(_ context.Context, rt brawlhalla.RankingType, region brawlhalla.Region, page int) (brawlhalla.Rankings, error) {
	args := m.Called(rt, region, page)
	return args.Get(0).(brawlhalla.Rankings), args.Error(1)
}

func (m *mockUpstream) GetPlayerStats(_ context.Context, id int) (brawlhalla.PlayerStats, error) {
	args := m.Called(id)
	return args.Get(0).(brawlhalla.PlayerStats), args.Error(1)
}

func (m *mockUpstream) GetPlayerRanked(_ context.Context, id int) (brawlhalla.PlayerRanked, error) {
	args := m.Called(id)
	return args.Get(0).(brawlhalla.PlayerRanked), args.Error(1)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (c fixedClock) Now() time.Time                        { return c.now }

func TestServiceRankings(t *testing.T) {
	t.Parallel()

	t.Run("it caches a page under its type, region and page", func(t *testing.T) {
		t.Parallel()

		// Arrange
		upstream := &mockUpstream{}
		page := brawlhalla.Rankings{{Rank: 1, BrawlhallaID: 7}}
		upstream.On("GetRankings", brawlhalla.OneVsOne, brawlhalla.Europe, 2).Return(page, nil).Once()
		store := memstore.New()
		cache := newCache(store)
		svc := stats.NewService(upstream, cache)

		// Act
		first, err := svc.Rankings(t.Context(), brawlhalla.OneVsOne, brawlhalla.Europe, 2)
		require.NoError(t, err)
		cache.Close()
		second, err := svc.Rankings(t.Context(), brawlhalla.OneVsOne, brawlhalla.Europe, 2)

		// Assert
		require.NoError(t, err)
		assert.False(t, first.Cached)
		assert.True(t, second.Cached)
		assert.Equal(t, page, second.Data)
		_, err = store.Latest(t.Context(), "rankings-1v1-eu-2", 1)
		assert.NoError(t, err)
		upstream.AssertExpectations(t)
	})

	t.Run("it answers an empty page with an empty list", func(t *testing.T) {
		t.Parallel()

		// Arrange
		upstream := &mockUpstream{}
		upstream.On("GetRankings", brawlhalla.Rotating, brawlhalla.Japan, 40).Return(brawlhalla.Rankings(nil), nil)
		svc := stats.NewService(upstream, newCache(memstore.New()))

		// Act
		res, err := svc.Rankings(t.Context(), brawlhalla.Rotating, brawlhalla.Japan, 40)

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, res.Data)
		assert.Empty(t, res.Data)
	})

	t.Run("it revalidates a cached page for fetch-first callers", func(t *testing.T) {
		t.Parallel()

		// Arrange
		upstream := &mockUpstream{}
		fresh := brawlhalla.Rankings{{Rank: 1, BrawlhallaID: 9}}
		upstream.On("GetRankings", brawlhalla.OneVsOne, brawlhalla.Europe, 1).Return(fresh, nil).Once()
		store := memstore.New()
		seed(t, store, "rankings-1v1-eu-1", brawlhalla.Rankings{{Rank: 1, BrawlhallaID: 1}}, now.Add(-time.Minute))
		svc := stats.NewService(upstream, newCache(store))
		ctx := fetchcache.WithStrategy(t.Context(), fetchcache.FetchFirst)

		// Act
		res, err := svc.Rankings(ctx, brawlhalla.OneVsOne, brawlhalla.Europe, 1)

		// Assert
		require.NoError(t, err)
		assert.False(t, res.Cached)
		assert.Equal(t, fresh, res.Data)
		upstream.AssertExpectations(t)
	})
}

func TestServicePlayer(t *testing.T) {
	t.Parallel()

	t.Run("it combines stats and ranked from the cache", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := memstore.New()
		seed(t, store, "player-stats-5", brawlhalla.PlayerStats{BrawlhallaID: 5, Name: "five"}, now.Add(-10*time.Minute))
		seed(t, store, "player-ranked-5", brawlhalla.PlayerRanked{BrawlhallaID: 5, Rating: 1800}, now.Add(-20*time.Minute))
		svc := stats.NewService(&mockUpstream{}, newCache(store))

		// Act
		res, err := svc.Player(t.Context(), 5)

		// Assert
		require.NoError(t, err)
		assert.True(t, res.Cached)
		assert.Equal(t, "five", res.Data.Stats.Name)
		assert.Equal(t, 1800, res.Data.Ranked.Rating)
		assert.Equal(t, now.Add(-20*time.Minute), res.UpdatedAt)
	})

	t.Run("it reports a partially live player as not cached", func(t *testing.T) {
		t.Parallel()

		// Arrange
		upstream := &mockUpstream{}
		upstream.On("GetPlayerRanked", 5).Return(brawlhalla.PlayerRanked{Rating: 1500}, nil)
		store := memstore.New()
		seed(t, store, "player-stats-5", brawlhalla.PlayerStats{BrawlhallaID: 5}, now.Add(-time.Minute))
		svc := stats.NewService(upstream, newCache(store))

		// Act
		res, err := svc.Player(t.Context(), 5)

		// Assert
		require.NoError(t, err)
		assert.False(t, res.Cached)
		assert.Equal(t, 1500, res.Data.Ranked.Rating)
		assert.Equal(t, now.Add(-time.Minute), res.UpdatedAt)
	})

	t.Run("it propagates the upstream error when nothing is cached", func(t *testing.T) {
		t.Parallel()

		// Arrange
		upstream := &mockUpstream{}
		rateLimited := &httpkit.StatusError{Code: http.StatusTooManyRequests}
		upstream.On("GetPlayerStats", 5).Return(brawlhalla.PlayerStats{}, rateLimited)
		upstream.On("GetPlayerRanked", 5).Return(brawlhalla.PlayerRanked{}, nil).Maybe()
		svc := stats.NewService(upstream, newCache(memstore.New()))

		// Act
		_, err := svc.Player(t.Context(), 5)

		// Assert
		assert.True(t, httpkit.HasStatus(err, http.StatusTooManyRequests))
	})
}

func newCache(store fetchcache.Store) *fetchcache.Cache {
	return fetchcache.New(store, 1,
		fetchcache.WithClock(fixedClock{now: now}),
		fetchcache.WithRetryPolicy(fetchcache.NewRetryPolicy(fetchcache.DefaultAttempts, time.Millisecond)),
	)
}

func seed(t *testing.T, store fetchcache.Store, name string, v any, at time.Time) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, store.Insert(t.Context(), fetchcache.Entry{
		ID:        fetchcache.CacheID(name, at),
		Name:      name,
		Data:      data,
		CreatedAt: at,
		Version:   1,
	}))
}
