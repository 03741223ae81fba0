package redisstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/fetchcache/store/redisstore"
)

var base = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStore(t *testing.T) {
	t.Parallel()

	t.Run("it returns the newest entry of the requested version", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := redisstore.New(newFakeClient())
		require.NoError(t, store.Insert(t.Context(), entry("player-1", 1, base, `{"n":1}`)))
		require.NoError(t, store.Insert(t.Context(), entry("player-1", 1, base.Add(time.Minute), `{"n":2}`)))
		require.NoError(t, store.Insert(t.Context(), entry("player-1", 2, base.Add(time.Hour), `{"n":3}`)))

		// Act
		got, err := store.Latest(t.Context(), "player-1", 1)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, fetchcache.CacheID("player-1", base.Add(time.Minute)), got.ID)
		assert.Equal(t, base.Add(time.Minute), got.CreatedAt)
		assert.JSONEq(t, `{"n":2}`, string(got.Data))
		assert.Equal(t, 1, got.Version)
	})

	t.Run("it reports a miss", func(t *testing.T) {
		t.Parallel()

		// Act
		_, err := redisstore.New(newFakeClient()).Latest(t.Context(), "player-1", 1)

		// Assert
		assert.ErrorIs(t, err, fetchcache.ErrNotFound)
	})

	t.Run("it keeps the first payload written under an id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		store := redisstore.New(newFakeClient())

		// Act
		require.NoError(t, store.Insert(t.Context(), entry("player-1", 1, base, `{"n":1}`)))
		require.NoError(t, store.Insert(t.Context(), entry("player-1", 1, base, `{"n":2}`)))

		// Assert
		got, err := store.Latest(t.Context(), "player-1", 1)
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":1}`, string(got.Data))
	})

	t.Run("it trims each name to the newest entries and sets a ttl", func(t *testing.T) {
		t.Parallel()

		// Arrange
		client := newFakeClient()
		store := redisstore.New(client, redisstore.WithKeep(2), redisstore.WithTTL(time.Hour), redisstore.WithPrefix("test"))

		// Act
		for i := range 4 {
			require.NoError(t, store.Insert(t.Context(), entry("player-1", 1, base.Add(time.Duration(i)*time.Minute), `{}`)))
		}

		// Assert
		index := "test:v1:index:player-1"
		assert.Len(t, client.zsets[index], 2)
		assert.Equal(t, time.Hour, client.ttls[index])
	})

	t.Run("it treats an expired payload as a miss", func(t *testing.T) {
		t.Parallel()

		// Arrange
		client := newFakeClient()
		store := redisstore.New(client, redisstore.WithPrefix("test"))
		e := entry("player-1", 1, base, `{}`)
		require.NoError(t, store.Insert(t.Context(), e))
		delete(client.values, "test:v1:entry:"+e.ID)

		// Act
		_, err := store.Latest(t.Context(), "player-1", 1)

		// Assert
		assert.ErrorIs(t, err, fetchcache.ErrNotFound)
	})

	t.Run("it wraps client failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		client := newFakeClient()
		client.err = errors.New("connection reset")
		store := redisstore.New(client)

		// Act
		_, latestErr := store.Latest(t.Context(), "player-1", 1)
		insertErr := store.Insert(t.Context(), entry("player-1", 1, base, `{}`))

		// Assert
		assert.ErrorIs(t, latestErr, redisstore.ErrQueryFailed)
		assert.ErrorIs(t, insertErr, redisstore.ErrInsertFailed)
	})
}

func entry(name string, version int, createdAt time.Time, data string) fetchcache.Entry {
	return fetchcache.Entry{
		ID:        fetchcache.CacheID(name, createdAt),
		Name:      name,
		Data:      json.RawMessage(data),
		CreatedAt: createdAt,
		Version:   version,
	}
}

// fakeClient is an in-memory stand-in for the commands the store issues
type fakeClient struct {
	mu     sync.Mutex
	values map[string][]byte
	zsets  map[string][]redis.Z
	ttls   map[string]time.Duration
	err    error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: make(map[string][]byte),
		zsets:  make(map[string][]redis.Z),
		ttls:   make(map[string]time.Duration),
	}
}

func (c *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return redis.NewStringResult("", c.err)
	}
	v, ok := c.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (c *fakeClient) SetNX(_ context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return redis.NewBoolResult(false, c.err)
	}
	if _, ok := c.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	c.values[key] = value.([]byte)
	c.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (c *fakeClient) ZAddNX(_ context.Context, key string, members ...redis.Z) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return redis.NewIntResult(0, c.err)
	}
	var added int64
	for _, m := range members {
		if !c.hasMember(key, m.Member) {
			c.zsets[key] = append(c.zsets[key], m)
			added++
		}
	}
	sort.Slice(c.zsets[key], func(i, j int) bool { return c.zsets[key][i].Score < c.zsets[key][j].Score })
	return redis.NewIntResult(added, nil)
}

func (c *fakeClient) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) *redis.ZSliceCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return redis.NewZSliceCmdResult(nil, c.err)
	}
	set := c.zsets[key]
	rev := make([]redis.Z, 0, len(set))
	for i := len(set) - 1; i >= 0; i-- {
		rev = append(rev, set[i])
	}
	lo, hi := clampRange(start, stop, len(rev))
	if lo > hi {
		return redis.NewZSliceCmdResult(nil, nil)
	}
	return redis.NewZSliceCmdResult(rev[lo:hi+1], nil)
}

func (c *fakeClient) ZRemRangeByRank(_ context.Context, key string, start, stop int64) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return redis.NewIntResult(0, c.err)
	}
	set := c.zsets[key]
	lo, hi := clampRange(start, stop, len(set))
	if lo > hi {
		return redis.NewIntResult(0, nil)
	}
	c.zsets[key] = append(set[:lo:lo], set[hi+1:]...)
	return redis.NewIntResult(int64(hi-lo+1), nil)
}

func (c *fakeClient) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return redis.NewBoolResult(false, c.err)
	}
	c.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (c *fakeClient) hasMember(key string, member any) bool {
	for _, z := range c.zsets[key] {
		if z.Member == member {
			return true
		}
	}
	return false
}

// clampRange resolves Redis style inclusive ranges with negative indexes
func clampRange(start, stop int64, n int) (int, int) {
	if start < 0 {
		start += int64(n)
	}
	if stop < 0 {
		stop += int64(n)
	}
	start = max(start, 0)
	stop = min(stop, int64(n)-1)
	return int(start), int(stop)
}
