// Package redisstore keeps cache entries in Redis.
//
// Each cache name and version owns a sorted set of entry ids scored by creation time in
// milliseconds; payloads live under their own keys. Entries expire after the configured TTL
// and only the newest entries of every name are retained.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/screwyprof/brawlstats/fetchcache"
)

// Sentinel errors for store operations
var (
	ErrQueryFailed  = errors.New("cache entry query failed")
	ErrInsertFailed = errors.New("cache entry insert failed")
)

const (
	DefaultPrefix = "brawlstats:cache"
	DefaultTTL    = 7 * 24 * time.Hour
	DefaultKeep   = 5
)

// Client is the subset of *redis.Client the store uses
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	ZAddNX(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) *redis.ZSliceCmd
	ZRemRangeByRank(ctx context.Context, key string, start, stop int64) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Option configures the Store
type Option func(*Store)

// WithPrefix namespaces every key
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithTTL sets how long entries live
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithKeep sets how many entries per name survive trimming
func WithKeep(n int) Option {
	return func(s *Store) { s.keep = max(1, n) }
}

// Store implements fetchcache.Store over Redis
type Store struct {
	client Client
	prefix string
	ttl    time.Duration
	keep   int
}

func New(client Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		ttl:    DefaultTTL,
		keep:   DefaultKeep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the most recent entry for name and version
func (s *Store) Latest(ctx context.Context, name string, version int) (fetchcache.Entry, error) {
	members, err := s.client.ZRevRangeWithScores(ctx, s.indexKey(name, version), 0, 0).Result()
	if err != nil {
		return fetchcache.Entry{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	if len(members) == 0 {
		return fetchcache.Entry{}, fetchcache.ErrNotFound
	}

	id, ok := members[0].Member.(string)
	if !ok {
		return fetchcache.Entry{}, fmt.Errorf("%w: unexpected member %T", ErrQueryFailed, members[0].Member)
	}

	data, err := s.client.Get(ctx, s.entryKey(id, version)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fetchcache.Entry{}, fetchcache.ErrNotFound
	}
	if err != nil {
		return fetchcache.Entry{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return fetchcache.Entry{
		ID:        id,
		Name:      name,
		Data:      data,
		CreatedAt: time.UnixMilli(int64(members[0].Score)).UTC(),
		Version:   version,
	}, nil
}

// Insert stores entry unless its id already exists, then trims the name's index
func (s *Store) Insert(ctx context.Context, entry fetchcache.Entry) error {
	created, err := s.client.SetNX(ctx, s.entryKey(entry.ID, entry.Version), []byte(entry.Data), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	if !created {
		return nil
	}

	index := s.indexKey(entry.Name, entry.Version)
	member := redis.Z{Score: float64(entry.CreatedAt.UnixMilli()), Member: entry.ID}
	if err := s.client.ZAddNX(ctx, index, member).Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	if err := s.client.ZRemRangeByRank(ctx, index, 0, -int64(s.keep)-1).Err(); err != nil {
		return fmt.Errorf("%w: trim: %w", ErrInsertFailed, err)
	}
	if err := s.client.Expire(ctx, index, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: expire: %w", ErrInsertFailed, err)
	}
	return nil
}

func (s *Store) indexKey(name string, version int) string {
	return fmt.Sprintf("%s:v%d:index:%s", s.prefix, version, name)
}

func (s *Store) entryKey(id string, version int) string {
	return fmt.Sprintf("%s:v%d:entry:%s", s.prefix, version, id)
}
