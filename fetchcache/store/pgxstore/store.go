package pgxstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/fetchcache/store/dbrow"
)

// Sentinel errors for store operations
var (
	ErrQueryFailed  = errors.New("cache entry query failed")
	ErrInsertFailed = errors.New("cache entry insert failed")
	ErrPruneFailed  = errors.New("cache prune failed")
)

// SQL queries
const (
	latestEntrySQL = `
		SELECT cache_id, cache_name, data, created_at, version
		FROM api_cache
		WHERE cache_name = $1 AND version = $2
		ORDER BY created_at DESC
		LIMIT 1`

	insertEntrySQL = `
		INSERT INTO api_cache (cache_id, cache_name, data, created_at, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cache_id) DO NOTHING`

	pruneEntriesSQL = `
		DELETE FROM api_cache
		WHERE (version <> $1 OR created_at < $2)
		AND cache_id NOT IN (
			SELECT DISTINCT ON (cache_name) cache_id
			FROM api_cache
			WHERE version = $1
			ORDER BY cache_name, created_at DESC
		)`
)

// Querier is the part of *pgxpool.Pool the store needs
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements fetchcache.Store using pgx
type Store struct {
	db Querier
}

// New creates a PostgreSQL cache store over an existing pool; the caller owns the pool
func New(db Querier) *Store {
	return &Store{db: db}
}

// Latest returns the most recent entry for name and version
func (s *Store) Latest(ctx context.Context, name string, version int) (fetchcache.Entry, error) {
	rows, err := s.db.Query(ctx, latestEntrySQL, name, version)
	if err != nil {
		return fetchcache.Entry{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[dbrow.Entry])
	if errors.Is(err, pgx.ErrNoRows) {
		return fetchcache.Entry{}, fetchcache.ErrNotFound
	}
	if err != nil {
		return fetchcache.Entry{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return row.ToEntry(), nil
}

// Insert adds entry; an existing cache_id is left untouched
func (s *Store) Insert(ctx context.Context, entry fetchcache.Entry) error {
	if _, err := s.db.Exec(ctx, insertEntrySQL, dbrow.FromEntry(entry)...); err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	return nil
}

// Prune deletes entries of other versions and entries created before the cutoff,
// keeping the newest entry of each name at version for stale fallback
func (s *Store) Prune(ctx context.Context, version int, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, pruneEntriesSQL, version, before)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPruneFailed, err)
	}
	return tag.RowsAffected(), nil
}
