package pgxstore_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/fetchcache/store/pgxstore"
)

var (
	createdAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	columns   = []string{"cache_id", "cache_name", "data", "created_at", "version"}
)

func TestStoreLatest(t *testing.T) {
	t.Parallel()

	t.Run("it selects the newest entry for the name and version", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mock := newMockPool(t)
		mock.ExpectQuery(`(?s)SELECT cache_id, cache_name, data, created_at, version.*FROM api_cache.*ORDER BY created_at DESC`).
			WithArgs("player-stats-7", 3).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("player-stats-7-1717243200000", "player-stats-7", []byte(`{"name":"x"}`), createdAt, 3))
		store := pgxstore.New(mock)

		// Act
		entry, err := store.Latest(t.Context(), "player-stats-7", 3)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "player-stats-7-1717243200000", entry.ID)
		assert.Equal(t, createdAt, entry.CreatedAt)
		assert.Equal(t, 3, entry.Version)
		assert.JSONEq(t, `{"name":"x"}`, string(entry.Data))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("it reports a miss when no row matches", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mock := newMockPool(t)
		mock.ExpectQuery("SELECT cache_id").
			WithArgs("player-stats-7", 3).
			WillReturnRows(pgxmock.NewRows(columns))
		store := pgxstore.New(mock)

		// Act
		_, err := store.Latest(t.Context(), "player-stats-7", 3)

		// Assert
		assert.ErrorIs(t, err, fetchcache.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("it wraps query failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mock := newMockPool(t)
		dbErr := errors.New("connection refused")
		mock.ExpectQuery("SELECT cache_id").WithArgs("player-stats-7", 3).WillReturnError(dbErr)
		store := pgxstore.New(mock)

		// Act
		_, err := store.Latest(t.Context(), "player-stats-7", 3)

		// Assert
		assert.ErrorIs(t, err, pgxstore.ErrQueryFailed)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestStoreInsert(t *testing.T) {
	t.Parallel()

	t.Run("it inserts with on conflict do nothing", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mock := newMockPool(t)
		entry := fetchcache.Entry{
			ID:        fetchcache.CacheID("rankings-1v1-eu-1", createdAt),
			Name:      "rankings-1v1-eu-1",
			Data:      json.RawMessage(`[]`),
			CreatedAt: createdAt,
			Version:   1,
		}
		mock.ExpectExec(`(?s)INSERT INTO api_cache.*ON CONFLICT \(cache_id\) DO NOTHING`).
			WithArgs(entry.ID, entry.Name, []byte(`[]`), createdAt, 1).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		store := pgxstore.New(mock)

		// Act
		err := store.Insert(t.Context(), entry)

		// Assert
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("it wraps insert failures", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mock := newMockPool(t)
		mock.ExpectExec("INSERT INTO api_cache").WillReturnError(errors.New("disk full"))
		store := pgxstore.New(mock)

		// Act
		err := store.Insert(t.Context(), fetchcache.Entry{ID: "x", Name: "x", Data: json.RawMessage(`{}`)})

		// Assert
		assert.ErrorIs(t, err, pgxstore.ErrInsertFailed)
	})
}

func TestStorePrune(t *testing.T) {
	t.Parallel()

	t.Run("it deletes superseded and expired entries but keeps the newest current entry per name", func(t *testing.T) {
		t.Parallel()

		// Arrange
		mock := newMockPool(t)
		cutoff := createdAt.Add(-30 * 24 * time.Hour)
		mock.ExpectExec(`(?s)DELETE FROM api_cache.*WHERE \(version <> \$1 OR created_at < \$2\).*cache_id NOT IN.*SELECT DISTINCT ON \(cache_name\) cache_id.*WHERE version = \$1.*ORDER BY cache_name, created_at DESC`).
			WithArgs(2, cutoff).
			WillReturnResult(pgxmock.NewResult("DELETE", 4))
		store := pgxstore.New(mock)

		// Act
		removed, err := store.Prune(t.Context(), 2, cutoff)

		// Assert
		require.NoError(t, err)
		assert.EqualValues(t, 4, removed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}
