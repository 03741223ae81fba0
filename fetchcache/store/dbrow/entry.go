package dbrow

import (
	"time"

	"github.com/screwyprof/brawlstats/fetchcache"
)

// Entry represents an api_cache row as queried from the database
type Entry struct {
	CacheID   string    `db:"cache_id"`
	CacheName string    `db:"cache_name"`
	Data      []byte    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
	Version   int       `db:"version"`
}

// ToEntry converts the row to the cache's domain model
func (e Entry) ToEntry() fetchcache.Entry {
	return fetchcache.Entry{
		ID:        e.CacheID,
		Name:      e.CacheName,
		Data:      e.Data,
		CreatedAt: e.CreatedAt.UTC(),
		Version:   e.Version,
	}
}

// FromEntry converts a domain entry into insert arguments in column order
func FromEntry(e fetchcache.Entry) []any {
	return []any{e.ID, e.Name, []byte(e.Data), e.CreatedAt, e.Version}
}
