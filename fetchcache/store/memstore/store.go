// Package memstore keeps cache entries in process memory. It backs tests and
// single-instance deployments without a database.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/screwyprof/brawlstats/fetchcache"
)

// Store is an append-only in-memory entry log
type Store struct {
	mu      sync.RWMutex
	entries map[string][]fetchcache.Entry
	ids     map[string]struct{}
}

func New() *Store {
	return &Store{
		entries: make(map[string][]fetchcache.Entry),
		ids:     make(map[string]struct{}),
	}
}

// Latest returns the most recent entry for name and version
func (s *Store) Latest(_ context.Context, name string, version int) (fetchcache.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest fetchcache.Entry
		found  bool
	)
	for _, e := range s.entries[name] {
		if e.Version != version {
			continue
		}
		if !found || e.CreatedAt.After(latest.CreatedAt) {
			latest, found = e, true
		}
	}
	if !found {
		return fetchcache.Entry{}, fetchcache.ErrNotFound
	}
	return latest, nil
}

// Insert appends entry unless its ID is already stored
func (s *Store) Insert(_ context.Context, entry fetchcache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[entry.ID]; ok {
		return nil
	}
	s.ids[entry.ID] = struct{}{}
	s.entries[entry.Name] = append(s.entries[entry.Name], entry)
	return nil
}

// Prune drops entries of other versions and entries created before the cutoff.
// The newest entry of each name at version is always kept so it can still be served stale.
func (s *Store) Prune(_ context.Context, version int, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for name, entries := range s.entries {
		newest := -1
		for i, e := range entries {
			if e.Version == version && (newest < 0 || e.CreatedAt.After(entries[newest].CreatedAt)) {
				newest = i
			}
		}

		kept := make([]fetchcache.Entry, 0, len(entries))
		for i, e := range entries {
			if i != newest && (e.Version != version || e.CreatedAt.Before(before)) {
				delete(s.ids, e.ID)
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.entries, name)
			continue
		}
		s.entries[name] = kept
	}
	return removed, nil
}

// Len returns the number of stored entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
