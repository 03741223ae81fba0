package fetchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for cache operations
var (
	ErrNotFound       = errors.New("cache entry not found")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrCacheWrite     = errors.New("cache write failed")
)

// Entry is one immutable cached payload. Newer entries for the same name supersede older ones.
type Entry struct {
	ID        string
	Name      string
	Data      json.RawMessage
	CreatedAt time.Time
	Version   int
}

// Store persists entries append-only
type Store interface {
	// Latest returns the most recent entry for name and version, or ErrNotFound
	Latest(ctx context.Context, name string, version int) (Entry, error)
	// Insert adds an entry; an entry with an existing ID is ignored
	Insert(ctx context.Context, entry Entry) error
}

// Pruner removes entries that can no longer be selected or are older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, version int, before time.Time) (int64, error)
}

// Validator is implemented by payloads that can check their own shape
type Validator interface {
	Validate() error
}

// CacheID builds the unique id of an entry written at t
func CacheID(name string, t time.Time) string {
	return fmt.Sprintf("%s-%d", name, t.UnixMilli())
}

func validate(v any) error {
	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}
	return nil
}

func decode[T any](data json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if err := validate(v); err != nil {
		return v, err
	}
	return v, nil
}
