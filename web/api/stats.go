package api

import (
	"time"

	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
)

// RankingsRequest is a bound leaderboard page request
type RankingsRequest struct {
	Type   brawlhalla.RankingType
	Region brawlhalla.Region
	Page   int
}

// PlayerRequest is a bound player lookup
type PlayerRequest struct {
	ID int
}

// Response is the envelope every stats endpoint answers with
type Response[T any] struct {
	Data      T         `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
	Cached    bool      `json:"cached"`
}

type (
	RankingsResponse = Response[brawlhalla.Rankings]
	PlayerResponse   = Response[brawlhalla.Player]
)

// HealthResponse reports process liveness and its dependencies
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
