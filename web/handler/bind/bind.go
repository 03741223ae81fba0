package bind

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/web/api"
)

// Sentinel errors for request binding
var (
	ErrInvalidType     = errors.New("invalid type parameter")
	ErrInvalidRegion   = errors.New("invalid region parameter")
	ErrInvalidPage     = errors.New("invalid page parameter")
	ErrInvalidPlayerID = errors.New("invalid id parameter")

	ErrNotNumeric  = errors.New("must be numeric")
	ErrNotPositive = errors.New("must be positive")
)

// GetRankingsRequest binds the path of GET /rankings/{type}/{region}/{page}
func GetRankingsRequest(r *http.Request) (api.RankingsRequest, error) {
	var req api.RankingsRequest

	rankingType, err := brawlhalla.ParseRankingType(r.PathValue("type"))
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidType, err)
	}
	req.Type = rankingType

	region, err := brawlhalla.ParseRegion(r.PathValue("region"))
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidRegion, err)
	}
	req.Region = region

	page, err := parsePositive(r.PathValue("page"))
	if err != nil {
		return req, fmt.Errorf("%w: page %w", ErrInvalidPage, err)
	}
	req.Page = page

	return req, nil
}

// GetPlayerRequest binds the path of GET /players/{id}
func GetPlayerRequest(r *http.Request) (api.PlayerRequest, error) {
	id, err := parsePositive(r.PathValue("id"))
	if err != nil {
		return api.PlayerRequest{}, fmt.Errorf("%w: id %w", ErrInvalidPlayerID, err)
	}
	return api.PlayerRequest{ID: id}, nil
}

// parsePositive accepts decimal integers greater than zero
func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotNumeric
	}
	if n <= 0 {
		return 0, ErrNotPositive
	}
	return n, nil
}

// Response binds a cache result to the API envelope
func Response[T any](res fetchcache.Result[T]) api.Response[T] {
	return api.Response[T]{
		Data:      res.Data,
		UpdatedAt: res.UpdatedAt.UTC(),
		Cached:    res.Cached,
	}
}
