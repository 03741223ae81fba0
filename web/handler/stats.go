package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
	"github.com/screwyprof/brawlstats/web/api"
	"github.com/screwyprof/brawlstats/web/handler/bind"
)

const (
	GetRankingsRoute = http.MethodGet + " " + "/rankings/{type}/{region}/{page}"
	GetPlayerRoute   = http.MethodGet + " " + "/players/{id}"
)

// Sentinel errors
var (
	ErrRankingsFailed = errors.New("failed to get rankings")
	ErrPlayerFailed   = errors.New("failed to get player")
)

// StatsFinder reads stats through the cache
type StatsFinder interface {
	Rankings(ctx context.Context, rankingType brawlhalla.RankingType, region brawlhalla.Region, page int) (fetchcache.Result[brawlhalla.Rankings], error)
	Player(ctx context.Context, id int) (fetchcache.Result[brawlhalla.Player], error)
}

type Stats struct {
	finder StatsFinder
}

func NewStats(finder StatsFinder) *Stats {
	return &Stats{
		finder: finder,
	}
}

func (h *Stats) AddRoutes(m *http.ServeMux) {
	m.Handle(GetRankingsRoute, httpkit.HandlerFunc(h.GetRankings))
	m.Handle(GetPlayerRoute, httpkit.HandlerFunc(h.GetPlayer))
}

func (h *Stats) GetRankings(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.GetRankingsRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	res, err := h.finder.Rankings(r.Context(), req.Type, req.Region, req.Page)
	if err != nil {
		return httpkit.JsonError(api.Wrap(fmt.Errorf("%w: %w", ErrRankingsFailed, err)))
	}

	return httpkit.JSON(bind.Response(res))
}

func (h *Stats) GetPlayer(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.GetPlayerRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	res, err := h.finder.Player(r.Context(), req.ID)
	if err != nil {
		return httpkit.JsonError(api.Wrap(fmt.Errorf("%w: %w", ErrPlayerFailed, err)))
	}

	return httpkit.JSON(bind.Response(res))
}
