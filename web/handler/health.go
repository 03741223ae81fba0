package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/screwyprof/brawlstats/pkg/httpkit"
	"github.com/screwyprof/brawlstats/pkg/metrics"
	"github.com/screwyprof/brawlstats/web/api"
)

const (
	HealthRoute  = http.MethodGet + " " + "/healthz"
	MetricsRoute = http.MethodGet + " " + "/metrics"

	healthCheckTimeout = 2 * time.Second
)

// Check probes one dependency
type Check func(ctx context.Context) error

type Health struct {
	checks map[string]Check
}

// NewHealth reports healthy only while every named check passes
func NewHealth(checks map[string]Check) *Health {
	return &Health{checks: checks}
}

func (h *Health) AddRoutes(m *http.ServeMux) {
	m.Handle(HealthRoute, httpkit.HandlerFunc(h.GetHealth))
	m.Handle(MetricsRoute, metrics.Handler())
}

func (h *Health) GetHealth(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := api.HealthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	return httpkit.JSONWithStatus(status, resp)
}
