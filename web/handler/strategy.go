package handler

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
)

// NewStrategyMiddleware resolves the fetch strategy once per request.
// Callers presenting the worker secret are served fetch-first; an empty secret disables it.
func NewStrategyMiddleware(secret string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			strategy := fetchcache.CacheFirst
			got := r.Header.Get(httpkit.WorkerSecretHeader)
			if len(want) > 0 && subtle.ConstantTimeCompare([]byte(got), want) == 1 {
				strategy = fetchcache.FetchFirst
			}
			next.ServeHTTP(w, r.WithContext(fetchcache.WithStrategy(r.Context(), strategy)))
		})
	}
}

// StrategyFields adds the resolved strategy to access log lines
func StrategyFields(r *http.Request) []zap.Field {
	return []zap.Field{zap.Stringer("strategy", fetchcache.StrategyFromContext(r.Context()))}
}
