package statsclient_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
	"github.com/screwyprof/brawlstats/pkg/statsclient"
)

const workerSecret = "s3cret"

func TestClient(t *testing.T) {
	t.Parallel()

	t.Run("it attaches the worker secret and decodes rankings", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(t, "/rankings/2v2/eu/3", `{
			"data":[{"rank":1,"brawlhalla_id_one":1,"brawlhalla_id_two":2}],
			"updatedAt":"2024-01-01T10:00:00Z",
			"cached":false
		}`)
		defer server.Close()
		client := statsclient.NewClient(server.Client(), server.URL, workerSecret)

		// Act
		resp, err := client.GetRankings(t.Context(), brawlhalla.TwoVsTwo, brawlhalla.Europe, 3)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, resp.Data.PlayerIDs())
		assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), resp.UpdatedAt)
		assert.False(t, resp.Cached)
	})

	t.Run("it decodes player detail", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(t, "/players/7", `{
			"data":{"stats":{"brawlhalla_id":7,"name":"alpha"},"ranked":{"brawlhalla_id":7,"rating":1500}},
			"updatedAt":"2024-01-01T10:00:00Z",
			"cached":true
		}`)
		defer server.Close()
		client := statsclient.NewClient(server.Client(), server.URL, workerSecret)

		// Act
		resp, err := client.GetPlayerByID(t.Context(), 7)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "alpha", resp.Data.Stats.Name)
		assert.Equal(t, 1500, resp.Data.Ranked.Rating)
		assert.True(t, resp.Cached)
	})

	t.Run("it surfaces the HTTP status of failed calls", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"code":429,"message":"Too Many Requests"}`))
		}))
		defer server.Close()
		client := statsclient.NewClient(server.Client(), server.URL, workerSecret)

		// Act
		_, err := client.GetPlayerByID(t.Context(), 7)

		// Assert
		assert.Equal(t, http.StatusTooManyRequests, httpkit.StatusCode(err))
	})

	t.Run("it tags malformed envelopes as decode errors", func(t *testing.T) {
		t.Parallel()

		// Arrange
		server := apiServing(t, "/players/7", `not json`)
		defer server.Close()
		client := statsclient.NewClient(server.Client(), server.URL, workerSecret)

		// Act
		_, err := client.GetPlayerByID(t.Context(), 7)

		// Assert
		assert.ErrorIs(t, err, httpkit.ErrDecode)
	})
}

// apiServing answers path with body for callers presenting the worker secret
func apiServing(t *testing.T, path, body string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(httpkit.WorkerSecretHeader) != workerSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}
