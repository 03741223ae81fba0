package bind_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/brawlstats/fetchcache"
	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/web/handler/bind"
)

func TestGetRankingsRequest(t *testing.T) {
	t.Parallel()

	t.Run("it binds type, region and page from the path", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := rankingsRequest("2v2", "eu", "3")

		// Act
		req, err := bind.GetRankingsRequest(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, brawlhalla.TwoVsTwo, req.Type)
		assert.Equal(t, brawlhalla.Europe, req.Region)
		assert.Equal(t, 3, req.Page)
	})

	tests := []struct {
		name                string
		rankingType, region string
		page                string
		want                error
	}{
		{name: "it rejects an unknown type", rankingType: "3v3", region: "eu", page: "1", want: bind.ErrInvalidType},
		{name: "it rejects an unknown region", rankingType: "1v1", region: "mars", page: "1", want: bind.ErrInvalidRegion},
		{name: "it rejects a non numeric page", rankingType: "1v1", region: "eu", page: "first", want: bind.ErrNotNumeric},
		{name: "it rejects page zero", rankingType: "1v1", region: "eu", page: "0", want: bind.ErrNotPositive},
		{name: "it rejects a negative page", rankingType: "1v1", region: "eu", page: "-2", want: bind.ErrInvalidPage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// Act
			_, err := bind.GetRankingsRequest(rankingsRequest(tc.rankingType, tc.region, tc.page))

			// Assert
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestGetPlayerRequest(t *testing.T) {
	t.Parallel()

	t.Run("it binds the player id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := httptest.NewRequest(http.MethodGet, "/players/2405", nil)
		r.SetPathValue("id", "2405")

		// Act
		req, err := bind.GetPlayerRequest(r)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 2405, req.ID)
	})

	t.Run("it rejects a non numeric id", func(t *testing.T) {
		t.Parallel()

		// Arrange
		r := httptest.NewRequest(http.MethodGet, "/players/abc", nil)
		r.SetPathValue("id", "abc")

		// Act
		_, err := bind.GetPlayerRequest(r)

		// Assert
		assert.ErrorIs(t, err, bind.ErrInvalidPlayerID)
		assert.ErrorIs(t, err, bind.ErrNotNumeric)
	})
}

func TestResponse(t *testing.T) {
	t.Parallel()

	t.Run("it maps the cache result onto the envelope in UTC", func(t *testing.T) {
		t.Parallel()

		// Arrange
		at := time.Date(2024, 6, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
		res := fetchcache.Result[brawlhalla.Rankings]{Data: brawlhalla.Rankings{{Rank: 1}}, UpdatedAt: at, Cached: true}

		// Act
		resp := bind.Response(res)

		// Assert
		assert.Equal(t, res.Data, resp.Data)
		assert.Equal(t, time.UTC, resp.UpdatedAt.Location())
		assert.True(t, at.Equal(resp.UpdatedAt))
		assert.True(t, resp.Cached)
	})
}

func rankingsRequest(rankingType, region, page string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/rankings/"+rankingType+"/"+region+"/"+page, nil)
	r.SetPathValue("type", rankingType)
	r.SetPathValue("region", region)
	r.SetPathValue("page", page)
	return r
}
