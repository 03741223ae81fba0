// Package statsclient is the worker-side client of the internal stats API.
// Every request carries the worker secret so the API answers fetch-first.
package statsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/screwyprof/brawlstats/pkg/brawlhalla"
	"github.com/screwyprof/brawlstats/pkg/httpkit"
)

// RankingsResponse is the envelope returned for a leaderboard page
type RankingsResponse struct {
	Data      brawlhalla.Rankings `json:"data"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Cached    bool                `json:"cached"`
}

// Player is the combined stats and ranked payload
type Player = brawlhalla.Player

// PlayerResponse is the envelope returned for a player lookup
type PlayerResponse struct {
	Data      Player    `json:"data"`
	UpdatedAt time.Time `json:"updatedAt"`
	Cached    bool      `json:"cached"`
}

// Client calls the internal API on behalf of a worker
type Client struct {
	httpClient *http.Client
	baseURL    string
	secret     string
}

// NewClient creates a client presenting secret on every request
func NewClient(httpClient *http.Client, baseURL, secret string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		secret:     secret,
	}
}

// GetRankings retrieves one leaderboard page
func (c *Client) GetRankings(ctx context.Context, rankingType brawlhalla.RankingType, region brawlhalla.Region, page int) (RankingsResponse, error) {
	var resp RankingsResponse
	path := fmt.Sprintf("/rankings/%s/%s/%d", rankingType, region, page)
	if err := c.get(ctx, path, &resp); err != nil {
		return RankingsResponse{}, err
	}
	return resp, nil
}

// GetPlayerByID retrieves a player's detail
func (c *Client) GetPlayerByID(ctx context.Context, id int) (PlayerResponse, error) {
	var resp PlayerResponse
	if err := c.get(ctx, "/players/"+strconv.Itoa(id), &resp); err != nil {
		return PlayerResponse{}, err
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(httpkit.WorkerSecretHeader, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if !httpkit.IsSuccess(resp.StatusCode) {
		return httpkit.NewStatusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", httpkit.ErrDecode, err)
	}
	return nil
}
