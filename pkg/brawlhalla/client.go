package brawlhalla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/screwyprof/brawlstats/pkg/httpkit"
)

const DefaultBaseURL = "https://api.brawlhalla.com"

// Client talks to the public game API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a client authenticating with apiKey
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// GetRankings retrieves one leaderboard page
func (c *Client) GetRankings(ctx context.Context, rankingType RankingType, region Region, page int) (Rankings, error) {
	var rankings Rankings
	path := fmt.Sprintf("/rankings/%s/%s/%d", rankingType, region, page)
	if err := c.get(ctx, path, &rankings); err != nil {
		return nil, fmt.Errorf("get rankings %s/%s/%d: %w", rankingType, region, page, err)
	}
	return rankings, nil
}

// GetPlayerStats retrieves lifetime stats for a player
func (c *Client) GetPlayerStats(ctx context.Context, id int) (PlayerStats, error) {
	var stats PlayerStats
	if err := c.get(ctx, "/player/"+strconv.Itoa(id)+"/stats", &stats); err != nil {
		return PlayerStats{}, fmt.Errorf("get player %d stats: %w", id, err)
	}
	return stats, nil
}

// GetPlayerRanked retrieves the ranked season summary for a player
func (c *Client) GetPlayerRanked(ctx context.Context, id int) (PlayerRanked, error) {
	var ranked PlayerRanked
	if err := c.get(ctx, "/player/"+strconv.Itoa(id)+"/ranked", &ranked); err != nil {
		return PlayerRanked{}, fmt.Errorf("get player %d ranked: %w", id, err)
	}
	return ranked, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("building url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = c.baseURL + path
		}
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
