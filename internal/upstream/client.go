package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oddscope/matchpulse/internal/config"
)

// ErrRateLimited marks an upstream 429. Callers back off to the next
// poll tick; it is distinguished from other failures for operator
// visibility only.
var ErrRateLimited = errors.New("upstream rate limit exceeded")

// Client is the HTTP client for the live fixtures feed.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a feed client from configuration.
func NewClient(cfg *config.UpstreamConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// BaseURL returns the configured feed URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LiveFixtures fetches all fixtures currently in play.
func (c *Client) LiveFixtures(ctx context.Context) ([]Fixture, error) {
	var response FixturesResponse
	if err := c.makeRequest(ctx, "/v1/fixtures/live", &response); err != nil {
		return nil, err
	}
	return response.Fixtures, nil
}

// LiveOdds fetches the current in-play odds for one fixture.
func (c *Client) LiveOdds(ctx context.Context, fixtureID int64) (*OddsQuote, error) {
	var response OddsResponse
	path := fmt.Sprintf("/v1/odds/live/%d", fixtureID)
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return nil, err
	}
	if len(response.Odds) == 0 {
		return nil, fmt.Errorf("no odds for fixture %d", fixtureID)
	}
	return &response.Odds[0], nil
}

// PreMatchOdds fetches the pre-match reference odds for one fixture.
func (c *Client) PreMatchOdds(ctx context.Context, fixtureID int64) (*OddsQuote, error) {
	var response OddsResponse
	path := fmt.Sprintf("/v1/odds/prematch/%d", fixtureID)
	if err := c.makeRequest(ctx, path, &response); err != nil {
		return nil, err
	}
	if len(response.Odds) == 0 {
		return nil, fmt.Errorf("no pre-match odds for fixture %d", fixtureID)
	}
	return &response.Odds[0], nil
}

// HealthCheck verifies the feed is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.makeRequest(ctx, "/v1/status", &struct{}{})
}

func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("upstream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode upstream response: %w", err)
	}
	return nil
}
