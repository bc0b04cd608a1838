package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddscope/matchpulse/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.UpstreamConfig{BaseURL: srv.URL, APIKey: "test-key", Timeout: 5})
}

func TestLiveFixtures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fixtures/live", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"response": [{
				"id": 1001,
				"status": {"short": "2H", "elapsed": 67},
				"league": {"id": 39, "name": "premier league"},
				"teams": {"home": {"id": 1, "name": "Home FC"}, "away": {"id": 2, "name": "Away FC"}},
				"goals": {"home": 2, "away": 1},
				"events": [{"type": "Card", "detail": "Red Card", "team": {"id": 2, "name": "Away FC"}}],
				"statistics": [
					{"team": {"id": 1, "name": "Home FC"}, "items": [{"type": "Ball Possession", "value": "58%"}]},
					{"team": {"id": 2, "name": "Away FC"}, "items": [{"type": "Ball Possession", "value": "42%"}]}
				]
			}]
		}`))
	})

	fixtures, err := client.LiveFixtures(context.Background())
	require.NoError(t, err)
	require.Len(t, fixtures, 1)

	f := fixtures[0]
	assert.Equal(t, int64(1001), f.ID)
	assert.Equal(t, "2H", f.Status.Code)
	require.NotNil(t, f.Status.Elapsed)
	assert.Equal(t, 67, *f.Status.Elapsed)
	require.NotNil(t, f.Goals.Home)
	assert.Equal(t, 2, *f.Goals.Home)
	assert.Len(t, f.Events, 1)
	assert.Len(t, f.Stats, 2)
}

func TestLiveOdds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/odds/live/1001", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"response": [{
				"fixture_id": 1001,
				"bookmaker": "pinnacle",
				"home": 1.85, "draw": 3.60, "away": 4.50,
				"handicap": {"line": -0.75, "home": 1.95, "away": 1.90, "suspended": false}
			}]
		}`))
	})

	odds, err := client.LiveOdds(context.Background(), 1001)
	require.NoError(t, err)
	assert.Equal(t, 1.85, odds.Home)
	require.NotNil(t, odds.Handicap)
	assert.Equal(t, -0.75, odds.Handicap.Line)
}

func TestRateLimitTyped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.LiveFixtures(context.Background())
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestServerErrorSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	_, err := client.LiveFixtures(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestMalformedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": [`))
	})

	_, err := client.LiveFixtures(context.Background())
	assert.Error(t, err)
}

func TestEmptyOdds(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": []}`))
	})

	_, err := client.LiveOdds(context.Background(), 7)
	assert.Error(t, err)
}
