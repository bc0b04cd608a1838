package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddscope/matchpulse/internal/models"
)

func newRedisCache(t *testing.T, ttl time.Duration) (*OddsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOddsCache(client, ttl, "odds:"), mr
}

func sampleQuote(matchID string) *models.HandicapQuote {
	return &models.HandicapQuote{
		MatchID:   matchID,
		Line:      -0.75,
		Home:      decimal.NewFromFloat(1.95),
		Away:      decimal.NewFromFloat(1.90),
		FetchedAt: time.Now().UTC(),
	}
}

func TestOddsCacheRoundTrip(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)
	ctx := context.Background()

	c.SetQuote(ctx, sampleQuote("fx-1"))

	got, ok := c.Quote(ctx, "fx-1")
	require.True(t, ok)
	assert.Equal(t, -0.75, got.Line)
	assert.True(t, got.Home.Equal(decimal.NewFromFloat(1.95)))

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestOddsCacheMiss(t *testing.T) {
	c, _ := newRedisCache(t, time.Minute)

	_, ok := c.Quote(context.Background(), "unknown")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.GetStats().Misses)
}

func TestOddsCacheExpiry(t *testing.T) {
	c, mr := newRedisCache(t, 5*time.Second)
	ctx := context.Background()

	c.SetQuote(ctx, sampleQuote("fx-1"))
	mr.FastForward(6 * time.Second)

	_, ok := c.Quote(ctx, "fx-1")
	assert.False(t, ok, "entry must expire with its TTL")
}

func TestOddsCacheMemoryFallback(t *testing.T) {
	c := NewOddsCache(nil, time.Minute, "odds:")
	ctx := context.Background()

	odds := &models.MatchOdds{
		MatchID: "fx-2",
		Home:    decimal.NewFromFloat(2.10),
		Draw:    decimal.NewFromFloat(3.40),
		Away:    decimal.NewFromFloat(3.60),
	}
	c.SetMatchOdds(ctx, odds)

	got, ok := c.MatchOdds(ctx, "fx-2")
	require.True(t, ok)
	assert.True(t, got.Draw.Equal(decimal.NewFromFloat(3.40)))
}

func TestOddsCacheMemoryExpiry(t *testing.T) {
	c := NewOddsCache(nil, time.Millisecond, "odds:")
	ctx := context.Background()

	c.SetQuote(ctx, sampleQuote("fx-3"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Quote(ctx, "fx-3")
	assert.False(t, ok)

	assert.Equal(t, 1, c.PruneMemory())
}

func TestOddsCacheSeparateMarkets(t *testing.T) {
	c := NewOddsCache(nil, time.Minute, "odds:")
	ctx := context.Background()

	c.SetQuote(ctx, sampleQuote("fx-4"))

	_, ok := c.MatchOdds(ctx, "fx-4")
	assert.False(t, ok, "handicap and 1X2 entries must not collide")
}
