package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oddscope/matchpulse/internal/models"
)

// CacheStats tracks cache performance metrics
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	mu     sync.RWMutex
}

// OddsCache is a TTL cache for bookmaker quotes keyed by match id.
// It stores entries in Redis when a client is available and falls back
// to an in-process map otherwise, so odds caching survives a Redis
// outage.
type OddsCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	stats  *CacheStats

	mu     sync.RWMutex
	memory map[string]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// NewOddsCache creates a cache with the given TTL. redisClient may be
// nil, in which case the in-memory store is used exclusively.
func NewOddsCache(redisClient *redis.Client, ttl time.Duration, prefix string) *OddsCache {
	return &OddsCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: prefix,
		stats:  &CacheStats{},
		memory: make(map[string]memoryEntry),
	}
}

// SetQuote caches a live handicap quote for its match.
func (c *OddsCache) SetQuote(ctx context.Context, quote *models.HandicapQuote) {
	c.set(ctx, "quote:"+quote.MatchID, quote)
}

// Quote returns the cached handicap quote for a match, if fresh.
func (c *OddsCache) Quote(ctx context.Context, matchID string) (*models.HandicapQuote, bool) {
	var quote models.HandicapQuote
	if !c.get(ctx, "quote:"+matchID, &quote) {
		return nil, false
	}
	return &quote, true
}

// SetMatchOdds caches a 1X2 market quote for its match.
func (c *OddsCache) SetMatchOdds(ctx context.Context, odds *models.MatchOdds) {
	c.set(ctx, "1x2:"+odds.MatchID, odds)
}

// MatchOdds returns the cached 1X2 quote for a match, if fresh.
func (c *OddsCache) MatchOdds(ctx context.Context, matchID string) (*models.MatchOdds, bool) {
	var odds models.MatchOdds
	if !c.get(ctx, "1x2:"+matchID, &odds) {
		return nil, false
	}
	return &odds, true
}

func (c *OddsCache) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to serialize cache entry")
		return
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Redis cache set failed, using memory store")
		} else {
			c.bumpSets()
			return
		}
	}

	c.mu.Lock()
	c.memory[key] = memoryEntry{data: data, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	c.bumpSets()
}

func (c *OddsCache) get(ctx context.Context, key string, dest any) bool {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, c.prefix+key).Bytes()
		switch {
		case err == nil:
			if jsonErr := json.Unmarshal(data, dest); jsonErr == nil {
				c.bumpHits()
				return true
			}
			c.bumpMisses()
			return false
		case err != redis.Nil:
			logrus.WithError(err).WithField("key", key).Warn("Redis cache get failed, trying memory store")
		}
	}

	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		c.bumpMisses()
		return false
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		c.bumpMisses()
		return false
	}
	c.bumpHits()
	return true
}

// PruneMemory drops expired in-memory entries. The redis store expires
// entries on its own.
func (c *OddsCache) PruneMemory() int {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for key, entry := range c.memory {
		if now.After(entry.expiresAt) {
			delete(c.memory, key)
			pruned++
		}
	}
	return pruned
}

// GetStats returns current cache statistics
func (c *OddsCache) GetStats() CacheStats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return CacheStats{
		Hits:   c.stats.Hits,
		Misses: c.stats.Misses,
		Sets:   c.stats.Sets,
	}
}

// LogStats logs current cache performance statistics
func (c *OddsCache) LogStats() {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}

	logrus.WithFields(logrus.Fields{
		"prefix":   c.prefix,
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"hit_rate": hitRate,
	}).Info("Odds cache stats")
}

func (c *OddsCache) bumpHits() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
}

func (c *OddsCache) bumpMisses() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
}

func (c *OddsCache) bumpSets() {
	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.mu.Unlock()
}
