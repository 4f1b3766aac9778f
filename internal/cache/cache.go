package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"gazetteer-api/internal/models"

	"github.com/redis/go-redis/v9"
)

// SearchCache is an optional read-through cache for search responses.
// All methods are safe on a nil receiver, so callers wire it
// unconditionally and the cache simply disappears when disabled.
type SearchCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps a Redis client; rdb may be nil to disable caching.
func New(rdb *redis.Client, ttl time.Duration) *SearchCache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SearchCache{rdb: rdb, ttl: ttl}
}

// Key derives a stable cache key from the normalized search parameters.
func Key(normQuery string, typ models.PlaceType, limit int, near *models.Point) string {
	if near != nil {
		return fmt.Sprintf("search:%s:%s:%d:%.4f:%.4f", typ, normQuery, limit, near.Lat, near.Lon)
	}
	return fmt.Sprintf("search:%s:%s:%d", typ, normQuery, limit)
}

// Get returns the cached result set for key, if any. Cache errors count
// as misses; the store remains the source of truth.
func (c *SearchCache) Get(ctx context.Context, key string) ([]models.Place, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil || raw == "" {
		c.misses.Add(1)
		return nil, false
	}
	var places []models.Place
	if err := json.Unmarshal([]byte(raw), &places); err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return places, true
}

// Set stores a result set under key. Failures are ignored.
func (c *SearchCache) Set(ctx context.Context, key string, places []models.Place) {
	if c == nil {
		return
	}
	b, err := json.Marshal(places)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, string(b), c.ttl).Err()
}

// Stats returns the hit and miss counters accumulated so far.
func (c *SearchCache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}
	return c.hits.Load(), c.misses.Load()
}
