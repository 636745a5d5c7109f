package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheHotelsKey   = "storefront:hotels"
	cacheRoomsPrefix = "storefront:rooms:"
)

func roomsCacheKey(hotelID int64) string {
	return fmt.Sprintf("%s%d", cacheRoomsPrefix, hotelID)
}

// responseCache is an optional redis read-through cache for catalog GETs.
type responseCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func (c *responseCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func (c *responseCache) read(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *responseCache) write(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

// invalidate drops the given keys and every key under the prefixes.
func (c *responseCache) invalidate(ctx context.Context, keys []string, prefixes ...string) {
	if !c.enabled() {
		return
	}
	if len(keys) > 0 {
		_ = c.redis.Del(ctx, keys...).Err()
	}
	for _, prefix := range prefixes {
		iter := c.redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
		var matched []string
		for iter.Next(ctx) {
			matched = append(matched, iter.Val())
		}
		if len(matched) > 0 {
			_ = c.redis.Del(ctx, matched...).Err()
		}
	}
}
