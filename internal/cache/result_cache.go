package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/taxpadi/taxpadi/internal/model"
)

// ResultCache caches classification results keyed by the transaction hash
// (tenant + normalized narration + amount).
type ResultCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewResultCache creates a result cache. A nil redis client yields a cache
// that never hits.
func NewResultCache(redis *RedisClient, ttl time.Duration) *ResultCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &ResultCache{redis: redis, ttl: ttl}
}

// Get returns the cached result for a transaction hash, if present.
func (c *ResultCache) Get(ctx context.Context, hash string) (*model.ClassificationResult, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}

	var result model.ClassificationResult
	if err := c.redis.Get(ctx, cacheKey(hash), &result); err != nil {
		return nil, false
	}

	return &result, true
}

// Set stores a result for a transaction hash. Errors are returned for the
// caller to log; a cache write failure never matters beyond that.
func (c *ResultCache) Set(ctx context.Context, hash string, result model.ClassificationResult) error {
	if c == nil || c.redis == nil {
		return nil
	}

	return c.redis.Set(ctx, cacheKey(hash), result, c.ttl)
}

func cacheKey(hash string) string {
	return fmt.Sprintf("classify:%s", hash)
}
