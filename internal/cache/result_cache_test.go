package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taxpadi/taxpadi/internal/model"
)

func TestResultCacheWithoutRedisNeverHits(t *testing.T) {
	c := NewResultCache(nil, 0)

	result, ok := c.Get(context.Background(), "somehash")
	assert.Nil(t, result)
	assert.False(t, ok)

	// Writes are silently dropped, never errors.
	err := c.Set(context.Background(), "somehash", model.ClassificationResult{
		Category: "sale", Confidence: 0.9, Provenance: model.ProvenanceAI,
	})
	assert.NoError(t, err)
}

func TestNilResultCacheIsSafe(t *testing.T) {
	var c *ResultCache

	_, ok := c.Get(context.Background(), "somehash")
	assert.False(t, ok)
	assert.NoError(t, c.Set(context.Background(), "somehash", model.ClassificationResult{}))
}

func TestCacheKeyIsNamespaced(t *testing.T) {
	assert.Equal(t, "classify:abc123", cacheKey("abc123"))
}
