// Package cache provides an optional Redis-backed cache for classification
// results. A nil cache is valid and turns every operation into a no-op, so
// the engine works unchanged when Redis is not deployed.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the go-redis client with JSON value handling.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to Redis at the given address. A failed connection
// returns an error rather than a half-working client; callers decide whether
// the cache is mandatory.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &RedisClient{client: client}, nil
}

// Set stores a JSON-encoded value with an expiration.
func (r *RedisClient) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return r.client.Set(ctx, key, jsonBytes, expiration).Err()
}

// Get retrieves a JSON-encoded value into dest.
func (r *RedisClient) Get(ctx context.Context, key string, dest any) error {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
