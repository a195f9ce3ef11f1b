package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig points the cache at a Redis server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient builds a go-redis client with short timeouts; the cache treats
// every Redis failure as a miss, so a slow server must not stall callers.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Redis stores JSON-encoded values under a key prefix with a server-side expiry.
type Redis[V any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis wraps client; keys are stored as prefix+key.
func NewRedis[V any](client redis.UniversalClient, prefix string, ttl time.Duration, logger *slog.Logger) *Redis[V] {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Redis[V]{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		logger: logger.With("component", "redis_cache", "prefix", prefix),
	}
}

// Get loads and decodes key; errors are logged and reported as a miss.
func (c *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", "key", key, "error", err)
		}
		return zero, false
	}

	var value V
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.Warn("decode cached value", "key", key, "error", err)
		return zero, false
	}
	return value, true
}

// Put encodes value and stores it with the cache ttl.
func (c *Redis[V]) Put(ctx context.Context, key string, value V) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("encode cached value", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}
}

// Clear deletes every key under the prefix and returns how many were removed.
func (c *Redis[V]) Clear(ctx context.Context) int {
	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis scan failed", "error", err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	removed, err := c.client.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Warn("redis delete failed", "error", err)
		return 0
	}
	return int(removed)
}
