package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/invoice-analyzer/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisKeyPrefix namespaces analysis entries in a shared Redis database
const redisKeyPrefix = "invoice-analyzer:analysis:"

// redisEntry is the stored form of a cache entry
type redisEntry struct {
	Analysis  *core.Analysis `json:"analysis"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// RedisCache is a Redis implementation of the CacheRepository interface.
// Expiry is delegated to Redis key TTLs.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	logger.Info("Redis cache connected", zap.String("addr", addr), zap.Int("db", db))
	return NewRedisCacheFromClient(client, logger), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func redisKey(emailID string) string {
	return redisKeyPrefix + emailID
}

// Get retrieves a cached entry for an email id
func (c *RedisCache) Get(ctx context.Context, emailID string) (*core.CacheEntry, error) {
	val, err := c.client.Get(ctx, redisKey(emailID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var stored redisEntry
	if err := json.Unmarshal([]byte(val), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	if stored.Analysis == nil {
		return nil, core.ErrCacheMiss
	}

	return &core.CacheEntry{
		EmailID:   emailID,
		Analysis:  stored.Analysis,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Set stores a cache entry. Entries without an expiry are kept until deleted.
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	data, err := json.Marshal(redisEntry{
		Analysis:  entry.Analysis,
		CreatedAt: entry.CreatedAt,
		ExpiresAt: entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode analysis: %w", err)
	}

	var ttl time.Duration
	if !entry.ExpiresAt.IsZero() {
		ttl = time.Until(entry.ExpiresAt)
		if ttl <= 0 {
			return c.Delete(ctx, entry.EmailID)
		}
	}

	if err := c.client.Set(ctx, redisKey(entry.EmailID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, emailID string) error {
	if err := c.client.Del(ctx, redisKey(emailID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis expires keys on its own
func (c *RedisCache) Cleanup(_ context.Context) error {
	return nil
}

// Stop closes the Redis connection
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
