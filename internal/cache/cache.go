package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/deepsearch/config"
)

// SummaryCache stores page summaries keyed by the exact inputs that produced
// them. A hit must be indistinguishable from a fresh summary; the cache is a
// cost optimisation only and is never relied upon for correctness.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// SummaryKey derives the cache key from the exact summarisation inputs:
// canonical URL, originating query and a hash of the conversation context.
// The same URL under a different query or context produces a different key.
func SummaryKey(url, query, contextHash string) string {
	h := sha256.New()
	h.Write([]byte(url))
	h.Write([]byte{0})
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(contextHash))
	return "deepsearch:summary:" + hex.EncodeToString(h.Sum(nil))
}

// ContextHash fingerprints a rendered conversation for use in SummaryKey.
func ContextHash(rendered string) string {
	sum := sha256.Sum256([]byte(rendered))
	return hex.EncodeToString(sum[:])
}

// RedisCache is a SummaryCache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		DialTimeout: cfg.Timeout,
		Password:    cfg.Password,
		DB:          cfg.DB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, err
	}
	if pong != "PONG" {
		return nil, fmt.Errorf("expected PONG, got %s", pong)
	}

	return &RedisCache{client: client}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NopCache is used when no Redis is configured; every lookup misses.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, key string) (string, bool, error) { return "", false, nil }
func (NopCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return nil
}
