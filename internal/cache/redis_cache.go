package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is the lookup-cache contract the Taxonomy Matcher and
// Embedding Producer depend on: a signature (built via BuildSignature)
// maps to an arbitrary JSON-encodable value.
type Cache interface {
	Get(ctx context.Context, signature string, out any) (bool, error)
	Set(ctx context.Context, signature string, value any) error
}

// RedisCache backs the lookup cache with Redis when REDIS_ADDR is
// configured, using simple key/value GET/SET with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "blogintel:lookup:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisCache{client: client, ttl: cfg.TTL, prefix: cfg.Prefix}, nil
}

var _ Cache = (*RedisCache)(nil)

func (c *RedisCache) Get(ctx context.Context, signature string, out any) (bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+signature).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("redis cache get: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, signature string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+signature, encoded, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// InProcessCache adapts SemanticCache to the Cache interface, used
// when REDIS_ADDR is unset so taxonomy/embedding lookups still get a
// bounded, TTL'd cache without a Redis dependency.
type InProcessCache struct {
	inner *SemanticCache
}

func NewInProcessCache(cfg Config) *InProcessCache {
	return &InProcessCache{inner: NewSemanticCache(cfg)}
}

var _ Cache = (*InProcessCache)(nil)

func (c *InProcessCache) Get(ctx context.Context, signature string, out any) (bool, error) {
	entry, ok := c.inner.Get(signature)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.Value, out); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

func (c *InProcessCache) Set(ctx context.Context, signature string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	c.inner.Set(signature, Entry{Value: encoded})
	return nil
}
