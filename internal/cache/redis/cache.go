// Package redis provides a ports.Cache shared across dashboard instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ ports.Cache[string] = (*Cache[string])(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key, e.g. "sk8:".
	Prefix string
}

// Cache stores JSON-encoded values of type V in Redis.
type Cache[V any] struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection with PING.
func New[V any](ctx context.Context, opts Options) (*Cache[V], error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis cache: ping %s: %w", opts.Addr, err)
	}
	return NewWithClient[V](client, opts.Prefix), nil
}

// NewWithClient wraps an existing client.
func NewWithClient[V any](client *redis.Client, prefix string) *Cache[V] {
	return &Cache[V]{client: client, prefix: prefix}
}

func (c *Cache[V]) key(key string) string {
	return c.prefix + key
}

func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("redis cache: get %q: %w", key, err)
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("redis cache: decode %q: %w", key, err)
	}
	return v, true, nil
}

func (c *Cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis cache: encode %q: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis cache: set %q: %w", key, err)
	}
	return nil
}

func (c *Cache[V]) Invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis cache: del %q: %w", key, err)
	}
	return nil
}

func (c *Cache[V]) Close() error {
	return c.client.Close()
}
