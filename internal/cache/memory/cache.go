// Package memory provides an in-process ports.Cache backed by ristretto.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
)

var _ ports.Cache[string] = (*Cache[string])(nil)

// Cache stores values of type V in process memory. Entries expire after the
// TTL given to Set.
type Cache[V any] struct {
	store *ristretto.Cache
}

// New creates an empty cache sized for at most maxEntries values.
func New[V any](maxEntries int64) (*Cache[V], error) {
	if maxEntries <= 0 {
		maxEntries = 1024
	}

	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:            maxEntries * 10,
		MaxCost:                maxEntries,
		BufferItems:            64,
		IgnoreInternalCost:     true,
		TtlTickerDurationInSec: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("memory cache: %w", err)
	}
	return &Cache[V]{store: store}, nil
}

func (c *Cache[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V

	raw, ok := c.store.Get(key)
	if !ok {
		return zero, false, nil
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false, fmt.Errorf("memory cache: unexpected value type %T for %q", raw, key)
	}
	return v, true, nil
}

// Set stores value with cost 1. The write is visible to Get once Set
// returns.
func (c *Cache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if !c.store.SetWithTTL(key, value, 1, ttl) {
		return fmt.Errorf("memory cache: set %q dropped", key)
	}
	c.store.Wait()
	return nil
}

func (c *Cache[V]) Invalidate(_ context.Context, key string) error {
	c.store.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *Cache[V]) Close() {
	c.store.Close()
}
