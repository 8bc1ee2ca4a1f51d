// Package ports defines the interfaces the dashboard runtime is assembled from.
package ports

import (
	"context"
	"time"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/config"
)

// Cache stores values under string keys for a bounded time.
// Implementations: in-process ristretto (default), Redis.
type Cache[V any] interface {
	// Get returns the value stored under key. ok is false on a miss or
	// once the entry's TTL has elapsed.
	Get(ctx context.Context, key string) (value V, ok bool, err error)
	// Set stores value under key for ttl. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Invalidate drops key. Missing keys are not an error.
	Invalidate(ctx context.Context, key string) error
}

// PipelineFetcher loads a pipeline listing, optionally scoped to a tenant.
// An empty tenantID means "every tenant the API is willing to return".
type PipelineFetcher interface {
	FetchPipelines(ctx context.Context, tenantID string) ([]domain.Pipeline, error)
}

// EventPublisher delivers toggle intents to whoever owns the write path.
// Implementations: direct in-process fan-out (default).
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.ToggleEvent) error
	Close() error
}

// ConfigProvider loads configuration and reports later changes to it.
// Implementations: file with fsnotify reload.
type ConfigProvider interface {
	Load(ctx context.Context) (*config.Config, error)
	Watch(ctx context.Context, onChange func(*config.Config)) error
	Close() error
}
