package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/sk8-dashboard/internal/adapters/config/file"
	"github.com/tjfontaine/sk8-dashboard/internal/adapters/events/direct"
	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/config"
)

// Option is a functional option for configuring a Dashboard.
type Option func(*Dashboard) error

// WithFileConfig loads configuration from path plus the environment. Once
// started, later edits to upstream.default_tenant_id in the file are applied
// without a restart.
func WithFileConfig(path string) Option {
	return func(d *Dashboard) error {
		provider, err := file.NewProvider(path, d.logger)
		if err != nil {
			return err
		}
		cfg, err := provider.Load(context.Background())
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		d.cfg = cfg
		d.configProvider = provider
		return nil
	}
}

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(d *Dashboard) error {
		d.cfg = cfg
		return nil
	}
}

// WithAppKind overrides app.kind from the loaded configuration.
func WithAppKind(kind string) Option {
	return func(d *Dashboard) error {
		d.appKind = kind
		return nil
	}
}

// WithLogger sets a custom logger. Place it before WithFileConfig for the
// config provider to log through it.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dashboard) error {
		d.logger = logger
		return nil
	}
}

// WithCache sets the pipeline listing cache, overriding cache.type.
func WithCache(cache ports.Cache[[]domain.Pipeline]) Option {
	return func(d *Dashboard) error {
		d.cache = cache
		return nil
	}
}

// WithEventPublisher sets a custom toggle event publisher. It cannot be
// combined with WithToggleHandler.
func WithEventPublisher(publisher ports.EventPublisher) Option {
	return func(d *Dashboard) error {
		d.events = publisher
		return nil
	}
}

// WithToggleHandler registers a handler on the default direct publisher.
// Handlers run in registration order for every toggle.
func WithToggleHandler(h direct.Handler) Option {
	return func(d *Dashboard) error {
		d.toggleHandlers = append(d.toggleHandlers, h)
		return nil
	}
}

// WithUpstreamHTTPClient sets the client the proxy uses to reach the
// pipeline API. upstream.deny_private is ignored when set.
func WithUpstreamHTTPClient(c *http.Client) Option {
	return func(d *Dashboard) error {
		d.upstreamClient = c
		return nil
	}
}
