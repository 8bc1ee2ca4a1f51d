// Package runtime assembles the pipeline dashboard and manages its HTTP
// lifecycle. A Dashboard can be embedded in a larger program or run by
// the admin and embedded commands.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/sk8-dashboard/internal/adapters/events/direct"
	"github.com/tjfontaine/sk8-dashboard/internal/api/dashboard"
	"github.com/tjfontaine/sk8-dashboard/internal/api/pipelines"
	"github.com/tjfontaine/sk8-dashboard/internal/api/status"
	"github.com/tjfontaine/sk8-dashboard/internal/cache/memory"
	"github.com/tjfontaine/sk8-dashboard/internal/cache/redis"
	"github.com/tjfontaine/sk8-dashboard/internal/client"
	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/metrics"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/config"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/safehttp"
	"github.com/tjfontaine/sk8-dashboard/internal/proxy"
	"github.com/tjfontaine/sk8-dashboard/internal/server"
	"github.com/tjfontaine/sk8-dashboard/internal/swr"
	"github.com/tjfontaine/sk8-dashboard/internal/view"
)

// memoryCacheEntries bounds the in-process cache. One entry per tenant
// scope.
const memoryCacheEntries = 4096

// Dashboard is one running dashboard application.
type Dashboard struct {
	cfg            *config.Config
	logger         *slog.Logger
	cache          ports.Cache[[]domain.Pipeline]
	events         ports.EventPublisher
	toggleHandlers []direct.Handler
	upstreamClient *http.Client
	configProvider ports.ConfigProvider
	appKind        string

	server    *server.Server
	api       *pipelines.Handler
	hook      *swr.Hook
	stopWatch context.CancelFunc
	baseURL   string
	done      chan struct{}

	// closers release resources the dashboard created itself.
	closers []func() error
	mu      sync.Mutex
}

// New creates a Dashboard. Configuration is required (WithFileConfig or
// WithConfig); everything else defaults from it.
func New(opts ...Option) (*Dashboard, error) {
	d := &Dashboard{logger: slog.Default()}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if d.cfg == nil {
		return nil, errors.New("configuration required (use WithFileConfig or WithConfig)")
	}
	if d.appKind != "" {
		d.cfg.App.Kind = d.appKind
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}

	if d.events == nil {
		d.events = direct.NewPublisher(d.logger, d.toggleHandlers...)
	} else if len(d.toggleHandlers) > 0 {
		return nil, errors.New("WithToggleHandler cannot be combined with WithEventPublisher")
	}

	if d.cache == nil {
		if err := d.initCache(); err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
	}

	return d, nil
}

func (d *Dashboard) initCache() error {
	switch d.cfg.Cache.Type {
	case config.CacheRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		c, err := redis.New[[]domain.Pipeline](ctx, redis.Options{
			Addr:     d.cfg.Cache.Redis.Addr,
			Password: d.cfg.Cache.Redis.Password,
			DB:       d.cfg.Cache.Redis.DB,
			Prefix:   d.cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return err
		}
		d.cache = c
		d.closers = append(d.closers, c.Close)
		d.logger.Info("using redis pipeline cache", slog.String("addr", d.cfg.Cache.Redis.Addr))
	default:
		c, err := memory.New[[]domain.Pipeline](memoryCacheEntries)
		if err != nil {
			return err
		}
		d.cache = c
		d.closers = append(d.closers, func() error { c.Close(); return nil })
		d.logger.Info("using in-memory pipeline cache")
	}
	return nil
}

// Start wires the components, binds the configured port and serves in the
// background.
func (d *Dashboard) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.server != nil {
		return errors.New("dashboard already started")
	}

	metrics.Init()

	gateway, err := proxy.New(d.cfg.Upstream.BaseURL,
		proxy.WithHTTPClient(d.newUpstreamClient()),
		proxy.WithLogger(d.logger),
	)
	if err != nil {
		return fmt.Errorf("create proxy: %w", err)
	}

	renderer, err := view.NewRenderer(d.logger)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	srv := server.New(server.Options{
		Port:        d.cfg.Server.Port,
		Timeout:     d.cfg.Server.Timeout,
		ServiceName: "sk8-" + d.cfg.App.Kind,
	}, d.logger)

	ln, err := srv.Listen()
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	d.baseURL = fmt.Sprintf("http://127.0.0.1:%d", ln.Addr().(*net.TCPAddr).Port)

	// The table reads through the dashboard's own API, as a browser would.
	fetcher := client.New(d.baseURL)
	hook := swr.New(fetcher, d.cache,
		swr.WithDedupingInterval(d.cfg.Cache.TTL),
		swr.WithLogger(d.logger),
	)

	api := pipelines.NewHandler(gateway, d.fallbackTenantID(d.cfg), d.logger)
	api.Mount(srv.Router)
	dashboard.NewHandler(hook, renderer, d.profile(), d.events, d.logger).Mount(srv.Router)
	status.NewHandler(d.cfg.App.Kind, d.cfg.Cache.Type, d.cfg.Cache.TTL, api).Mount(srv.Router)
	srv.Router.Handle("/metrics", metrics.Handler())
	d.api = api
	d.hook = hook

	if d.configProvider != nil {
		watchCtx, cancel := context.WithCancel(context.Background())
		if err := d.configProvider.Watch(watchCtx, d.reload); err != nil {
			cancel()
			d.logger.Warn("config reload disabled", slog.String("error", err.Error()))
		} else {
			d.stopWatch = cancel
		}
	}

	d.server = srv
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		if err := srv.Serve(ln); err != nil {
			d.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	d.logger.InfoContext(ctx, "dashboard started",
		slog.String("app", d.cfg.App.Kind),
		slog.String("addr", ln.Addr().String()),
		slog.String("cache", d.cfg.Cache.Type),
		slog.Duration("deduping_interval", d.cfg.Cache.TTL),
	)
	return nil
}

// BaseURL is the loopback URL the dashboard is serving on. Empty before
// Start.
func (d *Dashboard) BaseURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseURL
}

// Shutdown stops the server and releases resources.
func (d *Dashboard) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logger.Info("shutting down dashboard")

	var errs []error
	if d.stopWatch != nil {
		d.stopWatch()
	}
	if d.configProvider != nil {
		if err := d.configProvider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.server != nil {
		if err := d.server.Shutdown(ctx); err != nil {
			d.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		<-d.done
	}

	if err := d.events.Close(); err != nil {
		d.logger.Error("failed to close events", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil {
			d.logger.Error("failed to close cache", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	d.logger.Info("dashboard shutdown complete")
	return errors.Join(errs...)
}

// Config returns the configuration the dashboard was created with.
func (d *Dashboard) Config() *config.Config {
	return d.cfg
}

// reload applies the settings that can change while serving. Everything
// else in cfg takes effect on the next start.
func (d *Dashboard) reload(cfg *config.Config) {
	tenantID := d.fallbackTenantID(cfg)
	if tenantID == d.api.DefaultTenantID() {
		return
	}
	d.api.SetDefaultTenantID(tenantID)

	// Unscoped listings were fetched for the previous default tenant.
	if err := d.hook.Invalidate(context.Background(), ""); err != nil {
		d.logger.Warn("failed to invalidate pipelines", slog.String("error", err.Error()))
	}
	d.logger.Info("default tenant changed", slog.String("tenant_id", tenantID))
}

// fallbackTenantID is the tenant the API scopes unscoped requests to. The
// admin app lists every tenant, so it never falls back to
// upstream.default_tenant_id.
func (d *Dashboard) fallbackTenantID(cfg *config.Config) string {
	if d.cfg.App.Kind == config.AppAdmin {
		return ""
	}
	return cfg.Upstream.DefaultTenantID
}

func (d *Dashboard) profile() view.Profile {
	if d.cfg.App.Kind == config.AppAdmin {
		return view.AdminProfile()
	}
	return view.EmbeddedProfile(d.cfg.App.VendorName)
}

func (d *Dashboard) newUpstreamClient() *http.Client {
	if d.upstreamClient != nil {
		return d.upstreamClient
	}

	var transport http.RoundTripper = http.DefaultTransport
	if d.cfg.Upstream.DenyPrivate {
		transport = safehttp.NewTransport()
	}
	return &http.Client{Transport: otelhttp.NewTransport(transport)}
}
