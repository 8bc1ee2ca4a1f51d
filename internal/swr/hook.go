// Package swr keeps pipeline listings fresh with stale-while-revalidate
// semantics.
//
// A Hook answers every Use call from its cache when it can, shares one
// in-flight request per key between concurrent callers, and reuses a
// resolved result for DedupingInterval before asking the fetcher again.
// There is no revalidation on focus or reconnect; Refresh is the only way
// to bypass the window.
package swr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tjfontaine/sk8-dashboard/internal/client"
	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/metrics"
)

const (
	// DefaultDedupingInterval is how long a resolved listing is reused.
	DefaultDedupingInterval = 60 * time.Second
	// DefaultWaitForData bounds how long Use blocks on a first fetch.
	DefaultWaitForData = 2 * time.Second
)

// State is a snapshot of one key's listing.
type State struct {
	Key       string
	Pipelines []domain.Pipeline
	// HasData is true once any fetch for the key has succeeded.
	HasData bool
	// IsLoading is true while a fetch is in flight and neither data nor an
	// error is available.
	IsLoading bool
	// Err is the most recent fetch error, cleared by the next success.
	Err error
	// UpdatedAt is when the data was last fetched by this hook. Zero when
	// the data came from a cache filled elsewhere.
	UpdatedAt time.Time
}

// Option configures a Hook.
type Option func(*Hook)

// WithDedupingInterval overrides DefaultDedupingInterval.
func WithDedupingInterval(d time.Duration) Option {
	return func(h *Hook) {
		h.interval = d
	}
}

// WithWaitForData overrides DefaultWaitForData.
func WithWaitForData(d time.Duration) Option {
	return func(h *Hook) {
		h.waitForData = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hook) {
		h.logger = logger
	}
}

// WithKeyFunc overrides the cache key derivation. The default is
// client.Path.
func WithKeyFunc(fn func(tenantID string) string) Option {
	return func(h *Hook) {
		h.keyFunc = fn
	}
}

type entry struct {
	data       []domain.Pipeline
	hasData    bool
	err        error
	updatedAt  time.Time
	resolvedAt time.Time
	loading    bool
}

func (e *entry) state(key string) State {
	return State{
		Key:       key,
		Pipelines: e.data,
		HasData:   e.hasData,
		IsLoading: e.loading && !e.hasData && e.err == nil,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
	}
}

// Hook is safe for concurrent use.
type Hook struct {
	fetcher     ports.PipelineFetcher
	cache       ports.Cache[[]domain.Pipeline]
	group       singleflight.Group
	logger      *slog.Logger
	interval    time.Duration
	waitForData time.Duration
	keyFunc     func(string) string
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a hook reading through fetcher and storing results in cache.
func New(fetcher ports.PipelineFetcher, cache ports.Cache[[]domain.Pipeline], opts ...Option) *Hook {
	h := &Hook{
		fetcher:     fetcher,
		cache:       cache,
		logger:      slog.Default(),
		interval:    DefaultDedupingInterval,
		waitForData: DefaultWaitForData,
		keyFunc:     client.Path,
		now:         time.Now,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Key returns the cache key for a tenant scope.
func (h *Hook) Key(tenantID string) string {
	return h.keyFunc(tenantID)
}

// Use returns the listing for tenantID's scope.
//
// A cached or recently resolved result is returned without a request.
// Otherwise a revalidation starts; stale data is returned immediately,
// and with no data at all Use waits up to WaitForData (or ctx) for the
// result. The revalidation always runs to completion.
func (h *Hook) Use(ctx context.Context, tenantID string) State {
	key := h.keyFunc(tenantID)

	if data, ok := h.lookup(ctx, key); ok {
		h.mu.Lock()
		s := h.entry(key).state(key)
		h.mu.Unlock()
		s.Pipelines = data
		s.HasData = true
		s.IsLoading = false
		return s
	}

	h.mu.Lock()
	e := h.entry(key)
	if !e.resolvedAt.IsZero() && h.now().Sub(e.resolvedAt) < h.interval {
		s := e.state(key)
		h.mu.Unlock()
		return s
	}
	e.loading = true
	stale := e.hasData
	h.mu.Unlock()

	done := h.revalidate(ctx, key, tenantID)
	if stale {
		return h.snapshot(key)
	}

	timer := time.NewTimer(h.waitForData)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
	return h.snapshot(key)
}

// Refresh fetches tenantID's listing now, ignoring the deduping window,
// and returns the resulting state. On failure the previous data is kept
// and the error is exposed alongside it.
func (h *Hook) Refresh(ctx context.Context, tenantID string) State {
	key := h.keyFunc(tenantID)

	h.group.Forget(key)
	done := h.revalidate(ctx, key, tenantID)

	select {
	case <-done:
	case <-ctx.Done():
	}
	return h.snapshot(key)
}

// Invalidate drops tenantID's cached listing so the next Use fetches
// again and waits for the result.
func (h *Hook) Invalidate(ctx context.Context, tenantID string) error {
	key := h.keyFunc(tenantID)

	h.mu.Lock()
	delete(h.entries, key)
	h.mu.Unlock()
	h.group.Forget(key)

	return h.cache.Invalidate(ctx, key)
}

func (h *Hook) lookup(ctx context.Context, key string) ([]domain.Pipeline, bool) {
	data, ok, err := h.cache.Get(ctx, key)
	switch {
	case err != nil:
		h.logger.WarnContext(ctx, "pipeline cache lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	case ok:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return data, true
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
}

// revalidate starts, or joins, the fetch for key. The fetch runs on a
// context detached from the caller's cancellation.
func (h *Hook) revalidate(ctx context.Context, key, tenantID string) <-chan singleflight.Result {
	fetchCtx := context.WithoutCancel(ctx)
	return h.group.DoChan(key, func() (any, error) {
		return h.fetch(fetchCtx, key, tenantID)
	})
}

func (h *Hook) fetch(ctx context.Context, key, tenantID string) ([]domain.Pipeline, error) {
	h.mu.Lock()
	e := h.entry(key)
	e.loading = true
	h.mu.Unlock()

	pipelines, err := h.fetcher.FetchPipelines(ctx, tenantID)

	h.mu.Lock()
	e.loading = false
	e.resolvedAt = h.now()
	if err != nil {
		e.err = err
		h.mu.Unlock()

		h.logger.ErrorContext(ctx, "pipeline fetch failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		metrics.PipelineFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	e.data = pipelines
	e.hasData = true
	e.err = nil
	e.updatedAt = e.resolvedAt
	h.mu.Unlock()

	metrics.PipelineFetches.WithLabelValues("ok").Inc()

	if err := h.cache.Set(ctx, key, pipelines, h.interval); err != nil {
		h.logger.WarnContext(ctx, "pipeline cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return pipelines, nil
}

func (h *Hook) snapshot(key string) State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entry(key).state(key)
}

// entry returns key's bookkeeping, creating it. Callers hold h.mu.
func (h *Hook) entry(key string) *entry {
	e, ok := h.entries[key]
	if !ok {
		e = &entry{}
		h.entries[key] = e
	}
	return e
}
