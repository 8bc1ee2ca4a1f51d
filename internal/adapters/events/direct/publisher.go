// Package direct provides an in-process toggle event publisher.
package direct

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/metrics"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Handler receives a toggle intent. Handlers own the write path; the
// dashboard never changes a pipeline itself.
type Handler func(ctx context.Context, event *domain.ToggleEvent) error

// Publisher implements ports.EventPublisher by logging each event and
// calling every subscribed handler in order on the publishing goroutine.
// This is the default for single-instance deployments.
type Publisher struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers []Handler
	closed   bool
}

// NewPublisher creates a publisher with the given initial handlers.
func NewPublisher(logger *slog.Logger, handlers ...Handler) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		logger:   logger,
		handlers: handlers,
	}
}

// Subscribe adds a handler for subsequent events.
func (p *Publisher) Subscribe(h Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

// Publish delivers event to every handler. All handlers run even if one
// fails; their errors are joined.
func (p *Publisher) Publish(ctx context.Context, event *domain.ToggleEvent) error {
	if event == nil {
		return fmt.Errorf("toggle event required")
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrClosed
	}
	handlers := append([]Handler(nil), p.handlers...)
	p.mu.RUnlock()

	p.logger.InfoContext(ctx, "pipeline toggle requested",
		slog.String("event_id", event.ID.String()),
		slog.String("tenant_id", event.Pipeline.TenantID),
		slog.String("pipeline_id", event.Pipeline.PipelineID),
		slog.Bool("is_active", event.Pipeline.IsActive),
	)
	metrics.ToggleEvents.Inc()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("toggle %s: %w", event.Pipeline.Key(), err)
	}
	return nil
}

// Close stops further publishing.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
