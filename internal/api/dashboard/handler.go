// Package dashboard serves the HTML dashboard and its form actions.
package dashboard

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/proxy"
	"github.com/tjfontaine/sk8-dashboard/internal/server"
	"github.com/tjfontaine/sk8-dashboard/internal/swr"
	"github.com/tjfontaine/sk8-dashboard/internal/view"
)

// Hook is the data source behind the table.
type Hook interface {
	Use(ctx context.Context, tenantID string) swr.State
	Refresh(ctx context.Context, tenantID string) swr.State
	Invalidate(ctx context.Context, tenantID string) error
}

var _ Hook = (*swr.Hook)(nil)

// Handler renders one application's dashboard.
type Handler struct {
	hook      Hook
	renderer  *view.Renderer
	profile   view.Profile
	publisher ports.EventPublisher
	logger    *slog.Logger
}

func NewHandler(hook Hook, renderer *view.Renderer, profile view.Profile, publisher ports.EventPublisher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		hook:      hook,
		renderer:  renderer,
		profile:   profile,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/refresh", h.Refresh)
	r.Post("/pipelines/{tenantId}/{pipelineId}/toggle", h.Toggle)
}

// Index renders the dashboard for the scope given by the tenantId query
// parameter.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("tenantId")
	state := h.hook.Use(r.Context(), scope)

	var buf bytes.Buffer
	err := h.renderer.Page(&buf, view.PageParams{
		Profile: h.profile,
		Table:   view.NewTable(state, h.profile.ShowTenantColumn, scope),
	})
	if err != nil {
		server.AddError(r.Context(), err)
		http.Error(w, domain.ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// Refresh revalidates the posted scope regardless of the deduping window
// and redirects back to the page.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	scope := r.PostFormValue("scope")

	if state := h.hook.Refresh(r.Context(), scope); state.Err != nil {
		server.AddError(r.Context(), state.Err)
	}
	http.Redirect(w, r, pageURL(scope), http.StatusSeeOther)
}

// Toggle publishes a ToggleEvent for a pipeline in the posted scope's last
// listing. The row's state is not changed locally; the scope is
// invalidated so the next render reads it back from upstream.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	scope := r.PostFormValue("scope")
	tenantID := pathParam(r, "tenantId")
	pipelineID := pathParam(r, "pipelineId")
	server.AddLogField(r.Context(), "tenant_id", tenantID)
	server.AddLogField(r.Context(), "pipeline_id", pipelineID)

	state := h.hook.Use(r.Context(), scope)
	p, ok := domain.Find(state.Pipelines, tenantID, pipelineID)
	if !ok {
		http.Error(w, "pipeline not found", http.StatusNotFound)
		return
	}

	event := domain.NewToggleEvent(p)
	server.AddLogField(r.Context(), "event_id", event.ID.String())
	if err := h.publisher.Publish(r.Context(), event); err != nil {
		server.AddError(r.Context(), err)
		http.Error(w, "Failed to toggle pipeline", http.StatusInternalServerError)
		return
	}

	if err := h.hook.Invalidate(r.Context(), scope); err != nil {
		h.logger.WarnContext(r.Context(), "failed to invalidate pipelines", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, pageURL(scope), http.StatusSeeOther)
}

// pathParam returns a decoded route parameter. chi matches on the raw
// path when the request had escaped slashes.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func pageURL(scope string) string {
	if scope == "" {
		return "/"
	}
	return "/?tenantId=" + proxy.EscapeQueryValue(scope)
}
