// Package pipelines serves the same-origin pipelines API that the
// dashboard's fetch client calls.
package pipelines

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/proxy"
	"github.com/tjfontaine/sk8-dashboard/internal/server"
)

// Path is where the API is mounted.
const Path = "/api/pipelines"

// Forwarder is the part of the proxy gateway the handler needs.
type Forwarder interface {
	Raw(ctx context.Context, endpoint, tenantID string) domain.ProxyResponse[json.RawMessage]
}

var _ Forwarder = (*proxy.Gateway)(nil)

// Handler answers GET and OPTIONS on Path.
type Handler struct {
	upstream        Forwarder
	defaultTenantID atomic.Pointer[string]
	logger          *slog.Logger
}

// NewHandler creates the handler. defaultTenantID scopes requests that
// carry no tenantId query parameter; empty means unscoped.
func NewHandler(upstream Forwarder, defaultTenantID string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{upstream: upstream, logger: logger}
	h.SetDefaultTenantID(defaultTenantID)
	return h
}

// DefaultTenantID returns the tenant used when a request names none.
func (h *Handler) DefaultTenantID() string {
	return *h.defaultTenantID.Load()
}

// SetDefaultTenantID replaces the default tenant for subsequent requests.
func (h *Handler) SetDefaultTenantID(tenantID string) {
	h.defaultTenantID.Store(&tenantID)
}

// Mount registers the routes on r. Every response, including 405s,
// carries the CORS headers.
func (h *Handler) Mount(r chi.Router) {
	r.Route(Path, func(r chi.Router) {
		r.Use(server.CORSMiddleware)
		r.Get("/", h.List)
		r.Options("/", h.Preflight)
	})
}

// List forwards to the upstream pipelines endpoint. The tenantId query
// parameter wins over the default tenant. A successful upstream body is
// relayed unchanged; a failure becomes {"error": "..."}. The upstream
// status is kept either way.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenantId")
	if tenantID == "" {
		tenantID = h.DefaultTenantID()
	}
	server.AddLogField(r.Context(), "tenant_id", tenantID)

	result := h.upstream.Raw(r.Context(), proxy.PipelinesEndpoint, tenantID)
	if !result.Success {
		server.AddLogField(r.Context(), "upstream_error", result.Error)
		writeJSON(w, result.Status, domain.ErrorBody{Error: result.Error})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	if _, err := w.Write(result.Data); err != nil {
		h.logger.WarnContext(r.Context(), "failed to write response", slog.String("error", err.Error()))
	}
}

// Preflight answers CORS preflight requests with an empty object.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct{}{})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
