// Package status reports what a running dashboard is configured with and
// how the process is doing.
package status

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

// Path is where the status endpoint is mounted.
const Path = "/api/status"

// Settings reports the live values of reloadable settings.
type Settings interface {
	DefaultTenantID() string
}

type Response struct {
	App              string      `json:"app"`
	Cache            string      `json:"cache"`
	DefaultTenantID  string      `json:"default_tenant_id,omitempty"`
	DedupingInterval string      `json:"deduping_interval"`
	Uptime           string      `json:"uptime"`
	GoVersion        string      `json:"go_version"`
	NumGoroutine     int         `json:"num_goroutine"`
	Memory           MemoryStats `json:"memory"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// Handler serves GET Path.
type Handler struct {
	app              string
	cache            string
	dedupingInterval time.Duration
	settings         Settings
	startTime        time.Time
}

func NewHandler(app, cache string, dedupingInterval time.Duration, settings Settings) *Handler {
	return &Handler{
		app:              app,
		cache:            cache,
		dedupingInterval: dedupingInterval,
		settings:         settings,
		startTime:        time.Now(),
	}
}

func (h *Handler) Mount(r chi.Router) {
	r.Get(Path, h.Status)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	resp := Response{
		App:              h.app,
		Cache:            h.cache,
		DedupingInterval: h.dedupingInterval.String(),
		Uptime:           time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:        runtime.Version(),
		NumGoroutine:     runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}
	if h.settings != nil {
		resp.DefaultTenantID = h.settings.DefaultTenantID()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(resp)
}
