package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded on UpstreamRequests.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

var (
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sk8_upstream_requests_total",
			Help: "Requests forwarded to the pipeline API, by outcome and status code",
		},
		[]string{"outcome", "status"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sk8_cache_lookups_total",
			Help: "Pipeline listing cache lookups, by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	PipelineFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sk8_pipeline_fetches_total",
			Help: "Pipeline listings fetched by the dashboard, by result (ok, error)",
		},
		[]string{"result"},
	)

	ToggleEvents = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sk8_toggle_events_total",
			Help: "Pipeline toggle intents published",
		},
	)
)

var registerOnce sync.Once

// Init registers metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(UpstreamRequests)
		prometheus.MustRegister(CacheLookups)
		prometheus.MustRegister(PipelineFetches)
		prometheus.MustRegister(ToggleEvents)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
