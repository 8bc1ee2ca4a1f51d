package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
}

func TestHandlerExposesCounters(t *testing.T) {
	Init()

	before := testutil.ToFloat64(UpstreamRequests.WithLabelValues(OutcomeRejected, "404"))
	UpstreamRequests.WithLabelValues(OutcomeRejected, "404").Inc()
	if got := testutil.ToFloat64(UpstreamRequests.WithLabelValues(OutcomeRejected, "404")); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "sk8_upstream_requests_total") {
		t.Error("metrics output does not include sk8_upstream_requests_total")
	}
}
