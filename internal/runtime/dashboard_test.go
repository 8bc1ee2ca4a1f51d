package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/config"
)

func testConfig(baseURL, kind string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 0, Timeout: 5 * time.Second},
		Upstream: config.UpstreamConfig{BaseURL: baseURL, DefaultTenantID: "xxx-ten-1"},
		Cache:    config.CacheConfig{Type: config.CacheMemory, TTL: time.Minute},
		App:      config.AppConfig{Kind: kind, VendorName: "Vendor 1"},
	}
}

type upstream struct {
	*httptest.Server
	requests atomic.Int32
	queries  chan string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{queries: make(chan string, 16)}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.requests.Add(1)
		select {
		case u.queries <- r.URL.RawQuery:
		default:
		}
		if r.URL.Path != "/pipelines" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[{"tenantId":"xxx-ten-1","pipelineId":"p-001","pipelineName":"Ingest orders","isActive":true},{"tenantId":"xxx-ten-1","pipelineId":"p-002","pipelineName":"Nightly export","isActive":false}]`)
	}))
	t.Cleanup(u.Close)
	return u
}

func startDashboard(t *testing.T, opts ...Option) *Dashboard {
	t.Helper()
	d, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return d
}

func get(t *testing.T, target string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(target)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New() without configuration should fail")
	}
	if _, err := New(WithConfig(&config.Config{})); err == nil {
		t.Error("New() with invalid configuration should fail")
	}
}

func TestNew_ToggleHandlerNeedsDirectPublisher(t *testing.T) {
	cfg := testConfig("http://upstream.invalid", config.AppAdmin)
	_, err := New(
		WithConfig(cfg),
		WithEventPublisher(nopPublisher{}),
		WithToggleHandler(func(context.Context, *domain.ToggleEvent) error { return nil }),
	)
	if err == nil {
		t.Error("expected an error combining WithEventPublisher and WithToggleHandler")
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *domain.ToggleEvent) error { return nil }
func (nopPublisher) Close() error                                     { return nil }

func TestDashboard_APIFallsBackToDefaultTenant(t *testing.T) {
	up := newUpstream(t)
	d := startDashboard(t, WithConfig(testConfig(up.URL, config.AppEmbedded)))

	resp, body := get(t, d.BaseURL()+"/api/pipelines")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if got := <-up.queries; got != "tenantId=xxx-ten-1" {
		t.Errorf("upstream query = %q", got)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}

	var pipelines []domain.Pipeline
	if err := json.Unmarshal([]byte(body), &pipelines); err != nil || len(pipelines) != 2 {
		t.Errorf("body = %s (%v)", body, err)
	}
}

func TestDashboard_PageRendersAndDedupes(t *testing.T) {
	up := newUpstream(t)
	d := startDashboard(t, WithConfig(testConfig(up.URL, config.AppAdmin)))

	for i := 0; i < 2; i++ {
		resp, body := get(t, d.BaseURL()+"/")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		for _, want := range []string{"SK8 Admin", "Tenant Pipelines", "1 active / 2 total"} {
			if !strings.Contains(body, want) {
				t.Errorf("page %d missing %q", i, want)
			}
		}
	}

	if got := up.requests.Load(); got != 1 {
		t.Errorf("upstream requests = %d, want 1", got)
	}
}

func TestDashboard_UpstreamFailureRendersErrorView(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	d := startDashboard(t, WithConfig(testConfig(failing.URL, config.AppEmbedded)))

	resp, body := get(t, d.BaseURL()+"/api/pipelines")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("api status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, domain.ErrMessageUpstream) {
		t.Errorf("api body = %s", body)
	}

	_, page := get(t, d.BaseURL()+"/")
	if !strings.Contains(page, "Failed to load pipelines.") {
		t.Errorf("page does not show the error view:\n%s", page)
	}
	if !strings.Contains(page, "Amazing <span class=\"primary\">Vendor 1</span> App Using SK8") {
		t.Error("embedded heading missing")
	}
}

func TestDashboard_ToggleReachesHandler(t *testing.T) {
	up := newUpstream(t)
	events := make(chan *domain.ToggleEvent, 1)

	d := startDashboard(t,
		WithConfig(testConfig(up.URL, config.AppAdmin)),
		WithToggleHandler(func(_ context.Context, e *domain.ToggleEvent) error {
			events <- e
			return nil
		}),
	)

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noRedirect.PostForm(d.BaseURL()+"/pipelines/xxx-ten-1/p-002/toggle", url.Values{"scope": {""}})
	if err != nil {
		t.Fatalf("POST toggle: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.StatusCode)
	}

	select {
	case e := <-events:
		if e.Pipeline.PipelineID != "p-002" || e.Pipeline.IsActive {
			t.Errorf("event pipeline = %+v", e.Pipeline)
		}
	case <-time.After(time.Second):
		t.Fatal("toggle handler was not called")
	}
}

func TestDashboard_MetricsAndHealth(t *testing.T) {
	up := newUpstream(t)
	d := startDashboard(t, WithConfig(testConfig(up.URL, config.AppEmbedded)))

	get(t, d.BaseURL()+"/api/pipelines")

	resp, body := get(t, d.BaseURL()+"/metrics")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "sk8_upstream_requests_total") {
		t.Errorf("GET /metrics = %d", resp.StatusCode)
	}

	resp, body = get(t, d.BaseURL()+"/api/status")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"default_tenant_id":"xxx-ten-1"`) {
		t.Errorf("GET /api/status = %d %s", resp.StatusCode, body)
	}

	resp, body = get(t, d.BaseURL()+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok" {
		t.Errorf("GET /healthz = %d %q", resp.StatusCode, body)
	}
}

func TestDashboard_FileConfigReloadsDefaultTenant(t *testing.T) {
	for _, key := range []string{"AWS_API_BASE_URL", "DEFAULT_TENANT_ID", "SK8_SERVER__PORT", "SK8_APP__KIND"} {
		key := key
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}

	up := newUpstream(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig := func(tenant string) {
		content := fmt.Sprintf("server:\n  port: 0\nupstream:\n  base_url: %s\n  default_tenant_id: %s\n", up.URL, tenant)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	writeConfig("xxx-ten-1")

	d := startDashboard(t, WithFileConfig(path), WithAppKind(config.AppEmbedded))
	if d.Config().App.Kind != config.AppEmbedded {
		t.Errorf("app kind = %q, want embedded", d.Config().App.Kind)
	}

	get(t, d.BaseURL()+"/api/pipelines")
	if got := <-up.queries; got != "tenantId=xxx-ten-1" {
		t.Fatalf("upstream query = %q", got)
	}

	writeConfig("xxx-ten-2")

	deadline := time.Now().Add(5 * time.Second)
	for d.api.DefaultTenantID() != "xxx-ten-2" {
		if time.Now().After(deadline) {
			t.Fatal("default tenant was not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}

	get(t, d.BaseURL()+"/api/pipelines")
	if got := <-up.queries; got != "tenantId=xxx-ten-2" {
		t.Errorf("upstream query after reload = %q", got)
	}
}

func TestDashboard_AdminListsEveryTenant(t *testing.T) {
	up := newUpstream(t)
	d := startDashboard(t, WithConfig(testConfig(up.URL, config.AppAdmin)))

	resp, body := get(t, d.BaseURL()+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Tenant Pipelines") {
		t.Error("admin heading missing")
	}
	if got := <-up.queries; got != "" {
		t.Errorf("upstream query = %q, want none", got)
	}

	resp, _ = get(t, d.BaseURL()+"/api/pipelines?tenantId=xxx-ten-2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scoped status = %d", resp.StatusCode)
	}
	if got := <-up.queries; got != "tenantId=xxx-ten-2" {
		t.Errorf("explicit tenant query = %q", got)
	}

	_, status := get(t, d.BaseURL()+"/api/status")
	if strings.Contains(status, "default_tenant_id") {
		t.Errorf("admin status reports a default tenant: %s", status)
	}
}

func TestDashboard_AdminIgnoresDefaultTenantReload(t *testing.T) {
	up := newUpstream(t)
	d := startDashboard(t, WithConfig(testConfig(up.URL, config.AppAdmin)))

	reloaded := testConfig(up.URL, config.AppAdmin)
	reloaded.Upstream.DefaultTenantID = "xxx-ten-2"
	d.reload(reloaded)

	if got := d.api.DefaultTenantID(); got != "" {
		t.Errorf("admin default tenant = %q, want empty", got)
	}
}
