package pipelines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/proxy"
)

type fakeForwarder struct {
	tenants []string
	result  domain.ProxyResponse[json.RawMessage]
}

func (f *fakeForwarder) Raw(_ context.Context, endpoint, tenantID string) domain.ProxyResponse[json.RawMessage] {
	f.tenants = append(f.tenants, tenantID)
	return f.result
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func checkCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	for name, want := range map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Accept",
	} {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
}

func TestList_TenantResolution(t *testing.T) {
	tests := []struct {
		name          string
		defaultTenant string
		target        string
		wantTenant    string
	}{
		{"query wins", "default-ten", "/api/pipelines?tenantId=q-ten", "q-ten"},
		{"falls back to default", "default-ten", "/api/pipelines", "default-ten"},
		{"empty query falls back", "default-ten", "/api/pipelines?tenantId=", "default-ten"},
		{"unscoped", "", "/api/pipelines", ""},
		{"decoded before forwarding", "", "/api/pipelines?tenantId=a%20b", "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeForwarder{result: domain.ProxyResponse[json.RawMessage]{
				Success: true, Data: json.RawMessage(`[]`), Status: http.StatusOK,
			}}

			serve(newRouter(NewHandler(f, tt.defaultTenant, nil)), http.MethodGet, tt.target)

			if len(f.tenants) != 1 || f.tenants[0] != tt.wantTenant {
				t.Errorf("forwarded tenants = %q, want [%q]", f.tenants, tt.wantTenant)
			}
		})
	}
}

func TestSetDefaultTenantID(t *testing.T) {
	upstream := &fakeForwarder{result: domain.ProxyResponse[json.RawMessage]{Success: true, Data: json.RawMessage(`[]`), Status: http.StatusOK}}
	h := NewHandler(upstream, "old-ten", nil)
	r := newRouter(h)

	serve(r, http.MethodGet, "/api/pipelines")
	h.SetDefaultTenantID("new-ten")
	serve(r, http.MethodGet, "/api/pipelines")

	if got := h.DefaultTenantID(); got != "new-ten" {
		t.Errorf("DefaultTenantID() = %q, want new-ten", got)
	}
	if len(upstream.tenants) != 2 || upstream.tenants[0] != "old-ten" || upstream.tenants[1] != "new-ten" {
		t.Errorf("forwarded tenants = %v, want [old-ten new-ten]", upstream.tenants)
	}
}

func TestList_RelaysSuccessBody(t *testing.T) {
	body := `[{"tenantId":"t1","pipelineId":"p1","isActive":true,"extra":1}]`
	f := &fakeForwarder{result: domain.ProxyResponse[json.RawMessage]{
		Success: true, Data: json.RawMessage(body), Status: http.StatusOK,
	}}

	rec := serve(newRouter(NewHandler(f, "", nil)), http.MethodGet, "/api/pipelines")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != body {
		t.Errorf("body = %q, want %q", rec.Body.String(), body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	checkCORS(t, rec)
}

func TestList_FailureKeepsStatus(t *testing.T) {
	tests := []struct {
		status  int
		message string
	}{
		{http.StatusNotFound, domain.ErrMessageUpstream},
		{http.StatusServiceUnavailable, domain.ErrMessageUpstream},
		{http.StatusInternalServerError, domain.ErrMessageInternal},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := &fakeForwarder{result: domain.ProxyResponse[json.RawMessage]{
				Error: tt.message, Status: tt.status,
			}}

			rec := serve(newRouter(NewHandler(f, "", nil)), http.MethodGet, "/api/pipelines")

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var got domain.ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if got.Error != tt.message {
				t.Errorf("error = %q, want %q", got.Error, tt.message)
			}
			checkCORS(t, rec)
		})
	}
}

func TestPreflight(t *testing.T) {
	rec := serve(newRouter(NewHandler(&fakeForwarder{}, "", nil)), http.MethodOptions, "/api/pipelines")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "{}" {
		t.Errorf("body = %q, want {}", got)
	}
	checkCORS(t, rec)
}

func TestList_ThroughGateway(t *testing.T) {
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		if r.URL.Query().Get("tenantId") == "missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[{"tenantId":"a b","pipelineId":"p1","isActive":false}]`)
	}))
	defer upstream.Close()

	gateway, err := proxy.New(upstream.URL, proxy.WithHTTPClient(upstream.Client()))
	if err != nil {
		t.Fatalf("proxy.New() error = %v", err)
	}
	router := newRouter(NewHandler(gateway, "", nil))

	rec := serve(router, http.MethodGet, "/api/pipelines?tenantId=a%20b")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotQuery != "tenantId=a%20b" {
		t.Errorf("upstream query = %q, want tenantId=a%%20b", gotQuery)
	}

	rec = serve(router, http.MethodGet, "/api/pipelines?tenantId=missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), domain.ErrMessageUpstream) {
		t.Errorf("body = %q", rec.Body.String())
	}
}
