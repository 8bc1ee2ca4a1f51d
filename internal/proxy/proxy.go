// Package proxy forwards pipeline reads from the dashboard to the upstream
// pipeline API and normalizes every outcome into a domain.ProxyResponse.
//
// The gateway performs exactly one GET per call: no retries, no client-side
// timeout beyond the caller's context, no caching. Failures are logged with
// full detail but surfaced to callers only as generic messages.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/metrics"
)

// PipelinesEndpoint is the upstream path serving pipeline listings.
const PipelinesEndpoint = "/pipelines"

// Option configures the gateway.
type Option func(*Gateway)

// WithHTTPClient sets the client used for upstream calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = httpClient
	}
}

// WithLogger sets the logger that receives upstream failure details.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// Gateway forwards reads to a single upstream origin. It holds no mutable
// state and is safe for concurrent use.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a gateway for baseURL, the upstream origin plus any path
// prefix (for example https://abc.execute-api.us-east-1.amazonaws.com/v1).
func New(baseURL string, opts ...Option) (*Gateway, error) {
	if baseURL == "" {
		return nil, errors.New("proxy: base URL is required")
	}

	g := &Gateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// URL returns the upstream URL for endpoint, scoped to tenantID when set.
func (g *Gateway) URL(endpoint, tenantID string) string {
	apiURL := g.baseURL + endpoint
	if tenantID != "" {
		apiURL += "?tenantId=" + EscapeQueryValue(tenantID)
	}
	return apiURL
}

// EscapeQueryValue escapes s for use as a query value, writing spaces as
// %20 rather than '+'.
func EscapeQueryValue(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Forward issues GET {baseURL}{endpoint}[?tenantId=...] and decodes a 2xx
// body into T.
//
//   - 2xx with a decodable body: Success, Data and the upstream status.
//   - any other upstream status: ErrMessageUpstream and the upstream status.
//   - transport or decode failure: ErrMessageInternal and status 500.
//
// The gateway sets no timeout of its own. ctx is the only bound, so when
// called from a handler the server's request timeout (server.timeout)
// also limits the upstream call, and hitting it reports a 500.
func Forward[T any](ctx context.Context, g *Gateway, endpoint, tenantID string) domain.ProxyResponse[T] {
	apiURL := g.URL(endpoint, tenantID)

	resp, err := g.get(ctx, apiURL)
	if err != nil {
		return internalError[T](ctx, g, err, endpoint, tenantID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)

		g.logger.ErrorContext(ctx, "upstream API error",
			slog.Int("status", resp.StatusCode),
			slog.String("status_text", resp.Status),
			slog.String("url", apiURL),
		)
		metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeRejected, strconv.Itoa(resp.StatusCode)).Inc()

		return domain.ProxyResponse[T]{
			Success: false,
			Error:   domain.ErrMessageUpstream,
			Status:  resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return internalError[T](ctx, g, fmt.Errorf("failed to read response: %w", err), endpoint, tenantID)
	}

	var data T
	if err := json.Unmarshal(body, &data); err != nil {
		return internalError[T](ctx, g, fmt.Errorf("failed to unmarshal response: %w", err), endpoint, tenantID)
	}

	metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeOK, strconv.Itoa(resp.StatusCode)).Inc()

	return domain.ProxyResponse[T]{
		Success: true,
		Data:    data,
		Status:  resp.StatusCode,
	}
}

// Raw forwards endpoint and keeps the upstream JSON body verbatim.
func (g *Gateway) Raw(ctx context.Context, endpoint, tenantID string) domain.ProxyResponse[json.RawMessage] {
	return Forward[json.RawMessage](ctx, g, endpoint, tenantID)
}

// Pipelines forwards a pipeline listing request, decoded.
func (g *Gateway) Pipelines(ctx context.Context, tenantID string) domain.ProxyResponse[[]domain.Pipeline] {
	return Forward[[]domain.Pipeline](ctx, g, PipelinesEndpoint, tenantID)
}

func (g *Gateway) get(ctx context.Context, apiURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// internalError collapses any transport-level failure to a 500. The
// underlying error is logged only.
func internalError[T any](ctx context.Context, g *Gateway, err error, endpoint, tenantID string) domain.ProxyResponse[T] {
	g.logger.ErrorContext(ctx, "upstream proxy error",
		slog.String("error", err.Error()),
		slog.String("base_url", g.baseURL),
		slog.String("endpoint", endpoint),
		slog.String("tenant_id", tenantID),
	)
	metrics.UpstreamRequests.WithLabelValues(metrics.OutcomeFailed, strconv.Itoa(http.StatusInternalServerError)).Inc()

	return domain.ProxyResponse[T]{
		Success: false,
		Error:   domain.ErrMessageInternal,
		Status:  http.StatusInternalServerError,
	}
}
