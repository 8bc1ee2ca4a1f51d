// Package client fetches pipeline listings from the dashboard's own
// /api/pipelines endpoint.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/proxy"
)

// PipelinesPath is the same-origin path served by the pipelines API handler.
const PipelinesPath = "/api/pipelines"

var _ ports.PipelineFetcher = (*Client)(nil)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client calls the dashboard API rooted at baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the dashboard served at baseURL
// (e.g. http://127.0.0.1:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the request path for a tenant scope. It doubles as the cache
// key for that scope.
func Path(tenantID string) string {
	if tenantID == "" {
		return PipelinesPath
	}
	return PipelinesPath + "?tenantId=" + proxy.EscapeQueryValue(tenantID)
}

// FetchPipelines returns the pipelines visible in tenantID's scope. A
// non-2xx answer yields a *domain.FetchError.
func (c *Client) FetchPipelines(ctx context.Context, tenantID string) ([]domain.Pipeline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+Path(tenantID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.NewFetchError(resp.StatusCode, statusText(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var pipelines []domain.Pipeline
	if err := json.Unmarshal(body, &pipelines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return pipelines, nil
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	return strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
}
