// Package dashboard provides the public API for embedding the pipeline
// dashboard in another program.
package dashboard

import (
	"github.com/tjfontaine/sk8-dashboard/internal/adapters/events/direct"
	"github.com/tjfontaine/sk8-dashboard/internal/core/domain"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/config"
	"github.com/tjfontaine/sk8-dashboard/internal/runtime"
)

// Dashboard is one running dashboard application.
// See internal/runtime.Dashboard for full documentation.
type Dashboard = runtime.Dashboard

// Option is a functional option for configuring a Dashboard.
type Option = runtime.Option

// Config is the dashboard configuration.
type Config = config.Config

// Pipeline is a pipeline record as reported by the upstream API.
type Pipeline = domain.Pipeline

// ToggleEvent is published when a user flips a pipeline's switch.
type ToggleEvent = domain.ToggleEvent

// ToggleHandler receives toggle events.
type ToggleHandler = direct.Handler

// New creates a new Dashboard with the given options.
// Example:
//
//	d, err := dashboard.New(
//	    dashboard.WithFileConfig("config.yaml"),
//	    dashboard.WithToggleHandler(func(ctx context.Context, e *dashboard.ToggleEvent) error {
//	        return myAPI.SetActive(ctx, e.Pipeline.TenantID, e.Pipeline.PipelineID, !e.Pipeline.IsActive)
//	    }),
//	)
var New = runtime.New

// LoadConfig reads config.yaml (if present) and the environment.
var LoadConfig = config.Load

// App kinds accepted by WithAppKind.
const (
	AppAdmin    = config.AppAdmin
	AppEmbedded = config.AppEmbedded
)

// Configuration options
var (
	WithFileConfig         = runtime.WithFileConfig
	WithConfig             = runtime.WithConfig
	WithAppKind            = runtime.WithAppKind
	WithLogger             = runtime.WithLogger
	WithCache              = runtime.WithCache
	WithEventPublisher     = runtime.WithEventPublisher
	WithToggleHandler      = runtime.WithToggleHandler
	WithUpstreamHTTPClient = runtime.WithUpstreamHTTPClient
)
