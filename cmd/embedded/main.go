// Command embedded runs the single-tenant dashboard embedded in a vendor app, scoped to DEFAULT_TENANT_ID.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/sk8-dashboard/internal/telemetry"
	"github.com/tjfontaine/sk8-dashboard/pkg/dashboard"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	d, err := dashboard.New(
		dashboard.WithLogger(logger),
		dashboard.WithFileConfig("config.yaml"),
		dashboard.WithAppKind(dashboard.AppEmbedded),
	)
	if err != nil {
		log.Fatalf("Failed to create dashboard: %v", err)
	}

	shutdownTracer := telemetry.Noop
	if d.Config().Telemetry.Tracing {
		shutdownTracer, err = telemetry.InitTracer("sk8-embedded", os.Stderr, logger)
		if err != nil {
			log.Fatalf("Failed to initialize tracer: %v", err)
		}
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("Failed to start dashboard: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping dashboard...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := d.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
