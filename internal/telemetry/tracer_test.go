package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := InitTracer("sk8-test", &out, logger)
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "unit-span")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error = %v", err)
	}

	if !strings.Contains(out.String(), "unit-span") {
		t.Errorf("exported spans do not mention unit-span: %s", out.String())
	}
	if !strings.Contains(out.String(), "sk8-test") {
		t.Errorf("exported spans do not carry the service name")
	}
}
