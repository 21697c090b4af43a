// Package observability provides OpenTelemetry integration for
// distributed tracing.
//
// Spans are exported over OTLP HTTP to a local collector (an OTel
// Collector or any agent speaking OTLP on port 4318). Tracing is best
// effort: an unreachable collector degrades to a no-op rather than
// failing startup, because the assistant must keep answering patients
// when observability infrastructure is down.
//
// Environment variables (optional):
//   - OTEL_EXPORTER_ENDPOINT: Override collector host (default: localhost:4318)
//
// Config file (~/.aftercare/config.yaml):
//
//	observability:
//	  collector_host: "localhost:4318"
//	  environment: "dev"
//	  service_name: "aftercare"
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config for OTLP trace export.
type Config struct {
	// CollectorHost is the OTLP HTTP endpoint (default: localhost:4318)
	CollectorHost string
	// Environment is the deployment environment (dev, staging, prod)
	Environment string
	// ServiceName is the service name shown in the APM backend
	ServiceName string
}

// DefaultCollectorHost is the default OTLP HTTP endpoint.
const DefaultCollectorHost = "localhost:4318"

// SetupTracing registers an OTLP exporter with Genkit's TracerProvider,
// so retrieval and generation spans flow to the collector.
//
// Returns a shutdown function that flushes pending spans.
// If CollectorHost is empty, uses DefaultCollectorHost.
func SetupTracing(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	collectorHost := cfg.CollectorHost
	if collectorHost == "" {
		collectorHost = DefaultCollectorHost
	}

	// Genkit's TracerProvider reads the service identity from the
	// standard OTEL environment variables.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(collectorHost),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		slog.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	slog.Debug("tracing enabled",
		"collector", collectorHost,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	// Emit one span so a misconfigured pipeline shows up immediately.
	tracer := tracing.TracerProvider().Tracer("aftercare-init")
	_, span := tracer.Start(ctx, "aftercare.init")
	span.End()

	return tracing.TracerProvider().Shutdown, nil
}
