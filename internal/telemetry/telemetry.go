// Package telemetry installs the OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"os"
	"strings"

	"github.com/dmitrijs2005/fanpulse/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans over OTLP/gRPC when OTEL_EXPORTER_OTLP_ENDPOINT is set
// and leaves the global no-op provider in place otherwise. Exporter errors
// are logged, never returned: tracing must not stop the client from starting.
func Setup(ctx context.Context, serviceName string, log logging.Logger) ShutdownFunc {
	return setup(ctx, serviceName, log, os.Getenv)
}

func setup(ctx context.Context, serviceName string, log logging.Logger, getenv func(string) string) ShutdownFunc {
	endpoint := getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return noop
	}

	opts := []otlptracegrpc.Option{endpointOption(endpoint)}
	if getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		log.Error(ctx, "otel exporter error", "error", err)
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		log.Warn(ctx, "otel resource error", "error", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	log.Info(ctx, "tracing enabled", "endpoint", endpoint)

	return provider.Shutdown
}

// endpointOption accepts the endpoint as a URL ("http://collector:4317"),
// the form OTEL_EXPORTER_OTLP_ENDPOINT is defined with, or as a bare
// host:port.
func endpointOption(endpoint string) otlptracegrpc.Option {
	if isEndpointURL(endpoint) {
		return otlptracegrpc.WithEndpointURL(endpoint)
	}
	return otlptracegrpc.WithEndpoint(endpoint)
}

func isEndpointURL(endpoint string) bool {
	return strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")
}
