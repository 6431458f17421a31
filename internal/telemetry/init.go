// Package telemetry configures OpenTelemetry tracing for a Kaleidoscope
// node. Tracing is ambient instrumentation, not a protocol feature: it is
// carried even though transport is out of scope for this module.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"kaleidoscope/internal/config"
	"kaleidoscope/internal/domain"
)

// Shutdown flushes and stops the configured TracerProvider.
type Shutdown func(context.Context) error

var noopShutdown Shutdown = func(context.Context) error { return nil }

// InitTracer configures the global OpenTelemetry TracerProvider from cfg.
// Exporter is either "stdout" (pretty-printed spans for local runs and
// tests) or "otlp" (gRPC export to a collector). If tracing is disabled,
// InitTracer installs nothing and returns a no-op shutdown.
func InitTracer(cfg config.TelemetryConfig, serviceName string, nodeID domain.NodeID) (Shutdown, error) {
	if !cfg.Tracing.Enabled {
		return noopShutdown, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("kaleidoscope.node.id", nodeID.String()),
		),
	)
	if err != nil {
		return noopShutdown, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var tp *sdktrace.TracerProvider
	switch cfg.Tracing.Exporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return noopShutdown, fmt.Errorf("telemetry: init stdout exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	case "otlp":
		exp, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithEndpoint(cfg.Tracing.Endpoint),
		)
		if err != nil {
			return noopShutdown, fmt.Errorf("telemetry: init otlp exporter: %w", err)
		}
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	default:
		return noopShutdown, fmt.Errorf("telemetry: unsupported exporter: %s", cfg.Tracing.Exporter)
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return tp.Shutdown, nil
}
