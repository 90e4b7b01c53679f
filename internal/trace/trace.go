// Package trace wires OpenTelemetry tracing for task execution.
//
// The workflow executor emits one span per workflow and per step. By default
// finished spans are written through the structured logger so that a debug
// session shows the same timing data an OTLP backend would receive, without
// requiring a collector.
package trace

import (
	"context"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
)

const otelSDKDisabledEnv = "OTEL_SDK_DISABLED"

// Setup installs the global tracer provider.
//
// When verbose is false, or OTEL_SDK_DISABLED is truthy, a noop provider is
// installed and the returned shutdown is a no-op.
//
// Parameters:
//   - serviceName: Reported as service.name on every span
//   - verbose: Whether spans should be exported to the logger
//
// Returns:
//   - func(context.Context) error: Flushes and stops the provider
func Setup(serviceName string, verbose bool) func(context.Context) error {
	if v := os.Getenv(otelSDKDisabledEnv); v != "" {
		if b, err := strconv.ParseBool(v); err == nil && b {
			verbose = false
		}
	}

	if !verbose {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		// Spans feed the debug log, so export synchronously in step order
		// instead of batching.
		sdktrace.WithSyncer(&logExporter{}),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown
}

// logExporter writes finished spans to the structured logger.
type logExporter struct{}

// ExportSpans implements sdktrace.SpanExporter.
func (e *logExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		fields := []interface{}{
			"trace_id", span.SpanContext().TraceID().String(),
			"duration", span.EndTime().Sub(span.StartTime()).String(),
		}
		for _, attr := range span.Attributes() {
			fields = append(fields, string(attr.Key), attr.Value.Emit())
		}
		if desc := span.Status().Description; desc != "" {
			fields = append(fields, "status", desc)
		}
		log.Debug("span "+span.Name(), fields...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *logExporter) Shutdown(context.Context) error { return nil }
