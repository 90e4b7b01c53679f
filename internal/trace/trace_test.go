package trace

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupDisabled(t *testing.T) {
	shutdown := Setup("droidpilot-test", false)

	tr := otel.Tracer("test")
	_, span := tr.Start(context.Background(), "noop-span")
	if span.SpanContext().IsValid() {
		t.Error("disabled provider should not produce recorded spans")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupVerbose(t *testing.T) {
	shutdown := Setup("droidpilot-test", true)
	defer shutdown(context.Background())

	tr := otel.Tracer("test")
	_, span := tr.Start(context.Background(), "workflow.send_message")
	if !span.SpanContext().IsValid() {
		t.Error("verbose provider should record spans")
	}
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupHonorsDisableEnv(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")

	shutdown := Setup("droidpilot-test", true)
	defer shutdown(context.Background())

	tr := otel.Tracer("test")
	_, span := tr.Start(context.Background(), "should-not-record")
	if span.SpanContext().IsValid() {
		t.Error("OTEL_SDK_DISABLED should force the noop provider")
	}
	span.End()
}
