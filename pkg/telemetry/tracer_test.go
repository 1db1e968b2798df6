package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newRecordedTracer returns a tracer whose finished spans land in the
// returned recorder.
func newRecordedTracer() (*Tracer, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return NewTracerWithProvider(provider, "telemetry-test"), rec
}

func TestStartSpan_OkStatus(t *testing.T) {
	tracer, rec := newRecordedTracer()

	_, end := tracer.StartSpan(context.Background(), "synthesize", "environment", "dev")
	end(nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "synthesize" {
		t.Errorf("span name = %q, want %q", span.Name(), "synthesize")
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("span status = %v, want %v", span.Status().Code, codes.Ok)
	}

	found := false
	for _, attr := range span.Attributes() {
		if attr.Key == attribute.Key("environment") && attr.Value.AsString() == "dev" {
			found = true
		}
	}
	if !found {
		t.Errorf("span attributes %v missing environment=dev", span.Attributes())
	}
}

func TestStartSpan_ErrorStatus(t *testing.T) {
	tracer, rec := newRecordedTracer()

	_, end := tracer.StartSpan(context.Background(), "module.networking")
	failure := errors.New("api throttled")
	end(failure)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want %v", span.Status().Code, codes.Error)
	}
	if span.Status().Description != failure.Error() {
		t.Errorf("span status description = %q, want %q", span.Status().Description, failure.Error())
	}
	if len(span.Events()) == 0 {
		t.Error("error span recorded no events")
	}
}

func TestTraceID(t *testing.T) {
	tracer, _ := newRecordedTracer()

	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID() on empty context = %q, want empty", got)
	}

	ctx, end := tracer.StartSpan(context.Background(), "synthesize")
	defer end(nil)
	if got := TraceID(ctx); got == "" {
		t.Error("TraceID() inside a span is empty")
	}
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Enabled: false}, "stratctl", "dev", "dev")
	if err != nil {
		t.Fatalf("NewTracer() error = %v", err)
	}

	// Disabled tracers still hand out working span closures.
	_, end := tracer.StartSpan(context.Background(), "synthesize")
	end(nil)

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewTracer_UnsupportedExporter(t *testing.T) {
	_, err := NewTracer(TracingConfig{Enabled: true, Exporter: "jaeger"}, "stratctl", "dev", "dev")
	if err == nil {
		t.Fatal("NewTracer() expected error for unsupported exporter")
	}
}
