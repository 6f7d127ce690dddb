// Package telemetry provides span event helpers for log/trace correlation.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AddSpanEvent adds a named event to the current span. Events mark
// meaningful points in time during the span's duration and are visible
// in trace visualization tools like Jaeger.
//
// Usage:
//
//	telemetry.AddSpanEvent(ctx, "provider_attempt",
//	    attribute.String("dimension", "sentiment"),
//	    attribute.Int("attempt", 1),
//	)
//
// Events are only recorded if the span is being sampled. This function
// is safe to call even when no span exists in the context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
