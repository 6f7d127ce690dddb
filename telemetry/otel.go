package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelProvider is the telemetry backend for one run of the engine. It
// owns both tracing and metrics and always has a working default: when
// no collector is configured it exports traces to stdout, so the
// engine's own tests observe spans without a network dependency.
type OTelProvider struct {
	tracer         trace.Tracer
	traceProvider  *sdktrace.TracerProvider
	metricProvider *sdkmetric.MeterProvider
	metrics        *MetricInstruments
	shutdownOnce   sync.Once
	shutdown       bool
	mu             sync.RWMutex
}

// NewOTelProvider creates a stdout-exporting OpenTelemetry provider.
// serviceName identifies this process in exported spans/metrics; endpoint
// is currently unused (reserved for an OTLP exporter) but accepted so
// callers don't need to special-case the stdout default.
func NewOTelProvider(serviceName string, _ string) (*OTelProvider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("service name cannot be empty")
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &OTelProvider{
		tracer:         tp.Tracer("dagengine"),
		traceProvider:  tp,
		metricProvider: mp,
		metrics:        NewMetricInstruments("dagengine"),
	}, nil
}

// Span is the minimal span contract exposed by this package, independent
// of the underlying OTel SDK type so callers never import otel/trace directly.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

type noOpSpan struct{}

func (s *noOpSpan) End()                                       {}
func (s *noOpSpan) SetAttribute(key string, value interface{}) {}
func (s *noOpSpan) RecordError(err error)                      {}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}

// StartSpan starts a new span and returns the derived context alongside it.
func (o *OTelProvider) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	o.mu.RLock()
	if o.shutdown {
		o.mu.RUnlock()
		return ctx, &noOpSpan{}
	}
	tracer := o.tracer
	o.mu.RUnlock()

	if tracer == nil {
		return ctx, &noOpSpan{}
	}
	ctx, span := tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// RecordMetric routes a metric to the appropriate instrument type based
// on a naming heuristic (duration/latency/time -> histogram,
// count/total/errors/success -> counter, everything else -> histogram).
func (o *OTelProvider) RecordMetric(name string, value float64, labels map[string]string) {
	o.mu.RLock()
	if o.shutdown || o.metrics == nil {
		o.mu.RUnlock()
		return
	}
	o.mu.RUnlock()

	ctx := context.Background()
	var attrs []attribute.KeyValue
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}

	switch {
	case hasAnySuffixOrPrefix(name, "duration", "latency", "time"):
		_ = o.metrics.RecordHistogram(ctx, name, value, metric.WithAttributes(attrs...))
	case hasAnySuffixOrPrefix(name, "count", "total", "errors", "success"):
		_ = o.metrics.RecordCounter(ctx, name, int64(value), metric.WithAttributes(attrs...))
	default:
		_ = o.metrics.RecordHistogram(ctx, name, value, metric.WithAttributes(attrs...))
	}
}

// hasAnySuffixOrPrefix reports whether name starts or ends with any of substrings.
func hasAnySuffixOrPrefix(name string, substrings ...string) bool {
	for _, substr := range substrings {
		if len(name) >= len(substr) &&
			(name[len(name)-len(substr):] == substr || name[:len(substr)] == substr) {
			return true
		}
	}
	return false
}

// Shutdown flushes and tears down the provider. Safe to call more than once.
func (o *OTelProvider) Shutdown(ctx context.Context) (shutdownErr error) {
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		o.shutdown = true
		o.mu.Unlock()
		shutdownErr = o.doShutdown(ctx)
	})
	return shutdownErr
}

func (o *OTelProvider) doShutdown(ctx context.Context) error {
	var errs []error

	if err := o.metrics.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown metrics: %w", err))
	}
	if o.metricProvider != nil {
		if err := o.metricProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown metric provider: %w", err))
		}
	}
	if o.traceProvider != nil {
		if err := o.traceProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown trace provider: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
