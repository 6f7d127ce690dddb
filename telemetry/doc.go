/*
Package telemetry is a thin Counter/Histogram/AddSpanEvent API over the
OpenTelemetry SDK.

Thread Safety:

All public functions are safe for concurrent use. The global registry is
published through atomic.Value for lock-free reads on the metric emission
hot path, and Initialize uses sync.Once so concurrent callers race safely
to a single winner.

Fail-Safe Defaults:

Counter, Histogram, and AddSpanEvent are safe no-ops until Initialize has
been called, so library code can call them unconditionally without a
nil-check or an "is telemetry on" branch.

Usage:

Initialize once at startup:

	telemetry.Initialize(telemetry.Config{ServiceName: "dagengine"})
	defer telemetry.Shutdown(context.Background())

Then emit metrics and span events from anywhere:

	telemetry.Counter("provider.attempts", "provider", "openai")
	telemetry.Histogram("provider.latency_ms", 123.5, "provider", "openai")
	telemetry.AddSpanEvent(ctx, "provider_attempt", attribute.Int("attempt", 1))
*/
package telemetry
