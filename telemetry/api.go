// Package telemetry is a thin Counter/Histogram/AddSpanEvent API over the
// OpenTelemetry SDK. Call Initialize once at startup; Counter and Histogram
// are safe no-ops until then, so library code can call them unconditionally.
package telemetry

// Counter increments a counter metric by 1.
// Use for counting events: requests, errors, operations, etc.
// Labels are provided as key-value pairs.
// Example: Counter("requests.total", "method", "GET", "status", "200")
func Counter(name string, labels ...string) {
	Emit(name, 1, labels...)
}

// Histogram records a value in a distribution.
// Perfect for latencies, request sizes, costs, etc. The telemetry backend
// calculates percentiles automatically.
// Example: Histogram("latency.ms", 125.3, "endpoint", "/api/users")
func Histogram(name string, value float64, labels ...string) {
	Emit(name, value, labels...)
}
