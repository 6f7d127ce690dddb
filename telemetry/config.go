package telemetry

import "github.com/dagengine/engine/core"

// Config configures the telemetry system.
type Config struct {
	Enabled     bool
	ServiceName string
	Endpoint    string

	// SamplingRate is reserved for future exporters; the stdout trace
	// exporter used by NewOTelProvider always samples everything.
	SamplingRate float64

	// Logger receives the telemetry system's own diagnostic events
	// (provider creation/shutdown failures). Defaults to core.NoOpLogger.
	Logger core.Logger
}
