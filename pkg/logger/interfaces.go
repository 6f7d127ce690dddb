package logger

import "context"

// Logger is the map-based structured logging contract every engine
// component depends on (core.Logger's eight level methods are a subset
// of this set, so any Logger here satisfies core.Logger; this package has
// no import on core so it stays dependency-free).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})

	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})

	SetLevel(level string)
	With(fields map[string]interface{}) Logger

	// WithComponent tags a child logger with a component name so call
	// sites don't repeat it in every field map.
	WithComponent(component string) Logger
	GetComponent() string
}

// LogLevel represents the logging level.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)
