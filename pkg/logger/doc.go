// Package logger provides structured logging capabilities for the dagengine module.
//
// This package offers a simple yet powerful logging interface that supports structured
// fields, multiple log levels, and contextual logging for better observability and debugging.
//
// # Logger Interface
//
// The Logger interface defines the contract for all logging implementations;
// its core methods are:
//
//	type Logger interface {
//	    Debug(msg string, fields map[string]interface{})
//	    Info(msg string, fields map[string]interface{})
//	    Warn(msg string, fields map[string]interface{})
//	    Error(msg string, fields map[string]interface{})
//	    With(fields map[string]interface{}) Logger
//	}
//
// It also has a *WithContext variant of each level method, SetLevel,
// WithComponent and GetComponent.
//
// # Log Levels
//
// Supported log levels in order of severity:
//   - DEBUG: Detailed information for debugging
//   - INFO: General informational messages
//   - WARN: Warning messages for potentially harmful situations
//   - ERROR: Error messages for serious problems
//
// # Structured Logging
//
// All log methods accept structured fields for rich context:
//
//	logger.Info("Processing request", map[string]interface{}{
//	    "user_id": "123",
//	    "action": "create_order",
//	    "duration_ms": 145,
//	})
//
// # Contextual Logging
//
// Create child loggers with persistent fields:
//
//	requestLogger := logger.With(map[string]interface{}{
//	    "request_id": "abc-123",
//	    "user_id": "456",
//	})
//	
//	// All logs from requestLogger will include request_id and user_id
//	requestLogger.Info("Starting processing", nil)
//	requestLogger.Info("Processing complete", map[string]interface{}{
//	    "items_processed": 10,
//	})
//
// # Simple Logger Implementation
//
// The package provides SimpleLogger, a dependency-free implementation:
//   - Text output only: one "[LEVEL] message key=value ..." line per call,
//     written through the standard log package (which adds the timestamp)
//   - Configurable log levels
//   - Field keys sorted for stable output; values are printed with %v and
//     are not escaped or sanitized
//
// # Configuration
//
// NewDefaultLogger reads one environment variable:
//   - LOG_LEVEL: Minimum log level (debug, info, warn, error)
//
// # Use with the engine
//
// SimpleLogger has every method of core.Logger, so it can be passed to
// any engine component that takes a core.Logger:
//
//	log := logger.NewDefaultLogger()
//	log.Info("Processing data", map[string]interface{}{
//	    "input_length": len(input),
//	})
//
// # Best Practices
//
//   - Use appropriate log levels to control verbosity
//   - Include relevant context through structured fields
//   - Avoid logging sensitive information (passwords, tokens, PII)
//   - Use child loggers for request-scoped logging
//   - Keep log messages concise and actionable
package logger