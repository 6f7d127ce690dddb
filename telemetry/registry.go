package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dagengine/engine/core"
)

var (
	// globalRegistry holds the singleton Registry instance. atomic.Value
	// gives lock-free reads on the hot path (metric emission); it is
	// set by Initialize() and cleared by Shutdown().
	globalRegistry atomic.Value // *Registry

	// initOnce ensures Initialize() can only succeed once.
	initOnce sync.Once
)

// Registry owns the OTel provider backing Counter/Histogram/AddSpanEvent.
type Registry struct {
	config    Config
	provider  *OTelProvider
	logger    core.Logger
	startTime time.Time
}

// Initialize activates the telemetry system with the given configuration.
// Must be called once by the embedding application before any metrics are
// emitted; safe to call multiple times, only the first call takes effect.
// Even if it fails, Counter/Histogram/AddSpanEvent remain safe no-ops.
func Initialize(config Config) error {
	var initErr error
	initOnce.Do(func() {
		logger := config.Logger
		if logger == nil {
			logger = &core.NoOpLogger{}
		}

		registry, err := newRegistry(config, logger)
		if err != nil {
			initErr = err
			logger.Error("telemetry initialization failed", map[string]interface{}{
				"error":    err.Error(),
				"endpoint": config.Endpoint,
			})
			return
		}

		globalRegistry.Store(registry)
		logger.Info("telemetry system initialized", map[string]interface{}{
			"service_name": config.ServiceName,
		})
	})
	return initErr
}

func newRegistry(config Config, logger core.Logger) (*Registry, error) {
	if config.ServiceName == "" {
		config.ServiceName = "dagengine"
	}

	provider, err := NewOTelProvider(config.ServiceName, config.Endpoint)
	if err != nil {
		return nil, err
	}

	return &Registry{
		config:    config,
		provider:  provider,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Emit is the backend for Counter/Histogram: a silent no-op when
// Initialize hasn't run, otherwise routed to the OTel provider.
func Emit(name string, value float64, labels ...string) {
	r := activeRegistry()
	if r == nil {
		return
	}
	r.provider.RecordMetric(name, value, parseLabels(labels...))
}

// activeRegistry loads the global registry, treating both an unset
// atomic.Value and a cleared (typed-nil) one as "not initialized".
func activeRegistry() *Registry {
	loaded := globalRegistry.Load()
	if loaded == nil {
		return nil
	}
	r, _ := loaded.(*Registry)
	return r
}

// parseLabels converts "key1", "val1", "key2", "val2" into a map.
func parseLabels(labels ...string) map[string]string {
	m := make(map[string]string, len(labels)/2)
	for i := 0; i < len(labels)-1; i += 2 {
		m[labels[i]] = labels[i+1]
	}
	return m
}

// Shutdown gracefully tears down the telemetry system. Safe to call when
// Initialize was never called.
func Shutdown(ctx context.Context) error {
	r := activeRegistry()
	if r == nil {
		return nil
	}

	if err := r.provider.Shutdown(ctx); err != nil {
		r.logger.Error("telemetry shutdown failed", map[string]interface{}{"error": err.Error()})
		return err
	}

	globalRegistry.Store((*Registry)(nil))
	return nil
}

// GetRegistry returns the current registry, or nil if uninitialized.
func GetRegistry() *Registry {
	return activeRegistry()
}
