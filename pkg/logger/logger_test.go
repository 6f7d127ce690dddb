package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/pkg/logger"
)

func TestSimpleLogger(t *testing.T) {
	log := logger.NewSimpleLogger()

	assert.NotPanics(t, func() {
		log.Debug("debug message", map[string]interface{}{"test": "value"})
		log.Info("info message", map[string]interface{}{"test": "value"})
		log.Warn("warn message", map[string]interface{}{"test": "value"})
		log.Error("error message", nil)
	})
}

func TestSimpleLoggerWithContext(t *testing.T) {
	log := logger.NewSimpleLogger()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		log.InfoWithContext(ctx, "info message", map[string]interface{}{"request_id": "abc"})
	})
}

func TestLoggerWith(t *testing.T) {
	log := logger.NewSimpleLogger().With(map[string]interface{}{"component": "test"})
	withVersion := log.With(map[string]interface{}{"version": "1.0"})

	assert.NotPanics(t, func() {
		withVersion.Info("test message", nil)
	})
}

func TestLogLevels(t *testing.T) {
	tests := []string{"debug", "info", "warn", "error"}

	for _, level := range tests {
		t.Run(level, func(t *testing.T) {
			log := logger.NewSimpleLogger()
			log.SetLevel(level)
			require.NotNil(t, log)
		})
	}
}

// BenchmarkLogger benchmarks logger performance.
func BenchmarkLogger(b *testing.B) {
	log := logger.NewSimpleLogger()
	log.SetLevel("info")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.Info("benchmark message", map[string]interface{}{"iteration": i})
	}
}
