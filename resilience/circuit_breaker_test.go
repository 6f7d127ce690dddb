package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dagengine/engine/core"
)

func testConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Name:             "test",
		ErrorThreshold:   0.5,
		VolumeThreshold:  5,
		SleepWindow:      50 * time.Millisecond,
		HalfOpenRequests: 2,
		SuccessThreshold: 0.5,
		WindowSize:       1 * time.Second,
		BucketCount:      10,
		ErrorClassifier:  DefaultErrorClassifier,
		Logger:           &core.NoOpLogger{},
		Metrics:          &noopMetrics{},
	}
}

func TestCircuitBreakerClosedPassesThrough(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig())
	if err != nil {
		t.Fatalf("NewCircuitBreaker: %v", err)
	}

	if cb.GetState() != "closed" {
		t.Fatalf("expected initial state closed, got %s", cb.GetState())
	}

	for i := 0; i < 3; i++ {
		err := cb.Execute(context.Background(), func() error { return nil })
		if err != nil {
			t.Errorf("attempt %d: unexpected error %v", i, err)
		}
	}

	if cb.GetState() != "closed" {
		t.Errorf("expected state to remain closed after successes, got %s", cb.GetState())
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig())
	if err != nil {
		t.Fatalf("NewCircuitBreaker: %v", err)
	}

	for i := 0; i < 6; i++ {
		_ = cb.Execute(context.Background(), func() error {
			return errors.New("boom")
		})
	}

	if cb.GetState() != "open" {
		t.Fatalf("expected state open after exceeding error threshold, got %s", cb.GetState())
	}

	err = cb.Execute(context.Background(), func() error { return nil })
	if !errors.Is(err, core.ErrCircuitBreakerOpen) {
		t.Errorf("expected ErrCircuitBreakerOpen, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, err := NewCircuitBreaker(testConfig())
	if err != nil {
		t.Fatalf("NewCircuitBreaker: %v", err)
	}

	for i := 0; i < 6; i++ {
		_ = cb.Execute(context.Background(), func() error {
			return errors.New("boom")
		})
	}
	if cb.GetState() != "open" {
		t.Fatalf("expected state open, got %s", cb.GetState())
	}

	time.Sleep(75 * time.Millisecond)

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func() error { return nil })
		if err != nil {
			t.Errorf("half-open attempt %d: unexpected error %v", i, err)
		}
	}

	if cb.GetState() != "closed" {
		t.Errorf("expected state closed after successful half-open probes, got %s", cb.GetState())
	}
}

func TestCircuitBreakerConfigValidation(t *testing.T) {
	_, err := NewCircuitBreaker(&CircuitBreakerConfig{Name: ""})
	if err == nil {
		t.Error("expected error for missing name")
	}

	_, err = NewCircuitBreaker(&CircuitBreakerConfig{Name: "x", ErrorThreshold: 2})
	if err == nil {
		t.Error("expected error for out-of-range error threshold")
	}
}

func TestDefaultErrorClassifierIgnoresUserErrors(t *testing.T) {
	if DefaultErrorClassifier(nil) {
		t.Error("nil error should not count as a failure")
	}
	if DefaultErrorClassifier(context.Canceled) {
		t.Error("context.Canceled should not count as a failure")
	}
	if !DefaultErrorClassifier(errors.New("connection refused")) {
		t.Error("infrastructure error should count as a failure")
	}
}

func TestSlidingWindowErrorRate(t *testing.T) {
	sw := NewSlidingWindow(time.Second, 10, true)

	sw.RecordSuccess()
	sw.RecordSuccess()
	sw.RecordFailure()

	if got := sw.GetTotal(); got != 3 {
		t.Errorf("expected total 3, got %d", got)
	}
	if rate := sw.GetErrorRate(); rate < 0.33 || rate > 0.34 {
		t.Errorf("expected error rate ~0.33, got %v", rate)
	}
}
