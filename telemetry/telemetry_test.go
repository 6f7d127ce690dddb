package telemetry

import (
	"context"
	"sync"
	"testing"
)

func resetRegistry() {
	initOnce = sync.Once{}
	globalRegistry.Store((*Registry)(nil))
}

func TestThreadSafeGlobalRegistry(t *testing.T) {
	resetRegistry()

	var wg sync.WaitGroup
	errs := make([]error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			errs[idx] = Initialize(Config{ServiceName: "test-service"})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("initialization %d failed: %v", i, err)
		}
	}

	if GetRegistry() == nil {
		t.Error("registry not initialized")
	}
}

func TestConcurrentEmission(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	if err := Initialize(Config{ServiceName: "test-service"}); err != nil {
		t.Fatalf("failed to initialize telemetry: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			Counter("test.metric", "goroutine", "worker")
		}(i)
	}
	wg.Wait()
}

func TestCounterAndHistogramAreNoOpsBeforeInitialize(t *testing.T) {
	resetRegistry()

	// Must not panic even though Initialize was never called.
	Counter("uninitialized.counter", "label", "value")
	Histogram("uninitialized.histogram", 42.0, "label", "value")
	AddSpanEvent(context.Background(), "uninitialized.event")

	if GetRegistry() != nil {
		t.Error("expected nil registry before Initialize")
	}
}

func TestShutdownIsSafeWhenUninitialized(t *testing.T) {
	resetRegistry()

	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("expected nil error shutting down uninitialized telemetry, got %v", err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	resetRegistry()
	defer resetRegistry()

	if err := Initialize(Config{ServiceName: "first"}); err != nil {
		t.Fatalf("first Initialize failed: %v", err)
	}
	first := GetRegistry()

	if err := Initialize(Config{ServiceName: "second"}); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	second := GetRegistry()

	if first != second {
		t.Error("expected Initialize to be a no-op after the first successful call")
	}
}

func BenchmarkCounter(b *testing.B) {
	resetRegistry()
	_ = Initialize(Config{ServiceName: "bench-service"})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			Counter("bench.counter", "test", "value")
		}
	})
}
