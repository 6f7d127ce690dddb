package engine

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/telemetry"
)

// dimensionState is the progress tracker's internal per-dimension
// bookkeeping (§4.8). isGlobal/started let the tracker re-evaluate
// totals on section-count change without disturbing dimensions already
// underway.
type dimensionState struct {
	core.DimensionProgress
	isGlobal bool
	started  bool
}

// ProgressTracker maintains per-dimension and aggregate counters and
// throttles emission of the caller's OnProgress callback (§4.8). Its own
// mutex guards counters and the emission serializer, separate from the
// state manager's mutex (§5 "Locking discipline").
type ProgressTracker struct {
	mu          sync.Mutex
	dims        map[string]*dimensionState
	startedAt   time.Time
	onProgress  func(core.ProgressUpdate)
	updateEvery int
	sinceEmit   int
	emitMu      sync.Mutex // serializes onProgress calls
}

// NewProgressTracker creates a tracker. onProgress may be nil (no
// emission). updateEvery <= 0 is normalized to 1 (emit every completion).
func NewProgressTracker(onProgress func(core.ProgressUpdate), updateEvery int) *ProgressTracker {
	if updateEvery <= 0 {
		updateEvery = 1
	}
	return &ProgressTracker{
		dims:        make(map[string]*dimensionState),
		startedAt:   time.Now(),
		onProgress:  onProgress,
		updateEvery: updateEvery,
	}
}

// InitDimension registers a dimension's total before execution begins.
// total is 1 for a global dimension, |sections| for a section dimension.
func (t *ProgressTracker) InitDimension(dimension string, isGlobal bool, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dims[dimension] = &dimensionState{
		DimensionProgress: core.DimensionProgress{Total: total},
		isGlobal:          isGlobal,
	}
}

// RebaselineOnSectionCountChange re-evaluates Total for every
// not-yet-started section-scope dimension; dimensions already underway
// or global keep their historical counts (§4.7, §4.8).
func (t *ProgressTracker) RebaselineOnSectionCountChange(newSectionCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.dims {
		if d.isGlobal || d.started {
			continue
		}
		d.Total = newSectionCount
	}
}

// RecordSlotCompletion updates counters for one finished slot (success,
// skip, or failure all count as "completed" toward the denominator —
// only failed increments Failed) and emits a throttled progress update.
// It also emits a span event and cost histogram for this slot.
func (t *ProgressTracker) RecordSlotCompletion(ctx context.Context, dimension string, failed bool, cost float64) {
	telemetry.AddSpanEvent(ctx, "slot_completed",
		attribute.String("dimension", dimension),
		attribute.Bool("failed", failed),
	)
	telemetry.Histogram("dagengine.slot.cost", cost, "dimension", dimension)
	if failed {
		telemetry.Counter("dagengine.slot.failed", "dimension", dimension)
	} else {
		telemetry.Counter("dagengine.slot.completed", "dimension", dimension)
	}

	t.mu.Lock()
	d, ok := t.dims[dimension]
	if !ok {
		t.mu.Unlock()
		return
	}
	d.started = true
	d.Completed++
	if failed {
		d.Failed++
	}
	d.Cost += cost
	if d.Completed > 0 {
		d.EstimatedCost = d.Cost * float64(d.Total) / float64(d.Completed)
	}
	if d.Total > 0 {
		d.Percent = float64(d.Completed) / float64(d.Total) * 100
	}
	d.ETASeconds = t.estimateETALocked(d)

	t.sinceEmit++
	shouldEmit := t.sinceEmit >= t.updateEvery
	if shouldEmit {
		t.sinceEmit = 0
	}
	update := t.snapshotLocked()
	t.mu.Unlock()

	if shouldEmit && t.onProgress != nil {
		t.emitMu.Lock()
		t.onProgress(update)
		t.emitMu.Unlock()
	}
}

// estimateETALocked extrapolates remaining wall time from elapsed time
// and completion ratio, clamped to non-negative. Caller must hold t.mu.
func (t *ProgressTracker) estimateETALocked(d *dimensionState) float64 {
	if d.Completed == 0 || d.Total == 0 {
		return 0
	}
	elapsed := time.Since(t.startedAt).Seconds()
	ratio := float64(d.Completed) / float64(d.Total)
	if ratio >= 1 {
		return 0
	}
	totalEstimate := elapsed / ratio
	eta := totalEstimate - elapsed
	if eta < 0 {
		return 0
	}
	return eta
}

// snapshotLocked builds the aggregate + per-dimension update. Caller must hold t.mu.
func (t *ProgressTracker) snapshotLocked() core.ProgressUpdate {
	byDimension := make(map[string]core.DimensionProgress, len(t.dims))
	var aggregate core.DimensionProgress
	for name, d := range t.dims {
		byDimension[name] = d.DimensionProgress
		aggregate.Total += d.Total
		aggregate.Completed += d.Completed
		aggregate.Failed += d.Failed
		aggregate.Cost += d.Cost
		aggregate.EstimatedCost += d.EstimatedCost
	}
	if aggregate.Total > 0 {
		aggregate.Percent = float64(aggregate.Completed) / float64(aggregate.Total) * 100
	}
	aggregate.ETASeconds = t.aggregateETALocked()

	return core.ProgressUpdate{Aggregate: aggregate, ByDimension: byDimension}
}

func (t *ProgressTracker) aggregateETALocked() float64 {
	var maxETA float64
	for _, d := range t.dims {
		if d.ETASeconds > maxETA {
			maxETA = d.ETASeconds
		}
	}
	return maxETA
}

// Snapshot returns the current progress update without forcing emission.
func (t *ProgressTracker) Snapshot() core.ProgressUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}
