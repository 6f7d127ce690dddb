package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/engine"
)

func TestProgressTrackerRecordsCompletionAndPercent(t *testing.T) {
	var updates []core.ProgressUpdate
	tracker := engine.NewProgressTracker(func(u core.ProgressUpdate) {
		updates = append(updates, u)
	}, 1)

	tracker.InitDimension("sentiment", false, 2)
	tracker.RecordSlotCompletion(context.Background(), "sentiment", false, 0.01)
	tracker.RecordSlotCompletion(context.Background(), "sentiment", true, 0.02)

	require.Len(t, updates, 2)
	last := updates[len(updates)-1]
	dim := last.ByDimension["sentiment"]
	assert.Equal(t, 2, dim.Completed)
	assert.Equal(t, 1, dim.Failed)
	assert.InDelta(t, 100.0, dim.Percent, 0.001)
	assert.InDelta(t, 0.03, dim.Cost, 0.0001)
}

func TestProgressTrackerThrottlesEmission(t *testing.T) {
	count := 0
	tracker := engine.NewProgressTracker(func(u core.ProgressUpdate) { count++ }, 3)
	tracker.InitDimension("sentiment", false, 3)

	tracker.RecordSlotCompletion(context.Background(), "sentiment", false, 0)
	tracker.RecordSlotCompletion(context.Background(), "sentiment", false, 0)
	assert.Equal(t, 0, count)

	tracker.RecordSlotCompletion(context.Background(), "sentiment", false, 0)
	assert.Equal(t, 1, count)
}

func TestProgressTrackerRebaselineSkipsStartedDimensions(t *testing.T) {
	tracker := engine.NewProgressTracker(nil, 1)
	tracker.InitDimension("sentiment", false, 2)
	tracker.RecordSlotCompletion(context.Background(), "sentiment", false, 0)

	tracker.RebaselineOnSectionCountChange(5)

	snap := tracker.Snapshot()
	assert.Equal(t, 2, snap.ByDimension["sentiment"].Total)
}

func TestProgressTrackerRebaselineUpdatesUnstartedDimensions(t *testing.T) {
	tracker := engine.NewProgressTracker(nil, 1)
	tracker.InitDimension("summary", false, 2)

	tracker.RebaselineOnSectionCountChange(5)

	snap := tracker.Snapshot()
	assert.Equal(t, 5, snap.ByDimension["summary"].Total)
}

func TestProgressTrackerAggregateSumsAcrossDimensions(t *testing.T) {
	tracker := engine.NewProgressTracker(nil, 1)
	tracker.InitDimension("sentiment", false, 2)
	tracker.InitDimension("summary", true, 1)

	tracker.RecordSlotCompletion(context.Background(), "sentiment", false, 0.1)
	tracker.RecordSlotCompletion(context.Background(), "summary", false, 0.2)

	snap := tracker.Snapshot()
	assert.Equal(t, 3, snap.Aggregate.Total)
	assert.Equal(t, 2, snap.Aggregate.Completed)
	assert.InDelta(t, 0.3, snap.Aggregate.Cost, 0.0001)
}
