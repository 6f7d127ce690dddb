package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/engine"
)

func newState(sections ...string) *engine.StateManager {
	secs := make([]core.Section, len(sections))
	for i, c := range sections {
		secs[i] = core.Section{Content: c}
	}
	ps := core.NewProcessState("run-1", time.Now(), secs)
	return engine.NewStateManager(ps)
}

func TestStateManagerSectionResultRoundTrip(t *testing.T) {
	sm := newState("a", "b")

	_, ok := sm.SectionResult(0, "sentiment")
	assert.False(t, ok)

	res := &core.DimensionResult{Data: "positive"}
	sm.SetSectionResult(0, "sentiment", res)

	got, ok := sm.SectionResult(0, "sentiment")
	require.True(t, ok)
	assert.Equal(t, res, got)
}

func TestStateManagerGlobalResultRoundTrip(t *testing.T) {
	sm := newState("a")

	sm.SetGlobalResult("summary", &core.DimensionResult{Data: "overview"})

	got, ok := sm.GlobalResult("summary")
	require.True(t, ok)
	assert.Equal(t, "overview", got.Data)
}

func TestStateManagerUpdateSectionsResetsResultsMap(t *testing.T) {
	sm := newState("a", "b")
	sm.SetSectionResult(0, "sentiment", &core.DimensionResult{Data: "x"})

	sm.UpdateSections([]core.Section{{Content: "new-a"}})

	assert.Equal(t, 1, sm.SectionCount())
	_, ok := sm.SectionResult(0, "sentiment")
	assert.False(t, ok)
}

func TestStateManagerSnapshotOriginalSectionsOnlyOnce(t *testing.T) {
	sm := newState("a", "b")
	sm.SnapshotOriginalSections()
	sm.UpdateSections([]core.Section{{Content: "c"}})

	assert.Len(t, sm.OriginalSections(), 2)
	assert.Len(t, sm.Sections(), 1)
}

func TestStateManagerAllSectionResultsForDimension(t *testing.T) {
	sm := newState("a", "b", "c")
	sm.SetSectionResult(0, "topics", &core.DimensionResult{Data: "t0"})
	sm.SetSectionResult(2, "topics", &core.DimensionResult{Data: "t2"})

	bySection := sm.AllSectionResultsForDimension("topics")
	require.Len(t, bySection, 3)
	assert.Equal(t, "t0", bySection[0].Data)
	assert.Nil(t, bySection[1])
	assert.Equal(t, "t2", bySection[2].Data)
}

func TestStateManagerSectionResultsSlotIsACopy(t *testing.T) {
	sm := newState("a")
	sm.SetSectionResult(0, "sentiment", &core.DimensionResult{Data: "x"})

	slot := sm.SectionResultsSlot(0)
	slot["injected"] = &core.DimensionResult{Data: "y"}

	_, ok := sm.SectionResult(0, "injected")
	assert.False(t, ok)
}
