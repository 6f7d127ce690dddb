package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/core/enginetest"
	"github.com/dagengine/engine/engine"
)

func TestTransformationManagerNoOpWhenSectionsUnchanged(t *testing.T) {
	sm := newState("a", "b")
	plugin := enginetest.NewStubPlugin()
	hooks := engine.NewHookExecutor(plugin)
	progress := engine.NewProgressTracker(nil, 1)
	progress.InitDimension("filter", false, 2)

	tm := engine.NewTransformationManager(sm, hooks, progress)
	err := tm.Apply(context.Background(), "filter", &core.DimensionResult{Data: "noop"})
	require.NoError(t, err)

	assert.Len(t, sm.Sections(), 2)
	assert.Nil(t, tm.PreTransformSectionResults())
}

func TestTransformationManagerResetsOnSectionCountChange(t *testing.T) {
	sm := newState("a", "b", "c")
	sm.SetSectionResult(0, "sentiment", &core.DimensionResult{Data: "keep-me"})

	plugin := enginetest.NewStubPlugin()
	plugin.TransformSectionsFunc = func(ctx context.Context, tc core.TransformContext) ([]core.Section, error) {
		return tc.CurrentSections[:1], nil
	}
	hooks := engine.NewHookExecutor(plugin)
	progress := engine.NewProgressTracker(nil, 1)
	progress.InitDimension("filter", false, 3)

	tm := engine.NewTransformationManager(sm, hooks, progress)
	err := tm.Apply(context.Background(), "filter", &core.DimensionResult{Data: "filtered"})
	require.NoError(t, err)

	assert.Len(t, sm.Sections(), 1)
	_, ok := sm.SectionResult(0, "sentiment")
	assert.False(t, ok, "sectionResultsMap should be reset after a section-count change")

	preTransform := tm.PreTransformSectionResults()
	require.Len(t, preTransform, 3)
	assert.Equal(t, "keep-me", preTransform[0]["sentiment"].Data)
}

func TestTransformationManagerCapturesSnapshotOnlyOnFirstChange(t *testing.T) {
	sm := newState("a", "b", "c")
	sm.SetSectionResult(0, "sentiment", &core.DimensionResult{Data: "original"})

	plugin := enginetest.NewStubPlugin()
	call := 0
	plugin.TransformSectionsFunc = func(ctx context.Context, tc core.TransformContext) ([]core.Section, error) {
		call++
		if call == 1 {
			return tc.CurrentSections[:2], nil
		}
		return tc.CurrentSections[:1], nil
	}
	hooks := engine.NewHookExecutor(plugin)
	progress := engine.NewProgressTracker(nil, 1)
	progress.InitDimension("filterA", false, 3)
	progress.InitDimension("filterB", false, 2)

	tm := engine.NewTransformationManager(sm, hooks, progress)
	require.NoError(t, tm.Apply(context.Background(), "filterA", nil))
	first := tm.PreTransformSectionResults()
	require.Len(t, first, 3)
	assert.Equal(t, "original", first[0]["sentiment"].Data)

	require.NoError(t, tm.Apply(context.Background(), "filterB", nil))
	second := tm.PreTransformSectionResults()

	// Still the snapshot from the first change, not re-captured at the
	// (now 2-section) state before the second change.
	assert.Equal(t, first, second)
	assert.Len(t, sm.Sections(), 1)
}
