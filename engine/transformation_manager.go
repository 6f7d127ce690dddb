package engine

import (
	"context"

	"github.com/dagengine/engine/core"
)

// TransformationManager applies a global dimension's TransformSections
// hook and, when the section list actually changes, re-baselines state
// and progress accordingly (§4.7).
type TransformationManager struct {
	state    *StateManager
	hooks    *HookExecutor
	progress *ProgressTracker

	preTransformCaptured bool
	preTransformSections []map[string]*core.DimensionResult
}

// NewTransformationManager creates a manager over state/hooks/progress.
func NewTransformationManager(state *StateManager, hooks *HookExecutor, progress *ProgressTracker) *TransformationManager {
	return &TransformationManager{state: state, hooks: hooks, progress: progress}
}

// Apply runs the hook for dimension G's completed result and, if the
// returned section list differs (in length, or in the Content of any
// section at the same position), replaces sections,
// resets sectionResultsMap, preserves the pre-transform per-section
// results (first change only), and re-baselines progress.
func (m *TransformationManager) Apply(ctx context.Context, dimension string, result *core.DimensionResult) error {
	current := m.state.Sections()
	tc := core.TransformContext{
		Dimension:       dimension,
		CurrentSections: current,
		Result:          result,
	}

	newSections, err := m.hooks.TransformSections(ctx, tc)
	if err != nil {
		return core.NewEngineError("transformationManager.transformSections", err).WithDimension(dimension, -1)
	}

	if !sectionsChanged(current, newSections) {
		return nil
	}

	if !m.preTransformCaptured {
		m.capturePreTransform()
		m.preTransformCaptured = true
	}

	m.state.UpdateSections(newSections)
	m.progress.RebaselineOnSectionCountChange(len(newSections))
	return nil
}

// PreTransformSectionResults returns the per-section results snapshot
// captured just before the first section-list change, indexed by
// section position. Returns nil if no transformation has changed the
// section list yet. Used by the Cost Calculator (§4.9) to combine
// pre-transform results with current ones.
func (m *TransformationManager) PreTransformSectionResults() []map[string]*core.DimensionResult {
	return m.preTransformSections
}

func (m *TransformationManager) capturePreTransform() {
	count := m.state.SectionCount()
	snapshot := make([]map[string]*core.DimensionResult, count)
	for i := 0; i < count; i++ {
		snapshot[i] = m.state.SectionResultsSlot(i)
	}
	m.preTransformSections = snapshot
}

func sectionsChanged(current, next []core.Section) bool {
	if len(current) != len(next) {
		return true
	}
	// Same length: the plugin may still have returned a distinct slice
	// with different content, but spec §4.7 only requires detecting a
	// "different object or length"; a same-length, same-order
	// replacement with identical contents is treated as unchanged to
	// avoid spurious resets on idempotent transforms.
	for i := range current {
		if current[i].Content != next[i].Content {
			return true
		}
	}
	return false
}
