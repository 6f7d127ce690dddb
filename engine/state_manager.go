// Package engine implements the execution core: state management,
// dependency resolution, hook dispatch, provider execution with
// retry/fallback, dimension fan-out, section transformation, progress
// tracking, cost accounting, and the five-phase run orchestration that
// ties them together.
package engine

import (
	"sync"
	"time"

	"github.com/dagengine/engine/core"
)

// StateManager is the sole authority for mutations to a ProcessState
// (§4.2, §5 "Shared state"). One mutex guards the per-section map and
// the global map together, since contention is low and critical
// sections are short.
type StateManager struct {
	mu    sync.RWMutex
	state *core.ProcessState
}

// NewStateManager wraps state for synchronized access.
func NewStateManager(state *core.ProcessState) *StateManager {
	return &StateManager{state: state}
}

// ID returns the run's ID.
func (m *StateManager) ID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.ID
}

// StartTime returns the run's recorded start time.
func (m *StateManager) StartTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.StartTime
}

// Metadata returns the run's metadata map.
func (m *StateManager) Metadata() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Metadata
}

// SetMetadata replaces the run's metadata map.
func (m *StateManager) SetMetadata(metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Metadata = metadata
}

// Sections returns the current section list.
func (m *StateManager) Sections() []core.Section {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Sections
}

// OriginalSections returns the pre-process snapshot, set once by
// SnapshotOriginalSections.
func (m *StateManager) OriginalSections() []core.Section {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.OriginalSections
}

// SnapshotOriginalSections captures the current sections as
// originalSections. Called once, at the end of Phase 1 (§4.10).
func (m *StateManager) SnapshotOriginalSections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.OriginalSections = append([]core.Section{}, m.state.Sections...)
}

// UpdateSections replaces sections and re-initializes sectionResultsMap
// with one empty slot per new section (§4.2 contract, §3 invariant:
// sectionResultsMap keys are exactly {0,...,|sections|-1}).
func (m *StateManager) UpdateSections(newSections []core.Section) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Sections = newSections
	resultsMap := make(map[int]map[string]*core.DimensionResult, len(newSections))
	for i := range newSections {
		resultsMap[i] = make(map[string]*core.DimensionResult)
	}
	m.state.SectionResultsMap = resultsMap
}

// GlobalResult returns the recorded result for a global dimension, if any.
func (m *StateManager) GlobalResult(dimension string) (*core.DimensionResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.state.GlobalResults[dimension]
	return res, ok
}

// SetGlobalResult records the result of a global dimension.
func (m *StateManager) SetGlobalResult(dimension string, result *core.DimensionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.GlobalResults[dimension] = result
}

// AllGlobalResults returns a snapshot of every recorded global result.
func (m *StateManager) AllGlobalResults() map[string]*core.DimensionResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*core.DimensionResult, len(m.state.GlobalResults))
	for k, v := range m.state.GlobalResults {
		out[k] = v
	}
	return out
}

// SectionResult returns the recorded result for (dimension, sectionIndex), if any.
func (m *StateManager) SectionResult(sectionIndex int, dimension string) (*core.DimensionResult, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot, ok := m.state.SectionResultsMap[sectionIndex]
	if !ok {
		return nil, false
	}
	res, ok := slot[dimension]
	return res, ok
}

// SetSectionResult records the result of one (dimension, sectionIndex) slot.
func (m *StateManager) SetSectionResult(sectionIndex int, dimension string, result *core.DimensionResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.state.SectionResultsMap[sectionIndex]
	if !ok {
		slot = make(map[string]*core.DimensionResult)
		m.state.SectionResultsMap[sectionIndex] = slot
	}
	slot[dimension] = result
}

// AllSectionResultsForDimension returns, for every section index
// currently in sectionResultsMap, the result recorded for dimension (nil
// when absent). Used by the dependency resolver to build the
// synthetic aggregated result for a global consumer of a section-scope
// dependency (§4.3).
func (m *StateManager) AllSectionResultsForDimension(dimension string) map[int]*core.DimensionResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[int]*core.DimensionResult, len(m.state.SectionResultsMap))
	for idx, slot := range m.state.SectionResultsMap {
		out[idx] = slot[dimension]
	}
	return out
}

// SectionResultsSlot returns a copy of every dimension result recorded
// for sectionIndex.
func (m *StateManager) SectionResultsSlot(sectionIndex int) map[string]*core.DimensionResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slot := m.state.SectionResultsMap[sectionIndex]
	out := make(map[string]*core.DimensionResult, len(slot))
	for k, v := range slot {
		out[k] = v
	}
	return out
}

// SectionCount returns the number of sections currently tracked.
func (m *StateManager) SectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.state.Sections)
}

// View returns the read-only snapshot exposed to plugin hooks.
func (m *StateManager) View() core.ProcessStateView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.View()
}

// Snapshot returns a deep-enough copy of the underlying ProcessState
// suitable for checkpointing. The result maps and section slices are
// fresh copies; Metadata, each Section's Metadata and the
// *DimensionResult values are shared with live state and must not be mutated.
func (m *StateManager) Snapshot() *core.ProcessState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sectionResultsMap := make(map[int]map[string]*core.DimensionResult, len(m.state.SectionResultsMap))
	for idx, slot := range m.state.SectionResultsMap {
		clone := make(map[string]*core.DimensionResult, len(slot))
		for k, v := range slot {
			clone[k] = v
		}
		sectionResultsMap[idx] = clone
	}
	globalResults := make(map[string]*core.DimensionResult, len(m.state.GlobalResults))
	for k, v := range m.state.GlobalResults {
		globalResults[k] = v
	}

	return &core.ProcessState{
		ID:                m.state.ID,
		StartTime:         m.state.StartTime,
		Metadata:          m.state.Metadata,
		Sections:          append([]core.Section{}, m.state.Sections...),
		OriginalSections:  append([]core.Section{}, m.state.OriginalSections...),
		GlobalResults:     globalResults,
		SectionResultsMap: sectionResultsMap,
	}
}
