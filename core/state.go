package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessState is the single mutable store for one run (§3 Data Model).
// All reads and writes to it must go through the state manager; nothing
// else holds a writable reference.
type ProcessState struct {
	ID                string
	StartTime         time.Time
	Metadata          map[string]interface{}
	Sections          []Section
	OriginalSections  []Section
	GlobalResults     map[string]*DimensionResult
	SectionResultsMap map[int]map[string]*DimensionResult
}

// NewRunID generates a run identifier for callers that don't supply
// their own.
func NewRunID() string {
	return uuid.New().String()
}

// NewProcessState creates an empty state for runID over the given
// sections. OriginalSections is left nil until the pre-process phase
// snapshots it.
func NewProcessState(runID string, startTime time.Time, sections []Section) *ProcessState {
	resultsMap := make(map[int]map[string]*DimensionResult, len(sections))
	for i := range sections {
		resultsMap[i] = make(map[string]*DimensionResult)
	}
	return &ProcessState{
		ID:                runID,
		StartTime:         startTime,
		Metadata:          make(map[string]interface{}),
		Sections:          sections,
		GlobalResults:     make(map[string]*DimensionResult),
		SectionResultsMap: resultsMap,
	}
}

// View returns the read-only snapshot exposed to plugin hooks.
func (s *ProcessState) View() ProcessStateView {
	return ProcessStateView{
		ID:               s.ID,
		StartTime:        s.StartTime,
		Metadata:         s.Metadata,
		Sections:         s.Sections,
		OriginalSections: s.OriginalSections,
	}
}

// sectionResultsEntry is one (index, results) entry of the serialized
// sectionResultsMap (§6.5). A JSON object can't carry integer keys
// losslessly, so the wire shape is a list of entries instead of a map.
// Each entry is a {"index": ..., "results": {...}} object, not a
// two-element [index, results] array.
type sectionResultsEntry struct {
	Index   int                         `json:"index"`
	Results map[string]*DimensionResult `json:"results"`
}

type serializedState struct {
	ID                string                      `json:"id"`
	StartTime         int64                       `json:"startTime"`
	Metadata          map[string]interface{}      `json:"metadata"`
	Sections          []Section                   `json:"sections"`
	OriginalSections  []Section                   `json:"originalSections"`
	GlobalResults     map[string]*DimensionResult `json:"globalResults"`
	SectionResultsMap []sectionResultsEntry       `json:"sectionResultsMap"`
}

// MarshalJSON renders the state in the list-of-pairs shape that survives
// a lossless round trip through JSON (§6.5).
func (s *ProcessState) MarshalJSON() ([]byte, error) {
	entries := make([]sectionResultsEntry, 0, len(s.SectionResultsMap))
	for idx, results := range s.SectionResultsMap {
		entries = append(entries, sectionResultsEntry{Index: idx, Results: results})
	}
	// Sort for deterministic output; simple insertion sort is fine at
	// section-list scale and avoids pulling in sort for one call site.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Index < entries[j-1].Index; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	return json.Marshal(serializedState{
		ID:                s.ID,
		StartTime:         s.StartTime.UnixMilli(),
		Metadata:          s.Metadata,
		Sections:          s.Sections,
		OriginalSections:  s.OriginalSections,
		GlobalResults:     s.GlobalResults,
		SectionResultsMap: entries,
	})
}

// UnmarshalJSON restores a ProcessState from its serialized form.
func (s *ProcessState) UnmarshalJSON(data []byte) error {
	var raw serializedState
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshaling process state: %w", err)
	}

	resultsMap := make(map[int]map[string]*DimensionResult, len(raw.SectionResultsMap))
	for _, entry := range raw.SectionResultsMap {
		resultsMap[entry.Index] = entry.Results
	}

	s.ID = raw.ID
	s.StartTime = time.UnixMilli(raw.StartTime)
	s.Metadata = raw.Metadata
	s.Sections = raw.Sections
	s.OriginalSections = raw.OriginalSections
	s.GlobalResults = raw.GlobalResults
	s.SectionResultsMap = resultsMap
	return nil
}
