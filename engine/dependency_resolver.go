package engine

import (
	"github.com/dagengine/engine/core"
)

// DependencyResolver builds the {depName -> Dimension Result} bundle a
// slot sees before CreatePrompt runs (§4.3).
type DependencyResolver struct {
	state   *StateManager
	isGlobal map[string]bool // dimension name -> scope, from the declared descriptors
}

// NewDependencyResolver creates a resolver over state, using scopes to
// decide how each dependency name is fetched.
func NewDependencyResolver(state *StateManager, descriptors []core.DimensionDescriptor) *DependencyResolver {
	scopes := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		scopes[d.Name] = d.EffectiveScope() == core.ScopeGlobal
	}
	return &DependencyResolver{state: state, isGlobal: scopes}
}

// ResolveForGlobal builds the dependency bundle for a global-scope
// consumer: each global upstream contributes its single result; each
// section-scope upstream contributes a synthetic aggregated result
// built from every section's entry.
func (r *DependencyResolver) ResolveForGlobal(deps []string) map[string]*core.DimensionResult {
	out := make(map[string]*core.DimensionResult, len(deps))
	for _, dep := range deps {
		if r.isGlobal[dep] {
			if res, ok := r.state.GlobalResult(dep); ok {
				out[dep] = res
			}
			continue
		}
		out[dep] = r.aggregateSection(dep)
	}
	return out
}

// ResolveForSection builds the dependency bundle for a section-scope
// consumer at sectionIndex: section-scope upstreams contribute that
// section's entry; global-scope upstreams contribute their single result.
func (r *DependencyResolver) ResolveForSection(sectionIndex int, deps []string) map[string]*core.DimensionResult {
	out := make(map[string]*core.DimensionResult, len(deps))
	for _, dep := range deps {
		if r.isGlobal[dep] {
			if res, ok := r.state.GlobalResult(dep); ok {
				out[dep] = res
			}
			continue
		}
		if res, ok := r.state.SectionResult(sectionIndex, dep); ok {
			out[dep] = res
		}
	}
	return out
}

// aggregateSection builds the {data:{sections,aggregated,totalSections}}
// envelope a global consumer sees for a section-scope dependency.
// Missing slots are encoded as a nil *DimensionResult entry.
func (r *DependencyResolver) aggregateSection(dep string) *core.DimensionResult {
	bySection := r.state.AllSectionResultsForDimension(dep)
	total := len(bySection)

	sections := make([]*core.DimensionResult, total)
	for idx, res := range bySection {
		if idx >= 0 && idx < total {
			sections[idx] = res
		}
	}

	return &core.DimensionResult{
		Data: core.AggregatedSectionResults{
			Sections:      sections,
			Aggregated:    true,
			TotalSections: total,
		},
	}
}
