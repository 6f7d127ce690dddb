package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/engine"
)

func TestResolveForSectionMixesGlobalAndSectionDeps(t *testing.T) {
	sm := newState("a", "b")
	sm.SetGlobalResult("context", &core.DimensionResult{Data: "ctx"})
	sm.SetSectionResult(0, "sentiment", &core.DimensionResult{Data: "positive"})

	resolver := engine.NewDependencyResolver(sm, []core.DimensionDescriptor{
		{Name: "context", Scope: core.ScopeGlobal},
		{Name: "sentiment", Scope: core.ScopeSection},
	})

	deps := resolver.ResolveForSection(0, []string{"context", "sentiment"})
	require.Contains(t, deps, "context")
	require.Contains(t, deps, "sentiment")
	assert.Equal(t, "ctx", deps["context"].Data)
	assert.Equal(t, "positive", deps["sentiment"].Data)
}

func TestResolveForSectionMissingDepOmitted(t *testing.T) {
	sm := newState("a")
	resolver := engine.NewDependencyResolver(sm, []core.DimensionDescriptor{
		{Name: "sentiment", Scope: core.ScopeSection},
	})

	deps := resolver.ResolveForSection(0, []string{"sentiment"})
	assert.NotContains(t, deps, "sentiment")
}

func TestResolveForGlobalAggregatesSectionDependency(t *testing.T) {
	sm := newState("a", "b", "c")
	sm.SetSectionResult(0, "sentiment", &core.DimensionResult{Data: "pos"})
	sm.SetSectionResult(1, "sentiment", &core.DimensionResult{Data: "neg"})

	resolver := engine.NewDependencyResolver(sm, []core.DimensionDescriptor{
		{Name: "sentiment", Scope: core.ScopeSection},
	})

	deps := resolver.ResolveForGlobal([]string{"sentiment"})
	require.Contains(t, deps, "sentiment")

	agg, ok := deps["sentiment"].Data.(core.AggregatedSectionResults)
	require.True(t, ok)
	assert.True(t, agg.Aggregated)
	assert.Equal(t, 3, agg.TotalSections)
	require.Len(t, agg.Sections, 3)
	assert.Equal(t, "pos", agg.Sections[0].Data)
	assert.Equal(t, "neg", agg.Sections[1].Data)
	assert.Nil(t, agg.Sections[2])
}

func TestResolveForGlobalPassesThroughGlobalDependency(t *testing.T) {
	sm := newState("a")
	sm.SetGlobalResult("config", &core.DimensionResult{Data: "cfg"})

	resolver := engine.NewDependencyResolver(sm, []core.DimensionDescriptor{
		{Name: "config", Scope: core.ScopeGlobal},
	})

	deps := resolver.ResolveForGlobal([]string{"config"})
	assert.Equal(t, "cfg", deps["config"].Data)
}
