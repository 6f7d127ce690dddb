package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/core/enginetest"
	"github.com/dagengine/engine/engine"
)

// bareMinimalPlugin implements only core.Plugin, none of the optional
// PluginXxxer hooks, to exercise the hook executor's documented
// fallback behavior for every hook.
type bareMinimalPlugin struct{}

func (bareMinimalPlugin) GetDimensions() []core.DimensionDescriptor { return nil }
func (bareMinimalPlugin) CreatePrompt(ctx context.Context, dc core.DimensionContext) (string, error) {
	return "", nil
}
func (bareMinimalPlugin) SelectProvider(dimension string) (core.ProviderSelection, error) {
	return core.ProviderSelection{}, nil
}

func TestHookExecutorDefaultsWhenPluginImplementsNothing(t *testing.T) {
	h := engine.NewHookExecutor(bareMinimalPlugin{})
	ctx := context.Background()

	deps, err := h.DefineDependencies(ctx, core.PlanContext{})
	require.NoError(t, err)
	assert.Empty(t, deps)

	override, err := h.BeforeProcessStart(ctx, core.ProcessStartContext{})
	require.NoError(t, err)
	assert.Nil(t, override)

	skip, err := h.ShouldSkipGlobalDimension(ctx, core.DimensionContext{})
	require.NoError(t, err)
	assert.False(t, skip.Skip)

	req := &core.ProviderRequest{Input: "x"}
	gotReq, err := h.BeforeProviderExecute(ctx, core.DimensionContext{}, req)
	require.NoError(t, err)
	assert.Same(t, req, gotReq)

	sections := []core.Section{{Content: "a"}}
	gotSections, err := h.TransformSections(ctx, core.TransformContext{CurrentSections: sections})
	require.NoError(t, err)
	assert.Equal(t, sections, gotSections)

	retry, err := h.HandleRetry(ctx, core.DimensionContext{}, 0, assert.AnError, 3)
	require.NoError(t, err)
	assert.True(t, retry.ShouldRetry)

	retry, err = h.HandleRetry(ctx, core.DimensionContext{}, 3, assert.AnError, 3)
	require.NoError(t, err)
	assert.False(t, retry.ShouldRetry)

	fb, err := h.HandleProviderFallback(ctx, core.DimensionContext{}, core.FallbackProvider{}, assert.AnError)
	require.NoError(t, err)
	assert.True(t, fb.ShouldFallback)

	recovered, err := h.HandleDimensionFailure(ctx, core.DimensionContext{}, nil)
	require.NoError(t, err)
	assert.Nil(t, recovered)

	result := &core.Result{}
	finalized, err := h.FinalizeResults(ctx, result)
	require.NoError(t, err)
	assert.Same(t, result, finalized)

	replacement, err := h.AfterProcessComplete(ctx, core.ProcessStateView{}, result, time.Second, 1, 0)
	require.NoError(t, err)
	assert.Nil(t, replacement)

	recoveredRun, err := h.HandleProcessFailure(ctx, assert.AnError, nil)
	require.NoError(t, err)
	assert.Nil(t, recoveredRun)
}

func TestHookExecutorDelegatesWhenImplemented(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	plugin.ShouldSkipGlobalFunc = func(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error) {
		return core.SkipDecision{Skip: true}, nil
	}
	h := engine.NewHookExecutor(plugin)

	skip, err := h.ShouldSkipGlobalDimension(context.Background(), core.DimensionContext{})
	require.NoError(t, err)
	assert.True(t, skip.Skip)
	assert.Equal(t, 1, plugin.CallCount("ShouldSkipGlobalDimension"))
}
