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

func dcFor(dimension string, sectionIndex int) core.DimensionContext {
	return core.DimensionContext{Dimension: dimension, SectionIndex: sectionIndex}
}

func TestProviderExecutorSucceedsOnFirstAttempt(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	provider := enginetest.NewMockProvider(&core.ProviderResponse{Data: "ok", Metadata: &core.ResultMetadata{Model: "gpt-4o"}})
	registry := enginetest.NewMockRegistry(map[string]core.Provider{"default": provider})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 3, time.Millisecond)
	result, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
		Dimension: "sentiment",
		DC:        dcFor("sentiment", 0),
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result.Data)
	assert.Equal(t, 1, provider.CallCount())
}

func TestProviderExecutorRetriesThenSucceeds(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	provider := &enginetest.MockProvider{Responses: []*core.ProviderResponse{
		{Error: "transient"},
		{Error: "transient"},
		{Data: "recovered"},
	}}
	registry := enginetest.NewMockRegistry(map[string]core.Provider{"default": provider})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 3, time.Millisecond)
	result, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
		Dimension: "sentiment",
		DC:        dcFor("sentiment", 0),
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Data)
	assert.Equal(t, 3, provider.CallCount())
}

func TestProviderExecutorFallsBackToSecondProvider(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	plugin.ProviderFunc = func(dimension string) (core.ProviderSelection, error) {
		return core.ProviderSelection{
			Provider:  "primary",
			Fallbacks: []core.FallbackProvider{{Provider: "secondary"}},
		}, nil
	}
	primary := &enginetest.MockProvider{Err: assert.AnError}
	secondary := enginetest.NewMockProvider(&core.ProviderResponse{Data: "from-secondary"})
	registry := enginetest.NewMockRegistry(map[string]core.Provider{"primary": primary, "secondary": secondary})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 0, time.Millisecond)
	result, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
		Dimension: "sentiment",
		DC:        dcFor("sentiment", 0),
	})

	require.NoError(t, err)
	assert.Equal(t, "from-secondary", result.Data)
}

func TestProviderExecutorAllProvidersFailedWithoutRecoveryHandler(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	plugin.ProviderFunc = func(dimension string) (core.ProviderSelection, error) {
		return core.ProviderSelection{Provider: "only"}, nil
	}
	provider := &enginetest.MockProvider{Err: assert.AnError}
	registry := enginetest.NewMockRegistry(map[string]core.Provider{"only": provider})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 0, time.Millisecond)
	_, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
		Dimension: "sentiment",
		DC:        dcFor("sentiment", 0),
	})

	require.Error(t, err)
	assert.True(t, core.IsAllProvidersFailed(err))

	var engineErr *core.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Len(t, engineErr.Attempts, 1)
}

func TestProviderExecutorHandleDimensionFailureRecovers(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	plugin.ProviderFunc = func(dimension string) (core.ProviderSelection, error) {
		return core.ProviderSelection{Provider: "only"}, nil
	}
	plugin.HandleDimensionFailureFunc = func(ctx context.Context, dc core.DimensionContext, attempts []core.ProviderAttempt) (*core.DimensionResult, error) {
		return &core.DimensionResult{Data: "default-value"}, nil
	}
	provider := &enginetest.MockProvider{Err: assert.AnError}
	registry := enginetest.NewMockRegistry(map[string]core.Provider{"only": provider})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 0, time.Millisecond)
	result, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
		Dimension: "sentiment",
		DC:        dcFor("sentiment", 0),
	})

	require.NoError(t, err)
	assert.Equal(t, "default-value", result.Data)
	assert.True(t, result.Metadata.Fallback)
}

func TestProviderExecutorRepeatedCallsEachSucceedIndependently(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	good := enginetest.NewMockProvider(&core.ProviderResponse{Data: "ok"})
	registry := enginetest.NewMockRegistry(map[string]core.Provider{"default": good})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 0, time.Millisecond)

	for i := 0; i < 3; i++ {
		result, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
			Dimension: "sentiment",
			DC:        dcFor("sentiment", i),
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result.Data)
	}
	assert.Equal(t, 3, good.CallCount())
}

func TestProviderExecutorProviderNotFound(t *testing.T) {
	plugin := enginetest.NewStubPlugin()
	plugin.ProviderFunc = func(dimension string) (core.ProviderSelection, error) {
		return core.ProviderSelection{Provider: "missing"}, nil
	}
	registry := enginetest.NewMockRegistry(map[string]core.Provider{})
	hooks := engine.NewHookExecutor(plugin)

	exec := engine.NewProviderExecutor(registry, hooks, nil, 0, time.Millisecond)
	_, err := exec.Execute(context.Background(), plugin, engine.ExecuteInput{
		Dimension: "sentiment",
		DC:        dcFor("sentiment", 0),
	})

	require.Error(t, err)
	assert.True(t, core.IsAllProvidersFailed(err))
}
