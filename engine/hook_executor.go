package engine

import (
	"context"
	"time"

	"github.com/dagengine/engine/core"
)

// HookExecutor adapts a bare core.Plugin to the full set of optional
// lifecycle hooks (§6.1), substituting the documented default whenever
// the plugin doesn't implement a given PluginXxxer interface. Hooks run
// sequentially within one slot's execution; the caller is responsible
// for any cross-slot parallelism (§4.4).
type HookExecutor struct {
	plugin core.Plugin
}

// NewHookExecutor wraps plugin.
func NewHookExecutor(plugin core.Plugin) *HookExecutor {
	return &HookExecutor{plugin: plugin}
}

// DefineDependencies returns plugin-declared dependencies, or an empty
// map when the plugin doesn't implement PluginDependencyDefiner.
func (h *HookExecutor) DefineDependencies(ctx context.Context, pc core.PlanContext) (map[string][]string, error) {
	if definer, ok := h.plugin.(core.PluginDependencyDefiner); ok {
		return definer.DefineDependencies(ctx, pc)
	}
	return map[string][]string{}, nil
}

// BeforeProcessStart returns the plugin's override, or nil (sections and
// metadata used as supplied) when unimplemented.
func (h *HookExecutor) BeforeProcessStart(ctx context.Context, pc core.ProcessStartContext) (*core.ProcessStartOverride, error) {
	if starter, ok := h.plugin.(core.PluginProcessStarter); ok {
		return starter.BeforeProcessStart(ctx, pc)
	}
	return nil, nil
}

// ShouldSkipGlobalDimension returns {false} (never skip) when unimplemented.
func (h *HookExecutor) ShouldSkipGlobalDimension(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error) {
	if skipper, ok := h.plugin.(core.PluginGlobalSkipper); ok {
		return skipper.ShouldSkipGlobalDimension(ctx, dc)
	}
	return core.SkipDecision{}, nil
}

// ShouldSkipSectionDimension returns {false} (never skip) when unimplemented.
func (h *HookExecutor) ShouldSkipSectionDimension(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error) {
	if skipper, ok := h.plugin.(core.PluginSectionSkipper); ok {
		return skipper.ShouldSkipSectionDimension(ctx, dc)
	}
	return core.SkipDecision{}, nil
}

// TransformDependencies returns deps unchanged when unimplemented.
func (h *HookExecutor) TransformDependencies(ctx context.Context, dc core.DimensionContext, deps map[string]*core.DimensionResult) (map[string]*core.DimensionResult, error) {
	if transformer, ok := h.plugin.(core.PluginDependencyTransformer); ok {
		return transformer.TransformDependencies(ctx, dc, deps)
	}
	return deps, nil
}

// BeforeDimensionExecute is a no-op when unimplemented.
func (h *HookExecutor) BeforeDimensionExecute(ctx context.Context, dc core.DimensionContext) error {
	if starter, ok := h.plugin.(core.PluginDimensionStarter); ok {
		return starter.BeforeDimensionExecute(ctx, dc)
	}
	return nil
}

// BeforeProviderExecute returns req unchanged when unimplemented.
func (h *HookExecutor) BeforeProviderExecute(ctx context.Context, dc core.DimensionContext, req *core.ProviderRequest) (*core.ProviderRequest, error) {
	if editor, ok := h.plugin.(core.PluginProviderRequestEditor); ok {
		return editor.BeforeProviderExecute(ctx, dc, req)
	}
	return req, nil
}

// AfterProviderExecute returns resp unchanged when unimplemented.
func (h *HookExecutor) AfterProviderExecute(ctx context.Context, dc core.DimensionContext, resp *core.ProviderResponse) (*core.ProviderResponse, error) {
	if editor, ok := h.plugin.(core.PluginProviderResponseEditor); ok {
		return editor.AfterProviderExecute(ctx, dc, resp)
	}
	return resp, nil
}

// AfterDimensionExecute is a no-op when unimplemented.
func (h *HookExecutor) AfterDimensionExecute(ctx context.Context, dc core.DimensionContext, result *core.DimensionResult) error {
	if finisher, ok := h.plugin.(core.PluginDimensionFinisher); ok {
		return finisher.AfterDimensionExecute(ctx, dc, result)
	}
	return nil
}

// TransformSections returns tc.CurrentSections unchanged when unimplemented.
func (h *HookExecutor) TransformSections(ctx context.Context, tc core.TransformContext) ([]core.Section, error) {
	if transformer, ok := h.plugin.(core.PluginSectionTransformer); ok {
		return transformer.TransformSections(ctx, tc)
	}
	return tc.CurrentSections, nil
}

// HandleRetry retries until maxRetries with the engine's exponential
// default when unimplemented (DelayMs=0 signals "use engine default").
func (h *HookExecutor) HandleRetry(ctx context.Context, dc core.DimensionContext, attemptIndex int, attemptErr error, maxRetries int) (core.RetryDecision, error) {
	if handler, ok := h.plugin.(core.PluginRetryHandler); ok {
		return handler.HandleRetry(ctx, dc, attemptIndex, attemptErr)
	}
	return core.RetryDecision{ShouldRetry: attemptIndex < maxRetries}, nil
}

// HandleProviderFallback always falls back with no extra delay when unimplemented.
func (h *HookExecutor) HandleProviderFallback(ctx context.Context, dc core.DimensionContext, fb core.FallbackProvider, attemptErr error) (core.FallbackDecision, error) {
	if handler, ok := h.plugin.(core.PluginFallbackHandler); ok {
		return handler.HandleProviderFallback(ctx, dc, fb, attemptErr)
	}
	return core.FallbackDecision{ShouldFallback: true}, nil
}

// HandleDimensionFailure returns nil (propagate AllProvidersFailed) when unimplemented.
func (h *HookExecutor) HandleDimensionFailure(ctx context.Context, dc core.DimensionContext, attempts []core.ProviderAttempt) (*core.DimensionResult, error) {
	if handler, ok := h.plugin.(core.PluginDimensionFailureHandler); ok {
		return handler.HandleDimensionFailure(ctx, dc, attempts)
	}
	return nil, nil
}

// FinalizeResults returns result unchanged when unimplemented.
func (h *HookExecutor) FinalizeResults(ctx context.Context, result *core.Result) (*core.Result, error) {
	if finalizer, ok := h.plugin.(core.PluginResultsFinalizer); ok {
		return finalizer.FinalizeResults(ctx, result)
	}
	return result, nil
}

// AfterProcessComplete returns nil (keep the computed result) when unimplemented.
func (h *HookExecutor) AfterProcessComplete(ctx context.Context, state core.ProcessStateView, result *core.Result, duration time.Duration, successCount, failureCount int) (*core.Result, error) {
	if completer, ok := h.plugin.(core.PluginProcessCompleter); ok {
		return completer.AfterProcessComplete(ctx, state, result, duration, successCount, failureCount)
	}
	return nil, nil
}

// HandleProcessFailure returns nil (propagate runErr to the caller) when unimplemented.
func (h *HookExecutor) HandleProcessFailure(ctx context.Context, runErr error, partial *core.Result) (*core.Result, error) {
	if handler, ok := h.plugin.(core.PluginFailureHandler); ok {
		return handler.HandleProcessFailure(ctx, runErr, partial)
	}
	return nil, nil
}
