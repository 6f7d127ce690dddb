package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/telemetry"
)

// ProviderExecutor executes one dimension invocation against a provider,
// with retries and fallbacks (§4.5). All per-call context comes in
// through Execute's arguments; the executor itself holds no per-run state.
type ProviderExecutor struct {
	registry core.ProviderRegistry
	hooks    *HookExecutor
	logger   core.Logger

	maxRetries int
	retryDelay time.Duration
}

// NewProviderExecutor creates an executor. maxRetries/retryDelay are the
// run's documented defaults (ProcessOptions); hook decisions can always
// override them per attempt.
func NewProviderExecutor(registry core.ProviderRegistry, hooks *HookExecutor, logger core.Logger, maxRetries int, retryDelay time.Duration) *ProviderExecutor {
	return &ProviderExecutor{
		registry:   registry,
		hooks:      hooks,
		logger:     core.EnsureLogger(logger),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// ExecuteInput bundles one slot's invocation context (§4.5 "Inputs").
type ExecuteInput struct {
	Dimension    string
	Sections     []core.Section // one element for section scope, all for global
	Dependencies map[string]*core.DimensionResult
	IsGlobal     bool
	DC           core.DimensionContext
}

// Execute runs the full create-prompt / select-provider / attempt /
// retry / fallback / failure-handler algorithm for one slot and returns
// its final Dimension Result, or an error (wrapping
// core.ErrAllProvidersFailed) when every path is exhausted and no
// failure handler recovers it.
func (e *ProviderExecutor) Execute(ctx context.Context, plugin core.Plugin, in ExecuteInput) (*core.DimensionResult, error) {
	sectionIdx := sectionIndexOf(in)

	prompt, err := plugin.CreatePrompt(ctx, in.DC)
	if err != nil {
		return nil, core.NewEngineError("providerExecutor.createPrompt", err).WithDimension(in.Dimension, sectionIdx)
	}

	selection, err := plugin.SelectProvider(in.Dimension)
	if err != nil {
		return nil, core.NewEngineError("providerExecutor.selectProvider", err).WithDimension(in.Dimension, sectionIdx)
	}

	req := &core.ProviderRequest{
		Input:     prompt,
		Options:   selection.Options,
		Dimension: in.Dimension,
		IsGlobal:  in.IsGlobal,
		Metadata:  map[string]interface{}{"totalSections": len(in.Sections)},
	}

	var attempts []core.ProviderAttempt

	result, lastErr, err := e.attemptProvider(ctx, selection.Provider, req, in)
	if err != nil {
		return nil, err
	}
	if result != nil {
		return result, nil
	}
	attempts = append(attempts, core.ProviderAttempt{Provider: selection.Provider, Error: errMsg(lastErr)})

	for _, fb := range selection.Fallbacks {
		decision, hookErr := e.hooks.HandleProviderFallback(ctx, in.DC, fb, lastErr)
		if hookErr != nil {
			return nil, core.NewEngineError("providerExecutor.handleProviderFallback", hookErr).WithDimension(in.Dimension, sectionIdx)
		}
		if !decision.ShouldFallback {
			break
		}

		telemetry.AddSpanEvent(ctx, "provider_fallback",
			attribute.String("dimension", in.Dimension),
			attribute.String("provider", fb.Provider),
		)

		delay := fb.RetryAfter
		if hookDelay := time.Duration(decision.DelayMs) * time.Millisecond; hookDelay > delay {
			delay = hookDelay
		}
		if delay > 0 {
			if err := sleepOrDone(ctx, delay); err != nil {
				return nil, err
			}
		}

		fbReq := &core.ProviderRequest{
			Input:     req.Input,
			Options:   fb.Options,
			Dimension: in.Dimension,
			IsGlobal:  in.IsGlobal,
			Metadata:  req.Metadata,
		}
		result, fbLastErr, err := e.attemptProvider(ctx, fb.Provider, fbReq, in)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
		lastErr = fbLastErr
		attempts = append(attempts, core.ProviderAttempt{Provider: fb.Provider, Error: errMsg(lastErr)})
	}

	recovered, err := e.hooks.HandleDimensionFailure(ctx, in.DC, attempts)
	if err != nil {
		return nil, core.NewEngineError("providerExecutor.handleDimensionFailure", err).WithDimension(in.Dimension, sectionIdx)
	}
	if recovered != nil {
		if recovered.Metadata == nil {
			recovered.Metadata = &core.ResultMetadata{}
		}
		recovered.Metadata.Fallback = true
		return recovered, nil
	}

	return nil, (&core.EngineError{
		Op:           "providerExecutor.execute",
		Dimension:    in.Dimension,
		SectionIndex: sectionIdx,
		Err:          core.ErrAllProvidersFailed,
		Attempts:     attempts,
	})
}

// attemptProvider runs the retry loop (§4.5 steps 3-6) against one
// provider. A nil result with a nil error means retries were exhausted
// without success and the caller should proceed to fallbacks; lastErr
// carries the final attempt's failure for the fallback hook and the
// AllProvidersFailed chain.
func (e *ProviderExecutor) attemptProvider(ctx context.Context, providerName string, req *core.ProviderRequest, in ExecuteInput) (*core.DimensionResult, error, error) {
	sectionIdx := sectionIndexOf(in)

	provider, found := e.registry.Provider(providerName)
	if !found {
		return nil, core.NewEngineError("providerExecutor.execute", core.ErrProviderNotFound).WithDimension(in.Dimension, sectionIdx), nil
	}

	maxAttempts := 1 + e.maxRetries
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptReq, err := e.hooks.BeforeProviderExecute(ctx, in.DC, req)
		if err != nil {
			return nil, nil, core.NewEngineError("providerExecutor.beforeProviderExecute", err).WithDimension(in.Dimension, sectionIdx)
		}

		telemetry.AddSpanEvent(ctx, "provider_attempt",
			attribute.String("dimension", in.Dimension),
			attribute.String("provider", providerName),
			attribute.Int("attempt", attempt),
		)

		resp, execErr := provider.Execute(ctx, attemptReq)
		if execErr == nil && resp != nil && resp.Error != "" {
			execErr = errors.New(resp.Error)
		}
		if execErr == nil && resp != nil && resp.Error == "" {
			edited, err := e.hooks.AfterProviderExecute(ctx, in.DC, resp)
			if err != nil {
				return nil, nil, core.NewEngineError("providerExecutor.afterProviderExecute", err).WithDimension(in.Dimension, sectionIdx)
			}
			telemetry.Counter("dagengine.provider.success", "provider", providerName, "dimension", in.Dimension)
			return &core.DimensionResult{Data: edited.Data, Metadata: edited.Metadata}, nil, nil
		}

		telemetry.Counter("dagengine.provider.failure", "provider", providerName, "dimension", in.Dimension)
		if execErr != nil {
			lastErr = execErr
		} else {
			lastErr = errors.New(resp.Error)
		}

		decision, err := e.hooks.HandleRetry(ctx, in.DC, attempt, lastErr, e.maxRetries)
		if err != nil {
			return nil, nil, core.NewEngineError("providerExecutor.handleRetry", err).WithDimension(in.Dimension, sectionIdx)
		}
		if !decision.ShouldRetry || attempt == maxAttempts-1 {
			break
		}

		delay := time.Duration(decision.DelayMs) * time.Millisecond
		if decision.DelayMs == 0 {
			delay = e.retryDelay * (1 << attempt)
		}
		if err := sleepOrDone(ctx, delay); err != nil {
			return nil, nil, err
		}
		if decision.ModifiedRequest != nil {
			req = decision.ModifiedRequest
		}
	}

	return nil, lastErr, nil
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sectionIndexOf(in ExecuteInput) int {
	if in.IsGlobal {
		return -1
	}
	return in.DC.SectionIndex
}

func errMsg(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
