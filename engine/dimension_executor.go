package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dagengine/engine/core"
)

// DimensionExecutor runs one dimension's slots to completion: a single
// call for a global dimension, or a bounded-concurrency fan-out across
// sections for a section dimension (§4.6).
type DimensionExecutor struct {
	plugin     core.Plugin
	state      *StateManager
	resolver   *DependencyResolver
	hooks      *HookExecutor
	providers  *ProviderExecutor
	progress   *ProgressTracker
	logger     core.Logger
	priceTable *core.PriceTable

	concurrency       chan struct{}
	dimensionTimeouts map[string]time.Duration
	defaultTimeout    time.Duration
	continueOnError   bool
}

// NewDimensionExecutor wires the dimension executor's collaborators.
// concurrency bounds the section-scope fan-out queue (§5).
func NewDimensionExecutor(
	plugin core.Plugin,
	state *StateManager,
	resolver *DependencyResolver,
	hooks *HookExecutor,
	providers *ProviderExecutor,
	progress *ProgressTracker,
	logger core.Logger,
	opts *core.ProcessOptions,
) *DimensionExecutor {
	return &DimensionExecutor{
		plugin:            plugin,
		state:             state,
		resolver:          resolver,
		hooks:             hooks,
		providers:         providers,
		progress:          progress,
		logger:            core.EnsureLogger(logger),
		priceTable:        opts.Pricing,
		concurrency:       make(chan struct{}, opts.Concurrency),
		dimensionTimeouts: opts.DimensionTimeouts,
		defaultTimeout:    opts.Timeout,
		continueOnError:   opts.ContinueOnError,
	}
}

// RunGlobal executes a global-scope dimension once, over every section
// currently visible, and stores the outcome in globalResults.
func (e *DimensionExecutor) RunGlobal(ctx context.Context, runID string, dimension string, deps []string) error {
	sections := e.state.Sections()
	dc := core.DimensionContext{
		RunID:         runID,
		Dimension:     dimension,
		IsGlobal:      true,
		SectionIndex:  -1,
		Sections:      sections,
		Dependencies:  e.resolver.ResolveForGlobal(deps),
		GlobalResults: e.state.AllGlobalResults(),
	}

	transformed, err := e.hooks.TransformDependencies(ctx, dc, dc.Dependencies)
	if err != nil {
		return core.NewEngineError("dimensionExecutor.transformDependencies", err).WithDimension(dimension, -1)
	}
	dc.Dependencies = transformed

	skip, err := e.hooks.ShouldSkipGlobalDimension(ctx, dc)
	if err != nil {
		return core.NewEngineError("dimensionExecutor.shouldSkipGlobalDimension", err).WithDimension(dimension, -1)
	}
	if skip.Skip {
		result := skippedResult(skip.Result)
		e.state.SetGlobalResult(dimension, result)
		e.finishSlot(ctx, dc, result, dimension, false, 0)
		return nil
	}

	if err := e.hooks.BeforeDimensionExecute(ctx, dc); err != nil {
		return core.NewEngineError("dimensionExecutor.beforeDimensionExecute", err).WithDimension(dimension, -1)
	}

	result, err := e.executeWithTimeout(ctx, dimension, dc, sections)
	if err != nil {
		if !e.continueOnError {
			return err
		}
		result = errorResult(err)
	}

	e.state.SetGlobalResult(dimension, result)
	e.finishSlot(ctx, dc, result, dimension, result.HasError(), e.costOf(result))
	return nil
}

// RunSection executes a section-scope dimension across every section
// currently visible, fanning out through the bounded concurrency queue.
// The first failure aborts the whole dimension unless continueOnError is set.
func (e *DimensionExecutor) RunSection(ctx context.Context, runID string, dimension string, deps []string) error {
	sections := e.state.Sections()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := range sections {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			e.concurrency <- struct{}{}
			defer func() { <-e.concurrency }()

			defer func() {
				if r := recover(); r != nil {
					panicErr := fmt.Errorf("dimension %s section %d panicked: %v\n%s", dimension, idx, r, debug.Stack())
					e.logger.Error("slot execution panicked", map[string]interface{}{
						"operation": "slot_panic",
						"dimension": dimension,
						"section":   idx,
						"panic":     fmt.Sprintf("%v", r),
					})
					mu.Lock()
					if firstErr == nil {
						firstErr = panicErr
					}
					mu.Unlock()
					e.state.SetSectionResult(idx, dimension, errorResult(panicErr))
					e.progress.RecordSlotCompletion(ctx, dimension, true, 0)
				}
			}()

			mu.Lock()
			abort := firstErr != nil && !e.continueOnError
			mu.Unlock()
			if abort {
				return
			}

			section := sections[idx]
			dc := core.DimensionContext{
				RunID:         runID,
				Dimension:     dimension,
				IsGlobal:      false,
				SectionIndex:  idx,
				Sections:      []core.Section{section},
				Dependencies:  e.resolver.ResolveForSection(idx, deps),
				GlobalResults: e.state.AllGlobalResults(),
			}

			transformed, err := e.hooks.TransformDependencies(ctx, dc, dc.Dependencies)
			if err != nil {
				e.recordSectionFailure(ctx, dimension, idx, core.NewEngineError("dimensionExecutor.transformDependencies", err).WithDimension(dimension, idx), &mu, &firstErr)
				return
			}
			dc.Dependencies = transformed

			skip, err := e.hooks.ShouldSkipSectionDimension(ctx, dc)
			if err != nil {
				e.recordSectionFailure(ctx, dimension, idx, core.NewEngineError("dimensionExecutor.shouldSkipSectionDimension", err).WithDimension(dimension, idx), &mu, &firstErr)
				return
			}
			if skip.Skip {
				result := skippedResult(skip.Result)
				e.state.SetSectionResult(idx, dimension, result)
				e.finishSlot(ctx, dc, result, dimension, false, 0)
				return
			}

			if err := e.hooks.BeforeDimensionExecute(ctx, dc); err != nil {
				e.recordSectionFailure(ctx, dimension, idx, core.NewEngineError("dimensionExecutor.beforeDimensionExecute", err).WithDimension(dimension, idx), &mu, &firstErr)
				return
			}

			result, err := e.executeWithTimeout(ctx, dimension, dc, []core.Section{section})
			if err != nil {
				if !e.continueOnError {
					e.recordSectionFailure(ctx, dimension, idx, err, &mu, &firstErr)
					return
				}
				result = errorResult(err)
			}

			e.state.SetSectionResult(idx, dimension, result)
			e.finishSlot(ctx, dc, result, dimension, result.HasError(), e.costOf(result))
		}(i)
	}

	wg.Wait()
	return firstErr
}

func (e *DimensionExecutor) recordSectionFailure(ctx context.Context, dimension string, idx int, err error, mu *sync.Mutex, firstErr *error) {
	mu.Lock()
	if *firstErr == nil {
		*firstErr = err
	}
	mu.Unlock()
	e.state.SetSectionResult(idx, dimension, errorResult(err))
	e.progress.RecordSlotCompletion(ctx, dimension, true, 0)
}

// executeWithTimeout wraps the provider executor call in the
// dimension's configured (or default) wall-clock timeout (§4.6).
func (e *DimensionExecutor) executeWithTimeout(ctx context.Context, dimension string, dc core.DimensionContext, sections []core.Section) (*core.DimensionResult, error) {
	timeout := e.defaultTimeout
	if d, ok := e.dimensionTimeouts[dimension]; ok {
		timeout = d
	}

	slotCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		slotCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		result *core.DimensionResult
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: core.NewEngineError("dimensionExecutor.execute",
					fmt.Errorf("%w: panic: %v\n%s", core.ErrProviderError, r, debug.Stack())).WithDimension(dimension, sectionIndexFromDC(dc))}
			}
		}()
		result, err := e.providers.Execute(slotCtx, e.plugin, ExecuteInput{
			Dimension:    dimension,
			Sections:     sections,
			Dependencies: dc.Dependencies,
			IsGlobal:     dc.IsGlobal,
			DC:           dc,
		})
		ch <- outcome{result: result, err: err}
	}()

	select {
	case <-slotCtx.Done():
		return nil, core.NewEngineError("dimensionExecutor.execute", core.ErrTimeout).WithDimension(dimension, sectionIndexFromDC(dc))
	case o := <-ch:
		return o.result, o.err
	}
}

func (e *DimensionExecutor) finishSlot(ctx context.Context, dc core.DimensionContext, result *core.DimensionResult, dimension string, failed bool, cost float64) {
	if err := e.hooks.AfterDimensionExecute(ctx, dc, result); err != nil {
		e.logger.Warn("afterDimensionExecute hook failed", map[string]interface{}{
			"operation": "after_dimension_execute_error",
			"dimension": dimension,
			"error":     err.Error(),
		})
	}
	e.progress.RecordSlotCompletion(ctx, dimension, failed, cost)
}

func sectionIndexFromDC(dc core.DimensionContext) int {
	if dc.IsGlobal {
		return -1
	}
	return dc.SectionIndex
}

func skippedResult(supplied *core.DimensionResult) *core.DimensionResult {
	if supplied != nil {
		if supplied.Metadata == nil {
			supplied.Metadata = &core.ResultMetadata{}
		}
		supplied.Metadata.Skipped = true
		return supplied
	}
	return &core.DimensionResult{Metadata: &core.ResultMetadata{Skipped: true}}
}

func errorResult(err error) *core.DimensionResult {
	return &core.DimensionResult{Error: err.Error()}
}

// costOf prices one slot's token usage against the run's price table for
// live progress tracking (§4.8 "Cost estimation"). The authoritative
// per-run CostSummary is still recomputed from scratch by the Cost
// Calculator in Phase 4, over the full preserved results set; this is
// only the running estimate fed to the progress callback as slots finish.
func (e *DimensionExecutor) costOf(result *core.DimensionResult) float64 {
	if e.priceTable == nil || result == nil || result.Metadata == nil || result.Metadata.Tokens == nil || result.Metadata.Model == "" {
		return 0
	}
	price, ok := e.priceTable.Models[result.Metadata.Model]
	if !ok {
		return 0
	}
	tokens := result.Metadata.Tokens
	return (float64(tokens.Input)*price.InputPer1M + float64(tokens.Output)*price.OutputPer1M) / 1_000_000
}
