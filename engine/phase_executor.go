package engine

import (
	"context"
	"time"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/graph"
	"github.com/dagengine/engine/pricing"
)

// PhaseExecutor runs the five sequential phases of one process call
// (§4.10): pre-process, planning, execution, finalization, post-process,
// with a single failure-recovery path wrapping the whole run.
type PhaseExecutor struct {
	runID   string
	plugin  core.Plugin
	opts    *core.ProcessOptions
	logger  core.Logger

	state    *StateManager
	hooks    *HookExecutor
	resolver *DependencyResolver
	progress *ProgressTracker
	dims     *DimensionExecutor
	transforms *TransformationManager
	calculator *pricing.Calculator
}

// NewPhaseExecutor wires a full run's collaborators from a plugin,
// provider registry, and options. sections is the caller-supplied input;
// runID identifies this run for logging and checkpointing.
func NewPhaseExecutor(runID string, plugin core.Plugin, registry core.ProviderRegistry, sections []core.Section, opts *core.ProcessOptions, logger core.Logger) *PhaseExecutor {
	if opts == nil {
		opts = core.DefaultProcessOptions()
	}
	logger = core.EnsureLogger(logger)
	if runID == "" {
		runID = core.NewRunID()
	}

	startTime := time.Now()
	processState := core.NewProcessState(runID, startTime, sections)
	state := NewStateManager(processState)

	hooks := NewHookExecutor(plugin)
	resolver := NewDependencyResolver(state, plugin.GetDimensions())
	progress := NewProgressTracker(opts.OnProgress, opts.UpdateEvery)
	providers := NewProviderExecutor(registry, hooks, logger, opts.MaxRetries, opts.RetryDelay)
	dims := NewDimensionExecutor(plugin, state, resolver, hooks, providers, progress, logger, opts)
	transforms := NewTransformationManager(state, hooks, progress)
	calculator := pricing.NewCalculator(opts.Pricing, logger)

	return &PhaseExecutor{
		runID:      runID,
		plugin:     plugin,
		opts:       opts,
		logger:     logger,
		state:      state,
		hooks:      hooks,
		resolver:   resolver,
		progress:   progress,
		dims:       dims,
		transforms: transforms,
		calculator: calculator,
	}
}

// Run executes all five phases and returns the caller-facing Result.
func (p *PhaseExecutor) Run(ctx context.Context) (result *core.Result, err error) {
	result, err = p.runPhases(ctx)
	if err == nil {
		return result, nil
	}

	recovered, hookErr := p.hooks.HandleProcessFailure(ctx, err, result)
	if hookErr != nil {
		return nil, core.NewEngineError("phaseExecutor.handleProcessFailure", hookErr)
	}
	if recovered != nil {
		return recovered, nil
	}
	return nil, err
}

func (p *PhaseExecutor) runPhases(ctx context.Context) (*core.Result, error) {
	successCount, failureCount := 0, 0
	runStart := time.Now()

	// Phase 1 — Pre-process
	if err := p.preProcess(ctx); err != nil {
		return nil, err
	}

	// Phase 2 — Planning
	groups, dependencyGraph, err := p.plan(ctx)
	if err != nil {
		return nil, err
	}

	// Phase 3 — Execution
	for _, group := range groups {
		globals, sectionDims := splitByScope(group, p.plugin.GetDimensions())

		for _, dim := range globals {
			p.progress.InitDimension(dim, true, 1)
		}
		for _, dim := range sectionDims {
			p.progress.InitDimension(dim, false, p.state.SectionCount())
		}

		if err := p.runGlobalsInParallel(ctx, globals, dependencyGraph); err != nil {
			return nil, err
		}

		for _, dim := range globals {
			result, _ := p.state.GlobalResult(dim)
			if err := p.transforms.Apply(ctx, dim, result); err != nil {
				return nil, err
			}
		}

		for _, dim := range sectionDims {
			if err := p.dims.RunSection(ctx, p.runID, dim, dependencyGraph[dim]); err != nil {
				return nil, err
			}
		}
	}

	for _, res := range p.state.AllGlobalResults() {
		if res.HasError() {
			failureCount++
		} else {
			successCount++
		}
	}
	for i := 0; i < p.state.SectionCount(); i++ {
		for _, res := range p.state.SectionResultsSlot(i) {
			if res.HasError() {
				failureCount++
			} else {
				successCount++
			}
		}
	}

	// Phase 4 — Finalization
	result, err := p.finalize(ctx)
	if err != nil {
		return nil, err
	}

	// Phase 5 — Post-process
	duration := time.Since(runStart)
	replacement, err := p.hooks.AfterProcessComplete(ctx, p.state.View(), result, duration, successCount, failureCount)
	if err != nil {
		return nil, core.NewEngineError("phaseExecutor.afterProcessComplete", err)
	}
	if replacement != nil {
		return replacement, nil
	}
	return result, nil
}

// preProcess is Phase 1 (§4.10).
func (p *PhaseExecutor) preProcess(ctx context.Context) error {
	pc := core.ProcessStartContext{
		RunID:     p.runID,
		StartTime: p.state.StartTime(),
		Sections:  p.state.Sections(),
		Options:   p.opts,
	}

	override, err := p.hooks.BeforeProcessStart(ctx, pc)
	if err != nil {
		return core.NewEngineError("phaseExecutor.beforeProcessStart", err)
	}
	if override != nil {
		if override.Sections != nil {
			p.state.UpdateSections(override.Sections)
		}
		if override.Metadata != nil {
			p.state.SetMetadata(override.Metadata)
		}
	}

	p.state.SnapshotOriginalSections()

	if p.state.SectionCount() == 0 {
		return core.NewEngineError("phaseExecutor.preProcess", core.ErrNoSections)
	}
	return nil
}

// plan is Phase 2: build the dependency graph, topologically sort, and
// group for parallel execution (§4.10). Failures here are fatal.
func (p *PhaseExecutor) plan(ctx context.Context) ([][]string, map[string][]string, error) {
	descriptors := p.plugin.GetDimensions()
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.Name
	}

	deps, err := p.hooks.DefineDependencies(ctx, core.PlanContext{RunID: p.runID, Sections: p.state.Sections()})
	if err != nil {
		return nil, nil, core.NewEngineError("phaseExecutor.defineDependencies", err)
	}

	g := graph.Build(names, deps)
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, nil, err
	}
	groups, err := g.GroupForParallelExecution(sorted)
	if err != nil {
		return nil, nil, err
	}

	return groups, deps, nil
}

// runGlobalsInParallel runs every global dimension in one group
// concurrently with each other (§4.10 Phase 3, §5 ordering guarantees).
func (p *PhaseExecutor) runGlobalsInParallel(ctx context.Context, globals []string, deps map[string][]string) error {
	if len(globals) == 0 {
		return nil
	}

	errCh := make(chan error, len(globals))
	for _, dim := range globals {
		go func(dimension string) {
			errCh <- p.dims.RunGlobal(ctx, p.runID, dimension, deps[dimension])
		}(dim)
	}

	var firstErr error
	for range globals {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// finalize is Phase 4 (§4.10): assemble the Result, run finalizeResults,
// then attach costs computed over preserved pre-transform results plus
// current results.
func (p *PhaseExecutor) finalize(ctx context.Context) (*core.Result, error) {
	sections := p.state.Sections()
	sectionResults := make([]core.SectionResult, len(sections))
	for i, sec := range sections {
		sectionResults[i] = core.SectionResult{Section: sec, Results: p.state.SectionResultsSlot(i)}
	}

	result := &core.Result{
		Sections:            sectionResults,
		GlobalResults:       p.state.AllGlobalResults(),
		TransformedSections: sections,
	}

	finalized, err := p.hooks.FinalizeResults(ctx, result)
	if err != nil {
		return nil, core.NewEngineError("phaseExecutor.finalizeResults", err)
	}
	if finalized != nil {
		result = finalized
	}

	costInputs := p.transforms.PreTransformSectionResults()
	for _, sr := range result.Sections {
		costInputs = append(costInputs, sr.Results)
	}
	result.Costs = p.calculator.Calculate(costInputs, result.GlobalResults)

	return result, nil
}

// splitByScope partitions one execution-group batch into its
// global-scope and section-scope dimension names, preserving the
// group's declared order within each partition (§4.10 Phase 3).
func splitByScope(group []string, descriptors []core.DimensionDescriptor) (globals, sections []string) {
	scope := make(map[string]core.Scope, len(descriptors))
	for _, d := range descriptors {
		scope[d.Name] = d.EffectiveScope()
	}
	for _, dim := range group {
		if scope[dim] == core.ScopeGlobal {
			globals = append(globals, dim)
		} else {
			sections = append(sections, dim)
		}
	}
	return globals, sections
}
