package core

import (
	"context"
	"time"
)

// Plugin is the capability record a caller supplies to the engine. Only
// the four methods below are required; every lifecycle hook in spec
// §6.1 is expressed as its own small optional interface (PluginXxxer)
// that a Plugin value may additionally implement. The Hook Executor
// type-asserts for each one and falls back to a documented default when
// absent, the same way io.Copy probes for io.WriterTo/io.ReaderFrom
// instead of requiring a single fat interface.
type Plugin interface {
	// GetDimensions is the source of truth for the dimension set and scope.
	GetDimensions() []DimensionDescriptor

	// CreatePrompt builds the prompt string for one slot.
	CreatePrompt(ctx context.Context, dc DimensionContext) (string, error)

	// SelectProvider chooses the provider (and any fallbacks) for a dimension.
	SelectProvider(dimension string) (ProviderSelection, error)
}

// PlanContext is passed to DefineDependencies during Phase 2.
type PlanContext struct {
	RunID    string
	Sections []Section
}

// ProcessStartContext is passed to BeforeProcessStart during Phase 1.
type ProcessStartContext struct {
	RunID     string
	StartTime time.Time
	Sections  []Section
	Options   *ProcessOptions
}

// ProcessStartOverride is BeforeProcessStart's return value; any nil
// field leaves the corresponding input untouched.
type ProcessStartOverride struct {
	Sections []Section
	Metadata map[string]interface{}
}

// DimensionContext describes one slot (a global dimension, or one
// section index of a section-scope dimension) to every per-slot hook
// and to CreatePrompt. Dependencies is the bundle produced by the
// Dependency Resolver, already run through TransformDependencies when
// that hook is implemented.
type DimensionContext struct {
	RunID         string
	Dimension     string
	IsGlobal      bool
	SectionIndex  int // -1 when IsGlobal
	Sections      []Section
	Dependencies  map[string]*DimensionResult
	GlobalResults map[string]*DimensionResult
}

// SkipDecision is returned by ShouldSkipGlobalDimension/ShouldSkipSectionDimension.
// Skip=false runs the slot normally; Skip=true with a nil Result records
// a metadata.skipped=true result; Skip=true with a non-nil Result
// records that result verbatim (still flagged skipped).
type SkipDecision struct {
	Skip   bool
	Result *DimensionResult
}

// RetryDecision is HandleRetry's return value. DelayMs, when zero, falls
// back to the engine's exponential default for this attempt.
type RetryDecision struct {
	ShouldRetry     bool
	DelayMs         int
	ModifiedRequest *ProviderRequest
}

// FallbackDecision is HandleProviderFallback's return value.
type FallbackDecision struct {
	ShouldFallback bool
	DelayMs        int
}

// TransformContext is passed to TransformSections after a global
// dimension completes.
type TransformContext struct {
	Dimension       string
	CurrentSections []Section
	Result          *DimensionResult
}

// ProcessStateView is the read-only snapshot of run state exposed to
// AfterProcessComplete and HandleProcessFailure. It mirrors the state
// manager's fields without granting write access.
type ProcessStateView struct {
	ID               string
	StartTime        time.Time
	Metadata         map[string]interface{}
	Sections         []Section
	OriginalSections []Section
}

// PluginDependencyDefiner declares cross-dimension dependencies.
// Default when absent: every dimension has no dependencies.
type PluginDependencyDefiner interface {
	DefineDependencies(ctx context.Context, pc PlanContext) (map[string][]string, error)
}

// PluginProcessStarter runs once at the very start of a run.
// Default when absent: sections and metadata are used as supplied by the caller.
type PluginProcessStarter interface {
	BeforeProcessStart(ctx context.Context, pc ProcessStartContext) (*ProcessStartOverride, error)
}

// PluginGlobalSkipper decides whether a global dimension's slot should be skipped.
// Default when absent: never skip.
type PluginGlobalSkipper interface {
	ShouldSkipGlobalDimension(ctx context.Context, dc DimensionContext) (SkipDecision, error)
}

// PluginSectionSkipper decides whether a (dimension, section) slot should be skipped.
// Default when absent: never skip.
type PluginSectionSkipper interface {
	ShouldSkipSectionDimension(ctx context.Context, dc DimensionContext) (SkipDecision, error)
}

// PluginDependencyTransformer rewrites the resolved dependency bundle
// just before CreatePrompt runs. Default when absent: bundle unchanged.
type PluginDependencyTransformer interface {
	TransformDependencies(ctx context.Context, dc DimensionContext, deps map[string]*DimensionResult) (map[string]*DimensionResult, error)
}

// PluginDimensionStarter runs immediately before the provider executor
// is invoked for a slot. Default when absent: no-op.
type PluginDimensionStarter interface {
	BeforeDimensionExecute(ctx context.Context, dc DimensionContext) error
}

// PluginProviderRequestEditor may rewrite the provider request before
// each attempt. Default when absent: request unchanged.
type PluginProviderRequestEditor interface {
	BeforeProviderExecute(ctx context.Context, dc DimensionContext, req *ProviderRequest) (*ProviderRequest, error)
}

// PluginProviderResponseEditor may rewrite a successful provider
// response. Default when absent: response unchanged.
type PluginProviderResponseEditor interface {
	AfterProviderExecute(ctx context.Context, dc DimensionContext, resp *ProviderResponse) (*ProviderResponse, error)
}

// PluginDimensionFinisher runs after a slot's final outcome is known
// (success, skip, or failure). Default when absent: no-op.
type PluginDimensionFinisher interface {
	AfterDimensionExecute(ctx context.Context, dc DimensionContext, result *DimensionResult) error
}

// PluginSectionTransformer may reshape the section list after a global
// dimension completes. Default when absent: sections unchanged.
type PluginSectionTransformer interface {
	TransformSections(ctx context.Context, tc TransformContext) ([]Section, error)
}

// PluginRetryHandler is consulted after a failed provider attempt.
// Default when absent: retry until maxRetries with the engine's
// exponential backoff.
type PluginRetryHandler interface {
	HandleRetry(ctx context.Context, dc DimensionContext, attemptIndex int, attemptErr error) (RetryDecision, error)
}

// PluginFallbackHandler is consulted before switching to each declared
// fallback provider. Default when absent: always fall back, no extra delay.
type PluginFallbackHandler interface {
	HandleProviderFallback(ctx context.Context, dc DimensionContext, fb FallbackProvider, attemptErr error) (FallbackDecision, error)
}

// PluginDimensionFailureHandler is consulted after the primary and all
// fallbacks have failed. Returning a non-nil result recovers the slot;
// returning nil propagates AllProvidersFailed. Default when absent: nil.
type PluginDimensionFailureHandler interface {
	HandleDimensionFailure(ctx context.Context, dc DimensionContext, attempts []ProviderAttempt) (*DimensionResult, error)
}

// PluginResultsFinalizer may rewrite the assembled Result during Phase 4,
// before cost attachment. Default when absent: results unchanged.
type PluginResultsFinalizer interface {
	FinalizeResults(ctx context.Context, result *Result) (*Result, error)
}

// PluginProcessCompleter runs at the very end of a successful run; a
// non-nil return value replaces the final result. Default when absent: nil.
type PluginProcessCompleter interface {
	AfterProcessComplete(ctx context.Context, state ProcessStateView, result *Result, duration time.Duration, successCount, failureCount int) (*Result, error)
}

// PluginFailureHandler is consulted whenever any phase returns an
// uncaught error; a non-nil return value recovers the run. Default when
// absent: nil (the error propagates to the caller).
type PluginFailureHandler interface {
	HandleProcessFailure(ctx context.Context, runErr error, partial *Result) (*Result, error)
}

// Provider is the abstract adapter the engine calls into for every
// slot. Implementations must not panic for domain errors — they report
// failure through ProviderResponse.Error; a non-nil err from Execute
// (transport failure) is treated identically by the provider executor.
type Provider interface {
	Execute(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)
}

// ProviderRegistry resolves a provider name to an implementation, as
// referenced by ProviderSelection.Provider and FallbackProvider.Provider.
type ProviderRegistry interface {
	Provider(name string) (Provider, bool)
}
