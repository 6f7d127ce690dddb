// Package enginetest provides test doubles for core.Plugin and
// core.Provider, in the style of the pack's mockLogger/mockCircuitBreaker
// test doubles: plain structs with optional override funcs and a
// callback hook for call counting.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/dagengine/engine/core"
)

// StubPlugin implements core.Plugin and every optional PluginXxxer hook.
// Each hook is backed by a settable func field; a nil field falls back
// to the same default behavior the hook executor documents, so tests
// can override exactly the hooks they care about.
type StubPlugin struct {
	Dimensions []core.DimensionDescriptor

	PromptFunc                 func(ctx context.Context, dc core.DimensionContext) (string, error)
	ProviderFunc               func(dimension string) (core.ProviderSelection, error)
	DefineDependenciesFunc     func(ctx context.Context, pc core.PlanContext) (map[string][]string, error)
	BeforeProcessStartFunc     func(ctx context.Context, pc core.ProcessStartContext) (*core.ProcessStartOverride, error)
	ShouldSkipGlobalFunc       func(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error)
	ShouldSkipSectionFunc      func(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error)
	TransformDependenciesFunc  func(ctx context.Context, dc core.DimensionContext, deps map[string]*core.DimensionResult) (map[string]*core.DimensionResult, error)
	BeforeDimensionExecuteFunc func(ctx context.Context, dc core.DimensionContext) error
	BeforeProviderExecuteFunc  func(ctx context.Context, dc core.DimensionContext, req *core.ProviderRequest) (*core.ProviderRequest, error)
	AfterProviderExecuteFunc   func(ctx context.Context, dc core.DimensionContext, resp *core.ProviderResponse) (*core.ProviderResponse, error)
	AfterDimensionExecuteFunc  func(ctx context.Context, dc core.DimensionContext, result *core.DimensionResult) error
	TransformSectionsFunc      func(ctx context.Context, tc core.TransformContext) ([]core.Section, error)
	HandleRetryFunc            func(ctx context.Context, dc core.DimensionContext, attemptIndex int, attemptErr error) (core.RetryDecision, error)
	HandleProviderFallbackFunc func(ctx context.Context, dc core.DimensionContext, fb core.FallbackProvider, attemptErr error) (core.FallbackDecision, error)
	HandleDimensionFailureFunc func(ctx context.Context, dc core.DimensionContext, attempts []core.ProviderAttempt) (*core.DimensionResult, error)
	FinalizeResultsFunc        func(ctx context.Context, result *core.Result) (*core.Result, error)
	AfterProcessCompleteFunc   func(ctx context.Context, state core.ProcessStateView, result *core.Result, duration time.Duration, successCount, failureCount int) (*core.Result, error)
	HandleProcessFailureFunc   func(ctx context.Context, runErr error, partial *core.Result) (*core.Result, error)

	mu    sync.Mutex
	calls map[string]int
}

// NewStubPlugin creates a plugin with the given dimensions and every
// hook left at its documented default.
func NewStubPlugin(dims ...core.DimensionDescriptor) *StubPlugin {
	return &StubPlugin{Dimensions: dims, calls: make(map[string]int)}
}

func (p *StubPlugin) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[name]++
}

// CallCount returns how many times the named hook was invoked.
func (p *StubPlugin) CallCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

func (p *StubPlugin) GetDimensions() []core.DimensionDescriptor { return p.Dimensions }

func (p *StubPlugin) CreatePrompt(ctx context.Context, dc core.DimensionContext) (string, error) {
	p.record("CreatePrompt")
	if p.PromptFunc != nil {
		return p.PromptFunc(ctx, dc)
	}
	return dc.Dimension, nil
}

func (p *StubPlugin) SelectProvider(dimension string) (core.ProviderSelection, error) {
	p.record("SelectProvider")
	if p.ProviderFunc != nil {
		return p.ProviderFunc(dimension)
	}
	return core.ProviderSelection{Provider: "default"}, nil
}

func (p *StubPlugin) DefineDependencies(ctx context.Context, pc core.PlanContext) (map[string][]string, error) {
	p.record("DefineDependencies")
	if p.DefineDependenciesFunc != nil {
		return p.DefineDependenciesFunc(ctx, pc)
	}
	return map[string][]string{}, nil
}

func (p *StubPlugin) BeforeProcessStart(ctx context.Context, pc core.ProcessStartContext) (*core.ProcessStartOverride, error) {
	p.record("BeforeProcessStart")
	if p.BeforeProcessStartFunc != nil {
		return p.BeforeProcessStartFunc(ctx, pc)
	}
	return nil, nil
}

func (p *StubPlugin) ShouldSkipGlobalDimension(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error) {
	p.record("ShouldSkipGlobalDimension")
	if p.ShouldSkipGlobalFunc != nil {
		return p.ShouldSkipGlobalFunc(ctx, dc)
	}
	return core.SkipDecision{}, nil
}

func (p *StubPlugin) ShouldSkipSectionDimension(ctx context.Context, dc core.DimensionContext) (core.SkipDecision, error) {
	p.record("ShouldSkipSectionDimension")
	if p.ShouldSkipSectionFunc != nil {
		return p.ShouldSkipSectionFunc(ctx, dc)
	}
	return core.SkipDecision{}, nil
}

func (p *StubPlugin) TransformDependencies(ctx context.Context, dc core.DimensionContext, deps map[string]*core.DimensionResult) (map[string]*core.DimensionResult, error) {
	p.record("TransformDependencies")
	if p.TransformDependenciesFunc != nil {
		return p.TransformDependenciesFunc(ctx, dc, deps)
	}
	return deps, nil
}

func (p *StubPlugin) BeforeDimensionExecute(ctx context.Context, dc core.DimensionContext) error {
	p.record("BeforeDimensionExecute")
	if p.BeforeDimensionExecuteFunc != nil {
		return p.BeforeDimensionExecuteFunc(ctx, dc)
	}
	return nil
}

func (p *StubPlugin) BeforeProviderExecute(ctx context.Context, dc core.DimensionContext, req *core.ProviderRequest) (*core.ProviderRequest, error) {
	p.record("BeforeProviderExecute")
	if p.BeforeProviderExecuteFunc != nil {
		return p.BeforeProviderExecuteFunc(ctx, dc, req)
	}
	return req, nil
}

func (p *StubPlugin) AfterProviderExecute(ctx context.Context, dc core.DimensionContext, resp *core.ProviderResponse) (*core.ProviderResponse, error) {
	p.record("AfterProviderExecute")
	if p.AfterProviderExecuteFunc != nil {
		return p.AfterProviderExecuteFunc(ctx, dc, resp)
	}
	return resp, nil
}

func (p *StubPlugin) AfterDimensionExecute(ctx context.Context, dc core.DimensionContext, result *core.DimensionResult) error {
	p.record("AfterDimensionExecute")
	if p.AfterDimensionExecuteFunc != nil {
		return p.AfterDimensionExecuteFunc(ctx, dc, result)
	}
	return nil
}

func (p *StubPlugin) TransformSections(ctx context.Context, tc core.TransformContext) ([]core.Section, error) {
	p.record("TransformSections")
	if p.TransformSectionsFunc != nil {
		return p.TransformSectionsFunc(ctx, tc)
	}
	return tc.CurrentSections, nil
}

func (p *StubPlugin) HandleRetry(ctx context.Context, dc core.DimensionContext, attemptIndex int, attemptErr error) (core.RetryDecision, error) {
	p.record("HandleRetry")
	if p.HandleRetryFunc != nil {
		return p.HandleRetryFunc(ctx, dc, attemptIndex, attemptErr)
	}
	return core.RetryDecision{ShouldRetry: true}, nil
}

func (p *StubPlugin) HandleProviderFallback(ctx context.Context, dc core.DimensionContext, fb core.FallbackProvider, attemptErr error) (core.FallbackDecision, error) {
	p.record("HandleProviderFallback")
	if p.HandleProviderFallbackFunc != nil {
		return p.HandleProviderFallbackFunc(ctx, dc, fb, attemptErr)
	}
	return core.FallbackDecision{ShouldFallback: true}, nil
}

func (p *StubPlugin) HandleDimensionFailure(ctx context.Context, dc core.DimensionContext, attempts []core.ProviderAttempt) (*core.DimensionResult, error) {
	p.record("HandleDimensionFailure")
	if p.HandleDimensionFailureFunc != nil {
		return p.HandleDimensionFailureFunc(ctx, dc, attempts)
	}
	return nil, nil
}

func (p *StubPlugin) FinalizeResults(ctx context.Context, result *core.Result) (*core.Result, error) {
	p.record("FinalizeResults")
	if p.FinalizeResultsFunc != nil {
		return p.FinalizeResultsFunc(ctx, result)
	}
	return result, nil
}

func (p *StubPlugin) AfterProcessComplete(ctx context.Context, state core.ProcessStateView, result *core.Result, duration time.Duration, successCount, failureCount int) (*core.Result, error) {
	p.record("AfterProcessComplete")
	if p.AfterProcessCompleteFunc != nil {
		return p.AfterProcessCompleteFunc(ctx, state, result, duration, successCount, failureCount)
	}
	return nil, nil
}

func (p *StubPlugin) HandleProcessFailure(ctx context.Context, runErr error, partial *core.Result) (*core.Result, error) {
	p.record("HandleProcessFailure")
	if p.HandleProcessFailureFunc != nil {
		return p.HandleProcessFailureFunc(ctx, runErr, partial)
	}
	return nil, nil
}

// MockProvider implements core.Provider with a settable response/error
// pair and a call counter, mirroring the pack's mockCapabilityProvider.
type MockProvider struct {
	mu        sync.Mutex
	calls     int
	ExecFunc  func(ctx context.Context, req *core.ProviderRequest) (*core.ProviderResponse, error)
	Responses []*core.ProviderResponse // consumed in order when ExecFunc is nil; last entry repeats
	Err       error
}

// NewMockProvider creates a provider that always returns resp (or Err, if set).
func NewMockProvider(resp *core.ProviderResponse) *MockProvider {
	return &MockProvider{Responses: []*core.ProviderResponse{resp}}
}

func (m *MockProvider) Execute(ctx context.Context, req *core.ProviderRequest) (*core.ProviderResponse, error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.mu.Unlock()

	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return &core.ProviderResponse{}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// CallCount returns how many times Execute was invoked.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockRegistry is a simple name->Provider lookup table.
type MockRegistry struct {
	Providers map[string]core.Provider
}

// NewMockRegistry creates a registry from a name->provider map.
func NewMockRegistry(providers map[string]core.Provider) *MockRegistry {
	return &MockRegistry{Providers: providers}
}

func (r *MockRegistry) Provider(name string) (core.Provider, bool) {
	p, ok := r.Providers[name]
	return p, ok
}
