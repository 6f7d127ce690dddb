package core

import "time"

// Scope determines how a dimension fans out across the current section list.
type Scope string

const (
	// ScopeSection runs the dimension once per section (the default).
	ScopeSection Scope = "section"
	// ScopeGlobal runs the dimension exactly once for the whole batch.
	ScopeGlobal Scope = "global"
)

// DimensionDescriptor is the plugin's declaration of one unit of work.
// Plugins may declare a bare name (defaults to ScopeSection) by setting
// Scope to the empty string; EffectiveScope normalizes that.
type DimensionDescriptor struct {
	Name  string
	Scope Scope
}

// EffectiveScope returns d.Scope, defaulting to ScopeSection when unset.
func (d DimensionDescriptor) EffectiveScope() Scope {
	if d.Scope == "" {
		return ScopeSection
	}
	return d.Scope
}

// Section is one input item in the batch. Identity is positional: a
// section's index within the current Sections slice is its slot key.
type Section struct {
	Content  string
	Metadata map[string]interface{}
}

// TokenUsage mirrors the shape a provider reports token consumption in.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// ResultMetadata is the open metadata bag attached to a DimensionResult.
// Tokens/Model/Provider are populated whenever a provider call occurred;
// Skipped is set when shouldSkip*Dimension short-circuited the slot;
// Fallback is set when the result is handleDimensionFailure's recovery
// value (a result returned by a fallback provider is not flagged); Extra carries anything
// else a plugin or hook attached.
type ResultMetadata struct {
	Tokens   *TokenUsage            `json:"tokens,omitempty"`
	Model    string                 `json:"model,omitempty"`
	Provider string                 `json:"provider,omitempty"`
	Skipped  bool                   `json:"skipped,omitempty"`
	Fallback bool                   `json:"fallback,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

// DimensionResult is the outcome of one dimension slot. Exactly one of
// Data/Error is normally populated; a skip populates neither but sets
// Metadata.Skipped.
type DimensionResult struct {
	Data     interface{}     `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	Metadata *ResultMetadata `json:"metadata,omitempty"`
}

// IsSkipped reports whether this result represents a skipped slot.
func (r *DimensionResult) IsSkipped() bool {
	return r != nil && r.Metadata != nil && r.Metadata.Skipped
}

// HasError reports whether this result carries a failure.
func (r *DimensionResult) HasError() bool {
	return r != nil && r.Error != ""
}

// AggregatedSectionResults is the synthetic envelope built when a
// global-scope dimension depends on a section-scope dimension (§4.3).
type AggregatedSectionResults struct {
	Sections      []*DimensionResult `json:"sections"`
	Aggregated    bool               `json:"aggregated"`
	TotalSections int                `json:"totalSections"`
}

// ProviderSelection is what the plugin's SelectProvider returns.
type ProviderSelection struct {
	Provider  string
	Options   map[string]interface{}
	Fallbacks []FallbackProvider
}

// FallbackProvider is one entry in a ProviderSelection's fallback chain.
type FallbackProvider struct {
	Provider   string
	Options    map[string]interface{}
	RetryAfter time.Duration
}

// ProviderRequest is what the engine sends to the provider adapter (§6.2).
type ProviderRequest struct {
	Input    interface{} // string or []string
	Options  map[string]interface{}
	Dimension string
	IsGlobal bool
	Metadata map[string]interface{}
}

// ProviderResponse is what the provider adapter returns (§6.2). Domain
// errors must be returned via Error, not panics; transport failures may
// return a Go error from Execute instead, and the engine treats both
// identically.
type ProviderResponse struct {
	Data     interface{}
	Error    string
	Metadata *ResultMetadata
}

// ProcessOptions configures one engine run (§6.3).
type ProcessOptions struct {
	Concurrency       int
	MaxRetries        int
	RetryDelay        time.Duration
	ContinueOnError   bool
	Timeout           time.Duration
	DimensionTimeouts map[string]time.Duration
	Pricing           *PriceTable
	OnProgress        func(ProgressUpdate)
	UpdateEvery       int
}

// DefaultProcessOptions returns the documented defaults, then applies
// any DAGENGINE_* environment overrides.
func DefaultProcessOptions() *ProcessOptions {
	opts := &ProcessOptions{
		Concurrency:       5,
		MaxRetries:        3,
		RetryDelay:        time.Second,
		ContinueOnError:   false,
		Timeout:           60 * time.Second,
		DimensionTimeouts: map[string]time.Duration{},
		UpdateEvery:       1,
	}
	applyProcessOptionsEnv(opts)
	return opts
}

// SectionResult pairs a Section with its per-dimension results, as
// exposed in the caller-facing Result (§6.4).
type SectionResult struct {
	Section Section
	Results map[string]*DimensionResult
}

// Result is the caller-facing shape returned at the end of a run (§6.4).
type Result struct {
	Sections           []SectionResult
	GlobalResults      map[string]*DimensionResult
	TransformedSections []Section
	Costs              *CostSummary
}

// PriceEntry is the per-1M-token price for one model.
type PriceEntry struct {
	InputPer1M  float64 `yaml:"input_per_1m"`
	OutputPer1M float64 `yaml:"output_per_1m"`
}

// PriceTable maps model name to its price entry (§4.9).
type PriceTable struct {
	Models map[string]PriceEntry `yaml:"models"`
}

// CostSummary is the result of the Cost Calculator (§4.9).
type CostSummary struct {
	TotalCost   float64            `json:"totalCost"`
	TotalTokens TokenUsage         `json:"totalTokens"`
	ByDimension map[string]float64 `json:"byDimension"`
	ByProvider  map[string]float64 `json:"byProvider"`
	Currency    string             `json:"currency"`
}

// ProgressUpdate is emitted to ProcessOptions.OnProgress (§4.8).
type ProgressUpdate struct {
	Aggregate   DimensionProgress
	ByDimension map[string]DimensionProgress
}

// DimensionProgress is the per-dimension (or aggregate) counter set tracked by the Progress Tracker.
type DimensionProgress struct {
	Total         int
	Completed     int
	Failed        int
	Cost          float64
	EstimatedCost float64
	ETASeconds    float64
	Percent       float64
}
