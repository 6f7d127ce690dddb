// Package pricing loads a model→price table from YAML and turns
// dimension results into a cost summary (spec §4.9).
package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dagengine/engine/core"
	"github.com/dagengine/engine/telemetry"
)

// LoadModelPriceTable reads and parses a price table from a YAML file of
// the form:
//
//	models:
//	  gpt-4o:
//	    input_per_1m: 2.50
//	    output_per_1m: 10.00
func LoadModelPriceTable(path string) (*core.PriceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading price table %s: %w", path, err)
	}
	return ParseModelPriceTable(data)
}

// ParseModelPriceTable parses a price table from raw YAML bytes.
func ParseModelPriceTable(data []byte) (*core.PriceTable, error) {
	var table core.PriceTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing price table: %w", err)
	}
	if table.Models == nil {
		table.Models = map[string]core.PriceEntry{}
	}
	return &table, nil
}

// Calculator turns dimension results into a CostSummary using a fixed
// price table. It warns at most once per missing model, via the logger
// supplied at construction, and otherwise never errors: unpriced results
// are silently excluded from the total per spec §4.9.
type Calculator struct {
	table  *core.PriceTable
	logger core.Logger
	warned map[string]bool
}

// NewCalculator creates a Calculator over table. A nil table prices
// nothing (every result is skipped as unpriced).
func NewCalculator(table *core.PriceTable, logger core.Logger) *Calculator {
	if table == nil {
		table = &core.PriceTable{Models: map[string]core.PriceEntry{}}
	}
	return &Calculator{
		table:  table,
		logger: core.EnsureLogger(logger),
		warned: make(map[string]bool),
	}
}

// scopedResult pairs a dimension result with the dimension name it
// belongs to, for per-dimension/per-provider accumulation.
type scopedResult struct {
	dimension string
	result    *core.DimensionResult
}

// Calculate accumulates cost across every priced result in sectionResults
// (per section, per dimension) and globalResults (per dimension).
func (c *Calculator) Calculate(sectionResults []map[string]*core.DimensionResult, globalResults map[string]*core.DimensionResult) *core.CostSummary {
	summary := &core.CostSummary{
		ByDimension: make(map[string]float64),
		ByProvider:  make(map[string]float64),
		Currency:    "USD",
	}

	var scoped []scopedResult
	for _, bySection := range sectionResults {
		for dim, res := range bySection {
			scoped = append(scoped, scopedResult{dimension: dim, result: res})
		}
	}
	for dim, res := range globalResults {
		scoped = append(scoped, scopedResult{dimension: dim, result: res})
	}

	for _, entry := range scoped {
		c.accumulate(entry.dimension, entry.result, summary)
	}

	telemetry.Histogram("dagengine.cost.total", summary.TotalCost, "currency", summary.Currency)
	return summary
}

func (c *Calculator) accumulate(dimension string, result *core.DimensionResult, summary *core.CostSummary) {
	if result == nil || result.Metadata == nil || result.Metadata.Tokens == nil || result.Metadata.Model == "" {
		return
	}

	price, ok := c.table.Models[result.Metadata.Model]
	if !ok {
		if !c.warned[result.Metadata.Model] {
			c.warned[result.Metadata.Model] = true
			c.logger.Warn("no price entry for model, skipping cost accumulation", map[string]interface{}{
				"operation": "pricing_model_missing",
				"model":     result.Metadata.Model,
			})
		}
		return
	}

	tokens := result.Metadata.Tokens
	cost := (float64(tokens.Input)*price.InputPer1M + float64(tokens.Output)*price.OutputPer1M) / 1_000_000

	summary.TotalCost += cost
	summary.TotalTokens.Input += tokens.Input
	summary.TotalTokens.Output += tokens.Output
	summary.TotalTokens.Total += tokens.Total
	summary.ByDimension[dimension] += cost
	if result.Metadata.Provider != "" {
		summary.ByProvider[result.Metadata.Provider] += cost
	}

	telemetry.Histogram("dagengine.cost.dimension", cost, "dimension", dimension, "model", result.Metadata.Model)
}
