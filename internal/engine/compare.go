package engine

import (
	"context"
	"fmt"

	"github.com/fraeswerk/nestkit/internal/model"
)

// Strategy names a packing algorithm for scenario comparison.
type Strategy string

const (
	StrategyShelf   Strategy = "shelf"
	StrategyGenetic Strategy = "genetic"
)

// Scenario is one named configuration to compare.
type Scenario struct {
	Name     string
	Strategy Strategy
	Config   model.NestingConfig
	Genetic  GeneticConfig // zero value means defaults; shelf scenarios ignore it
}

// ScenarioResult holds one scenario's layout and its headline statistics.
type ScenarioResult struct {
	Scenario     Scenario
	Result       model.PackResult
	Err          error
	SheetsUsed   int
	PlacedCount  int
	WastePercent float64
}

// CompareScenarios runs every scenario against the same parts and sheets so
// a host can show what-if alternatives side by side. A scenario that fails
// (for example a SizeError under a tighter margin) carries its error instead
// of aborting the whole comparison.
func CompareScenarios(parts []model.Part, sheets []model.SheetSpec, scenarios []Scenario) []ScenarioResult {
	results := make([]ScenarioResult, 0, len(scenarios))

	for _, sc := range scenarios {
		var result model.PackResult
		var err error

		switch sc.Strategy {
		case StrategyGenetic:
			ga := sc.Genetic
			if ga.PopulationSize == 0 {
				ga = DefaultGeneticConfig()
			}
			result = NewGeneticOptimizer(sc.Config, ga).Pack(context.Background(), parts, sheets, nil)
		default:
			result, err = NewShelfPacker(sc.Config).Pack(parts, sheets)
		}

		results = append(results, ScenarioResult{
			Scenario:     sc,
			Result:       result,
			Err:          err,
			SheetsUsed:   result.SheetCount,
			PlacedCount:  len(result.Placed),
			WastePercent: 100.0 - result.Utilization(sheets),
		})
	}
	return results
}

// BuildDefaultScenarios varies the key parameters of a base configuration:
// both algorithms, a half-kerf blade and the cut-friendly mode.
func BuildDefaultScenarios(base model.NestingConfig) []Scenario {
	scenarios := []Scenario{
		{Name: "Shelf", Strategy: StrategyShelf, Config: base},
		{Name: "Genetic", Strategy: StrategyGenetic, Config: base},
	}

	if base.KerfMM > 1.0 {
		half := base
		half.KerfMM = base.KerfMM * 0.5
		scenarios = append(scenarios, Scenario{
			Name:     fmt.Sprintf("Shelf, kerf %.1fmm", half.KerfMM),
			Strategy: StrategyShelf,
			Config:   half,
		})
	}

	if base.Mode != model.ModeCutFriendly {
		cf := base
		cf.Mode = model.ModeCutFriendly
		cf.OptimizeForCutPath = true
		scenarios = append(scenarios, Scenario{
			Name:     "Genetic, cut-friendly",
			Strategy: StrategyGenetic,
			Config:   cf,
		})
	}

	return scenarios
}
