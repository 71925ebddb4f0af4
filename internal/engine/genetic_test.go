package engine

import (
	"context"
	"testing"
	"time"

	"github.com/fraeswerk/nestkit/internal/model"
)

func geneticTestConfig() GeneticConfig {
	cfg := DefaultGeneticConfig()
	cfg.PopulationSize = 12
	cfg.TimeBudget = 300 * time.Millisecond
	cfg.StallLimit = 8
	return cfg
}

func TestGeneticPackPlacesAllParts(t *testing.T) {
	nest := model.DefaultConfig()
	nest.KerfMM = 0
	nest.SpacingMM = 2
	opt := NewGeneticOptimizer(nest, geneticTestConfig())

	parts := []model.Part{
		{ID: "a", Width: 400, Height: 300, Quantity: 2, CanRotate: true},
		{ID: "b", Width: 200, Height: 150, Quantity: 4, CanRotate: true},
		{ID: "c", Width: 600, Height: 100, Quantity: 2, CanRotate: true},
	}
	sheets := []model.SheetSpec{{Width: 1220, Height: 2440}}

	result := opt.Pack(context.Background(), parts, sheets, nil)

	if got, want := len(result.Placed), 8; got != want {
		t.Fatalf("placed %d parts, want %d (warnings: %v)", got, want, result.Warnings)
	}
	if result.SheetCount != 1 {
		t.Errorf("used %d sheets, want 1", result.SheetCount)
	}
	checkNoOverlaps(t, result, 2.0)
}

func TestGeneticPackChampionFitnessMonotonic(t *testing.T) {
	nest := model.DefaultConfig()
	opt := NewGeneticOptimizer(nest, geneticTestConfig())

	var history []float64
	opt.OnGeneration = func(gen int, best float64) {
		history = append(history, best)
	}

	parts := []model.Part{
		{ID: "a", Width: 500, Height: 400, Quantity: 3, CanRotate: true},
		{ID: "b", Width: 350, Height: 250, Quantity: 3, CanRotate: true},
	}
	sheets := []model.SheetSpec{{Width: 1220, Height: 2440}}

	opt.Pack(context.Background(), parts, sheets, nil)

	if len(history) < 2 {
		t.Fatalf("expected multiple generations, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i] < history[i-1] {
			t.Errorf("champion fitness regressed at generation %d: %f -> %f",
				i, history[i-1], history[i])
		}
	}
}

func TestGeneticPackDeterministicForSeed(t *testing.T) {
	nest := model.DefaultConfig()
	parts := []model.Part{
		{ID: "a", Width: 500, Height: 400, Quantity: 2, CanRotate: true},
		{ID: "b", Width: 300, Height: 200, Quantity: 3, CanRotate: true},
	}
	sheets := []model.SheetSpec{{Width: 1220, Height: 2440}}

	run := func() model.PackResult {
		cfg := geneticTestConfig()
		cfg.TimeBudget = 10 * time.Second // stall limit terminates first
		cfg.StallLimit = 5
		return NewGeneticOptimizer(nest, cfg).Pack(context.Background(), parts, sheets, nil)
	}

	first := run()
	second := run()

	if len(first.Placed) != len(second.Placed) {
		t.Fatalf("placement counts differ: %d vs %d", len(first.Placed), len(second.Placed))
	}
	for i := range first.Placed {
		if first.Placed[i] != second.Placed[i] {
			t.Errorf("placement %d differs: %+v vs %+v", i, first.Placed[i], second.Placed[i])
		}
	}
}

func TestGeneticPackCancellation(t *testing.T) {
	nest := model.DefaultConfig()
	cfg := geneticTestConfig()
	cfg.TimeBudget = 30 * time.Second
	opt := NewGeneticOptimizer(nest, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // canceled before the first generation

	parts := []model.Part{{ID: "a", Width: 100, Height: 100, Quantity: 2, CanRotate: true}}
	sheets := []model.SheetSpec{{Width: 1000, Height: 1000}}

	done := make(chan model.PackResult, 1)
	go func() {
		done <- opt.Pack(ctx, parts, sheets, nil)
	}()

	select {
	case result := <-done:
		found := false
		for _, w := range result.Warnings {
			if w == "optimization canceled: returning best solution so far" {
				found = true
			}
		}
		if !found {
			t.Errorf("expected cancellation warning, got %v", result.Warnings)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Pack did not return after cancellation")
	}
}

func TestGeneticPackTargetUtilizationStops(t *testing.T) {
	nest := model.DefaultConfig()
	nest.KerfMM = 0
	nest.SpacingMM = 0
	cfg := geneticTestConfig()
	cfg.TimeBudget = 10 * time.Second
	cfg.TargetUtilization = 10 // trivially reached in generation 0
	opt := NewGeneticOptimizer(nest, cfg)

	generations := 0
	opt.OnGeneration = func(int, float64) { generations++ }

	parts := []model.Part{{ID: "a", Width: 500, Height: 500, Quantity: 1, CanRotate: false}}
	sheets := []model.SheetSpec{{Width: 1000, Height: 1000}}

	result := opt.Pack(context.Background(), parts, sheets, nil)

	if len(result.Placed) != 1 {
		t.Fatalf("placed %d, want 1", len(result.Placed))
	}
	if generations != 1 {
		t.Errorf("ran %d generations, want 1 (target reached immediately)", generations)
	}
}

func TestGeneticPackNothingFits(t *testing.T) {
	nest := model.DefaultConfig()
	opt := NewGeneticOptimizer(nest, geneticTestConfig())

	parts := []model.Part{{ID: "huge", Width: 5000, Height: 5000, Quantity: 1, CanRotate: true}}
	sheets := []model.SheetSpec{{Width: 1000, Height: 1000}}

	result := opt.Pack(context.Background(), parts, sheets, nil)

	if len(result.Placed) != 0 {
		t.Errorf("expected empty result, got %d placements", len(result.Placed))
	}
	if result.SheetCount != 0 {
		t.Errorf("expected 0 sheets, got %d", result.SheetCount)
	}
}

func TestGeneticPackEmptyInput(t *testing.T) {
	opt := NewGeneticOptimizer(model.DefaultConfig(), geneticTestConfig())
	result := opt.Pack(context.Background(), nil, []model.SheetSpec{{Width: 100, Height: 100}}, nil)
	if len(result.Placed) != 0 || result.SheetCount != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestDecodeAdvancesToLaterSheetSpec(t *testing.T) {
	opt := NewGeneticOptimizer(model.DefaultConfig(), geneticTestConfig())

	parts := []model.Part{{ID: "big", Width: 900, Height: 450, Quantity: 1}}
	sheets := []model.SheetSpec{
		{Width: 500, Height: 400},
		{Width: 1000, Height: 500},
	}
	ind := &Individual{Order: []int{0}, Rotated: []bool{false}}

	got := opt.decode(ind, parts, sheets)

	if got.placedCount != 1 {
		t.Fatalf("placedCount = %d, want 1 (part fits the second configured sheet)", got.placedCount)
	}
	if got.placed[0].SheetIndex != 1 {
		t.Errorf("SheetIndex = %d, want 1", got.placed[0].SheetIndex)
	}
	if got.sheetCount != 2 {
		t.Errorf("sheetCount = %d, want 2", got.sheetCount)
	}
}

func TestOrderCrossoverProducesPermutation(t *testing.T) {
	opt := NewGeneticOptimizer(model.DefaultConfig(), geneticTestConfig())

	a := &Individual{Order: []int{0, 1, 2, 3, 4, 5, 6, 7}, Rotated: make([]bool, 8)}
	b := &Individual{Order: []int{7, 6, 5, 4, 3, 2, 1, 0}, Rotated: make([]bool, 8)}

	for trial := 0; trial < 50; trial++ {
		child := opt.orderCrossover(a, b)
		seen := make(map[int]bool, len(child.Order))
		for _, id := range child.Order {
			if seen[id] {
				t.Fatalf("trial %d: duplicate id %d in %v", trial, id, child.Order)
			}
			seen[id] = true
		}
		if len(seen) != 8 {
			t.Fatalf("trial %d: child is not a full permutation: %v", trial, child.Order)
		}
	}
}

func TestGeneticGapSeparation(t *testing.T) {
	nest := model.DefaultConfig()
	nest.KerfMM = 3
	nest.SpacingMM = 2
	opt := NewGeneticOptimizer(nest, geneticTestConfig())

	parts := []model.Part{{ID: "sq", Width: 200, Height: 200, Quantity: 4, CanRotate: false}}
	sheets := []model.SheetSpec{{Width: 1000, Height: 1000}}

	result := opt.Pack(context.Background(), parts, sheets, nil)

	if len(result.Placed) != 4 {
		t.Fatalf("placed %d, want 4", len(result.Placed))
	}
	checkNoOverlaps(t, result, 5.0)
}

// checkNoOverlaps fails the test when any two parts on the same sheet are
// closer than the required gap on both axes.
func checkNoOverlaps(t *testing.T, result model.PackResult, gap float64) {
	t.Helper()
	for si := 0; si < result.SheetCount; si++ {
		onSheet := result.OnSheet(si)
		for i := 0; i < len(onSheet); i++ {
			for j := i + 1; j < len(onSheet); j++ {
				a, b := onSheet[i], onSheet[j]
				sepX := a.Right()+gap <= b.X+1e-6 || b.Right()+gap <= a.X+1e-6
				sepY := a.Top()+gap <= b.Y+1e-6 || b.Top()+gap <= a.Y+1e-6
				if !sepX && !sepY {
					t.Errorf("parts %s and %s violate the %.1fmm gap on sheet %d",
						a.PartID, b.PartID, gap, si)
				}
			}
		}
	}
}
