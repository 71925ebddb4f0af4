package cutplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraeswerk/nestkit/internal/model"
)

func testParams() Params {
	return Params{KerfMM: 3.2, CutSpeedMMPerSec: 50, SetupSecPerCut: 5}
}

func TestPlanSharedEdgeCollapsesToOneCut(t *testing.T) {
	pl := NewPlanner(testParams())

	// Two parts sharing the vertical line x=200.
	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 200, Height: 100},
		{PartID: "b", X: 200, Y: 0, Width: 150, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 400}}

	sequences := pl.Plan(placed, sheets)
	require.Len(t, sequences, 1)
	seq := sequences[0]

	var rips, crosscuts []CutOperation
	for _, op := range seq.Operations {
		switch op.Type {
		case CutRip:
			rips = append(rips, op)
		case CutCrosscut:
			crosscuts = append(crosscuts, op)
		}
	}

	require.Len(t, rips, 2, "x=200 shared edge is one cut, x=350 the other")
	assert.InDelta(t, 200.0, rips[0].Position, 1e-9)
	assert.InDelta(t, 350.0, rips[1].Position, 1e-9)
	assert.ElementsMatch(t, []string{"a", "b"}, rips[0].PartsReleased)

	require.Len(t, crosscuts, 1)
	assert.InDelta(t, 100.0, crosscuts[0].Position, 1e-9)

	// 2 rips spanning 400 plus 1 crosscut spanning 500.
	assert.InDelta(t, 1300.0, seq.TotalLengthMM, 1e-9)
	assert.InDelta(t, 1300.0/50+5*3, seq.EstimatedTimeSec, 1e-9)
}

func TestPlanNoDuplicateCoordinates(t *testing.T) {
	pl := NewPlanner(testParams())

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", X: 100, Y: 0, Width: 100, Height: 100},
		{PartID: "c", X: 0, Y: 100, Width: 100, Height: 100},
		{PartID: "d", X: 100, Y: 100, Width: 100, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 300, Height: 300}}

	seq := pl.Plan(placed, sheets)[0]

	seen := map[string]map[float64]bool{}
	for _, op := range seq.Operations {
		axis := string(op.Direction)
		if seen[axis] == nil {
			seen[axis] = map[float64]bool{}
		}
		assert.False(t, seen[axis][op.Position],
			"duplicate %s cut at %.2f", op.Direction, op.Position)
		seen[axis][op.Position] = true
	}
}

func TestPlanRipsBeforeCrosscuts(t *testing.T) {
	pl := NewPlanner(testParams())

	placed := []model.PlacedPart{
		{PartID: "a", X: 10, Y: 10, Width: 100, Height: 80},
		{PartID: "b", X: 150, Y: 10, Width: 120, Height: 60},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 400, Margin: 10}}

	seq := pl.Plan(placed, sheets)[0]
	require.NotEmpty(t, seq.Operations)

	lastRank := -1
	rank := map[CutType]int{CutTrim: 0, CutRip: 1, CutCrosscut: 2}
	for i, op := range seq.Operations {
		r, ok := rank[op.Type]
		require.True(t, ok, "unknown cut type %s", op.Type)
		assert.GreaterOrEqual(t, r, lastRank, "op %d (%s) out of phase order", i, op.Type)
		assert.Equal(t, i, op.Priority)
		lastRank = r
	}

	// Margin on all four edges produces four trims.
	trims := 0
	for _, op := range seq.Operations {
		if op.Type == CutTrim {
			trims++
		}
	}
	assert.Equal(t, 4, trims)
}

func TestPlanMarginLinesNotDuplicatedAsRips(t *testing.T) {
	pl := NewPlanner(testParams())

	// Part flush against the margin on two edges: those lines are covered by
	// the trim cuts, not repeated as rips or crosscuts.
	placed := []model.PlacedPart{{PartID: "a", X: 10, Y: 10, Width: 100, Height: 80}}
	sheets := []model.SheetSpec{{Width: 500, Height: 400, Margin: 10}}

	seq := pl.Plan(placed, sheets)[0]

	for _, op := range seq.Operations {
		if op.Type == CutTrim {
			continue
		}
		assert.Greater(t, op.Position, 10.0+coordTolerance,
			"%s at %.2f duplicates a margin trim", op.Type, op.Position)
	}
}

func TestPlanClassifiesAffectedParts(t *testing.T) {
	pl := NewPlanner(testParams())

	// The rip at x=200 releases a but runs through c's interior.
	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 200, Height: 100},
		{PartID: "c", X: 50, Y: 200, Width: 300, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 400}}

	seq := pl.Plan(placed, sheets)[0]

	var at200 *CutOperation
	for i, op := range seq.Operations {
		if op.Type == CutRip && op.Position == 200 {
			at200 = &seq.Operations[i]
		}
	}
	require.NotNil(t, at200)
	assert.Equal(t, []string{"a"}, at200.PartsReleased)
	assert.Equal(t, []string{"c"}, at200.PartsAffected)
}

func TestPlanSkipsEmptySheets(t *testing.T) {
	pl := NewPlanner(testParams())

	placed := []model.PlacedPart{
		{PartID: "a", SheetIndex: 0, X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", SheetIndex: 2, X: 0, Y: 0, Width: 100, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 300, Height: 300}}

	sequences := pl.Plan(placed, sheets)

	require.Len(t, sequences, 2)
	assert.Equal(t, 0, sequences[0].SheetIndex)
	assert.Equal(t, 2, sequences[1].SheetIndex)
}

func TestPlanEmptyLayout(t *testing.T) {
	pl := NewPlanner(testParams())
	assert.Empty(t, pl.Plan(nil, []model.SheetSpec{{Width: 100, Height: 100}}))
}

func TestNewPlannerDefaultsSpeed(t *testing.T) {
	pl := NewPlanner(Params{})
	assert.Equal(t, 50.0, pl.Params.CutSpeedMMPerSec)
}
