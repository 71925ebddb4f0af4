// Package cutplan converts finished rectangular layouts into ordered
// guillotine cut operations and machine programs.
package cutplan

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/fraeswerk/nestkit/internal/model"
)

// CutType classifies a guillotine operation.
type CutType string

const (
	CutRip      CutType = "rip"      // vertical, along the sheet's long axis
	CutCrosscut CutType = "crosscut" // horizontal
	CutTrim     CutType = "trim"     // margin removal
)

// Direction is the axis a cut runs along.
type Direction string

const (
	DirectionVertical   Direction = "vertical"   // constant x, spans y
	DirectionHorizontal Direction = "horizontal" // constant y, spans x
)

// CutOperation is one full-span guillotine cut.
type CutOperation struct {
	ID            string    `json:"cut_id"`
	Type          CutType   `json:"cut_type"`
	Direction     Direction `json:"direction"`
	Position      float64   `json:"position"`   // the constant coordinate
	SpanStart     float64   `json:"span_start"` // along the other axis
	SpanEnd       float64   `json:"span_end"`
	PartsReleased []string  `json:"parts_released"` // a part edge lies exactly on the line
	PartsAffected []string  `json:"parts_affected"` // the line passes through the part interior
	Priority      int       `json:"priority"`
}

// Length returns the cut length in mm.
func (op CutOperation) Length() float64 {
	return op.SpanEnd - op.SpanStart
}

// CutSequence is the ordered cut list for one sheet with aggregate costs.
type CutSequence struct {
	SheetIndex       int            `json:"sheet_index"`
	Operations       []CutOperation `json:"operations"`
	TotalLengthMM    float64        `json:"total_length_mm"`
	EstimatedTimeSec float64        `json:"estimated_time_sec"`
}

// Params are the cost model inputs.
type Params struct {
	KerfMM           float64
	CutSpeedMMPerSec float64
	SetupSecPerCut   float64
}

// Planner derives guillotine cut sequences from placements.
type Planner struct {
	Params Params
}

func NewPlanner(p Params) *Planner {
	if p.CutSpeedMMPerSec <= 0 {
		p.CutSpeedMMPerSec = 50.0
	}
	if p.SetupSecPerCut < 0 {
		p.SetupSecPerCut = 0
	}
	return &Planner{Params: p}
}

// coordTolerance is the distance under which two cut coordinates collapse
// into one operation.
const coordTolerance = 0.01

// Plan produces one cut sequence per used sheet. Every distinct x and y
// coordinate implied by part edges becomes a full-span rip or crosscut;
// margins get trim cuts. Operations are reordered so all rips precede all
// crosscuts, minimizing material re-orientation, without changing the set.
func (pl *Planner) Plan(placed []model.PlacedPart, sheets []model.SheetSpec) []CutSequence {
	maxSheet := -1
	for _, p := range placed {
		if p.SheetIndex > maxSheet {
			maxSheet = p.SheetIndex
		}
	}

	var sequences []CutSequence
	for si := 0; si <= maxSheet; si++ {
		onSheet := filterSheet(placed, si)
		if len(onSheet) == 0 {
			continue
		}
		sequences = append(sequences, pl.planSheet(onSheet, model.SheetForIndex(sheets, si), si))
	}
	return sequences
}

func filterSheet(placed []model.PlacedPart, sheetIndex int) []model.PlacedPart {
	var out []model.PlacedPart
	for _, p := range placed {
		if p.SheetIndex == sheetIndex {
			out = append(out, p)
		}
	}
	return out
}

func (pl *Planner) planSheet(placed []model.PlacedPart, sheet model.SheetSpec, sheetIndex int) CutSequence {
	var ops []CutOperation

	// Margin trims first: one per edge with a margin.
	if sheet.Margin > 0 {
		for _, x := range []float64{sheet.Margin, sheet.Width - sheet.Margin} {
			ops = append(ops, CutOperation{
				ID:        shortID(),
				Type:      CutTrim,
				Direction: DirectionVertical,
				Position:  x,
				SpanEnd:   sheet.Height,
			})
		}
		for _, y := range []float64{sheet.Margin, sheet.Height - sheet.Margin} {
			ops = append(ops, CutOperation{
				ID:        shortID(),
				Type:      CutTrim,
				Direction: DirectionHorizontal,
				Position:  y,
				SpanEnd:   sheet.Width,
			})
		}
	}

	xCoords := distinctEdgeCoords(placed, sheet, true)
	yCoords := distinctEdgeCoords(placed, sheet, false)

	for _, x := range xCoords {
		released, affected := classifyParts(placed, x, true)
		ops = append(ops, CutOperation{
			ID:            shortID(),
			Type:          CutRip,
			Direction:     DirectionVertical,
			Position:      x,
			SpanEnd:       sheet.Height,
			PartsReleased: released,
			PartsAffected: affected,
		})
	}
	for _, y := range yCoords {
		released, affected := classifyParts(placed, y, false)
		ops = append(ops, CutOperation{
			ID:            shortID(),
			Type:          CutCrosscut,
			Direction:     DirectionHorizontal,
			Position:      y,
			SpanEnd:       sheet.Width,
			PartsReleased: released,
			PartsAffected: affected,
		})
	}

	ops = optimizeOrder(ops)
	for i := range ops {
		ops[i].Priority = i
	}

	seq := CutSequence{SheetIndex: sheetIndex, Operations: ops}
	for _, op := range ops {
		seq.TotalLengthMM += op.Length()
	}
	seq.EstimatedTimeSec = seq.TotalLengthMM/pl.Params.CutSpeedMMPerSec +
		pl.Params.SetupSecPerCut*float64(len(ops))
	return seq
}

// distinctEdgeCoords collects the deduplicated part-edge coordinates on one
// axis, skipping lines that coincide with the sheet boundary or its margin
// trim. Returned sorted ascending, so no two operations ever share a
// coordinate on the same axis.
func distinctEdgeCoords(placed []model.PlacedPart, sheet model.SheetSpec, vertical bool) []float64 {
	var raw []float64
	for _, p := range placed {
		if vertical {
			raw = append(raw, p.X, p.Right())
		} else {
			raw = append(raw, p.Y, p.Top())
		}
	}
	sort.Float64s(raw)

	limit := sheet.Height
	if vertical {
		limit = sheet.Width
	}

	var out []float64
	for _, c := range raw {
		if c < coordTolerance || c > limit-coordTolerance {
			continue
		}
		if sheet.Margin > 0 &&
			(math.Abs(c-sheet.Margin) < coordTolerance || math.Abs(c-(limit-sheet.Margin)) < coordTolerance) {
			continue // covered by the trim cut
		}
		if len(out) > 0 && c-out[len(out)-1] < coordTolerance {
			continue
		}
		out = append(out, c)
	}
	return out
}

// classifyParts splits the parts a cut line touches into released (an edge
// lies exactly on the line) and affected (the line passes through the
// interior, which a guillotine plan must avoid relying on).
func classifyParts(placed []model.PlacedPart, coord float64, vertical bool) (released, affected []string) {
	for _, p := range placed {
		lo, hi := p.Y, p.Top()
		if vertical {
			lo, hi = p.X, p.Right()
		}
		switch {
		case math.Abs(coord-lo) < coordTolerance || math.Abs(coord-hi) < coordTolerance:
			released = append(released, p.PartID)
		case coord > lo+coordTolerance && coord < hi-coordTolerance:
			affected = append(affected, p.PartID)
		}
	}
	return released, affected
}

// optimizeOrder reorders operations so trims run first, then every rip, then
// every crosscut. The reorder is stable and set-preserving.
func optimizeOrder(ops []CutOperation) []CutOperation {
	rank := func(t CutType) int {
		switch t {
		case CutTrim:
			return 0
		case CutRip:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return rank(ops[i].Type) < rank(ops[j].Type)
	})
	return ops
}

func shortID() string {
	return uuid.New().String()[:8]
}
