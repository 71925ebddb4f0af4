package model

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Offcut represents a usable rectangular remnant left over after cutting.
type Offcut struct {
	ID         string  `json:"id"`
	SheetIndex int     `json:"sheet_index"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Area returns the offcut area in square mm.
func (o Offcut) Area() float64 {
	return o.Width * o.Height
}

// ToSheetSpec converts an offcut into a stock sheet for a future run.
func (o Offcut) ToSheetSpec() SheetSpec {
	return SheetSpec{Width: o.Width, Height: o.Height}
}

// MinOffcutDimension is the minimum width or height (in mm) for a remnant
// to be considered a usable offcut. Remnants smaller than this are waste.
const MinOffcutDimension = 50.0

// MinOffcutArea is the minimum area (in sq mm) for a remnant to be usable.
const MinOffcutArea = 10000.0 // 100mm x 100mm equivalent

// DetectOffcuts identifies remnant rectangles on one sheet that are large
// enough to keep. It finds the strip to the right of all parts and the strip
// above them; interior gaps between parts are not recovered.
func DetectOffcuts(placed []PlacedPart, sheet SheetSpec, sheetIndex int, kerf float64) []Offcut {
	if len(placed) == 0 {
		return []Offcut{{
			ID:         uuid.New().String()[:8],
			SheetIndex: sheetIndex,
			Width:      sheet.Width,
			Height:     sheet.Height,
		}}
	}

	var maxRight, maxTop float64
	for _, p := range placed {
		right := p.Right() + kerf
		top := p.Top() + kerf
		if right > maxRight {
			maxRight = right
		}
		if top > maxTop {
			maxTop = top
		}
	}

	var offcuts []Offcut

	// Right strip: full sheet height beyond the rightmost part edge.
	rightW := sheet.Width - maxRight
	if rightW >= MinOffcutDimension && sheet.Height >= MinOffcutDimension && rightW*sheet.Height >= MinOffcutArea {
		offcuts = append(offcuts, Offcut{
			ID:         uuid.New().String()[:8],
			SheetIndex: sheetIndex,
			X:          maxRight,
			Width:      rightW,
			Height:     sheet.Height,
		})
	}

	// Top strip: capped at the rightmost part edge so it never overlaps
	// the right strip.
	topH := sheet.Height - maxTop
	topW := math.Min(maxRight, sheet.Width)
	if topH >= MinOffcutDimension && topW >= MinOffcutDimension && topH*topW >= MinOffcutArea {
		offcuts = append(offcuts, Offcut{
			ID:         uuid.New().String()[:8],
			SheetIndex: sheetIndex,
			Y:          maxTop,
			Width:      topW,
			Height:     topH,
		})
	}

	sort.Slice(offcuts, func(i, j int) bool {
		return offcuts[i].Area() > offcuts[j].Area()
	})

	return offcuts
}

// DetectAllOffcuts finds offcuts across every sheet of a pack result.
func DetectAllOffcuts(result PackResult, sheets []SheetSpec, kerf float64) []Offcut {
	var all []Offcut
	for i := 0; i < result.SheetCount; i++ {
		all = append(all, DetectOffcuts(result.OnSheet(i), SheetForIndex(sheets, i), i, kerf)...)
	}
	return all
}

// TotalOffcutArea returns the combined area of all offcuts in square mm.
func TotalOffcutArea(offcuts []Offcut) float64 {
	var total float64
	for _, o := range offcuts {
		total += o.Area()
	}
	return total
}
