package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Part represents a rectangular piece to be cut from stock.
type Part struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Width     float64 `json:"width"`  // mm
	Height    float64 `json:"height"` // mm
	Quantity  int     `json:"quantity"`
	CanRotate bool    `json:"can_rotate"`
}

func NewPart(label string, w, h float64, qty int) Part {
	return Part{
		ID:        uuid.New().String()[:8],
		Label:     label,
		Width:     w,
		Height:    h,
		Quantity:  qty,
		CanRotate: true,
	}
}

// Area returns the part area in square mm.
func (p Part) Area() float64 {
	return p.Width * p.Height
}

// MaxDim returns the longer of the part's two dimensions.
func (p Part) MaxDim() float64 {
	return math.Max(p.Width, p.Height)
}

// IsSquare reports whether rotating the part changes nothing.
func (p Part) IsSquare() bool {
	return math.Abs(p.Width-p.Height) < 1e-9
}

// ExpandQuantities flattens parts with Quantity > 1 into individual
// single-quantity entries, the unit the packers operate on.
func ExpandQuantities(parts []Part) []Part {
	var expanded []Part
	for _, p := range parts {
		qty := p.Quantity
		if qty < 1 {
			qty = 1
		}
		for i := 0; i < qty; i++ {
			cp := p
			cp.Quantity = 1
			expanded = append(expanded, cp)
		}
	}
	return expanded
}

// SheetSpec describes one available stock sheet size.
type SheetSpec struct {
	Width  float64 `json:"width"`  // mm
	Height float64 `json:"height"` // mm
	Margin float64 `json:"margin"` // unusable border on every edge, mm
}

// UsableWidth returns the sheet width minus margins.
func (s SheetSpec) UsableWidth() float64 {
	return s.Width - 2*s.Margin
}

// UsableHeight returns the sheet height minus margins.
func (s SheetSpec) UsableHeight() float64 {
	return s.Height - 2*s.Margin
}

// UsableArea returns the placeable area in square mm.
func (s SheetSpec) UsableArea() float64 {
	w, h := s.UsableWidth(), s.UsableHeight()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// NestingMode selects the packing objective.
type NestingMode string

const (
	// ModePack minimizes wasted material.
	ModePack NestingMode = "pack"
	// ModeCutFriendly trades some utilization for simpler cut paths.
	ModeCutFriendly NestingMode = "cut_friendly"
)

// NestingConfig holds the immutable configuration for one packing run.
type NestingConfig struct {
	KerfMM             float64     `json:"kerf_mm"`
	SpacingMM          float64     `json:"spacing_mm"`
	AllowedRotations   []int       `json:"allowed_rotations"` // degrees, subset of {0,90,180,270}
	OptimizeForCutPath bool        `json:"optimize_for_cut_path"`
	Mode               NestingMode `json:"nesting_mode"`
}

func DefaultConfig() NestingConfig {
	return NestingConfig{
		KerfMM:           3.2,
		SpacingMM:        5.0,
		AllowedRotations: []int{0, 90, 180, 270},
		Mode:             ModePack,
	}
}

// Gap returns the effective part-to-part gap: declared spacing plus the
// material the blade itself removes.
func (c NestingConfig) Gap() float64 {
	return c.SpacingMM + c.KerfMM
}

// RotationAllowed reports whether the configuration permits the given angle.
func (c NestingConfig) RotationAllowed(deg int) bool {
	for _, r := range c.AllowedRotations {
		if r == deg {
			return true
		}
	}
	return false
}

// PlacedPart is one part fixed onto a sheet. Width and Height are the
// as-placed dimensions: for 90/270 degree rotations they are already swapped
// relative to the source part.
type PlacedPart struct {
	PartID      string  `json:"part_id"`
	Label       string  `json:"label"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	RotationDeg int     `json:"rotation_deg"` // 0, 90, 180 or 270
	SheetIndex  int     `json:"sheet_index"`
}

// Right returns the x coordinate of the part's right edge.
func (p PlacedPart) Right() float64 { return p.X + p.Width }

// Top returns the y coordinate of the part's top edge.
func (p PlacedPart) Top() float64 { return p.Y + p.Height }

// Area returns the placed footprint in square mm.
func (p PlacedPart) Area() float64 { return p.Width * p.Height }

// Intersects reports whether two placed rectangles overlap by more than tol
// on both axes. Parts that merely touch do not intersect.
func (p PlacedPart) Intersects(other PlacedPart, tol float64) bool {
	return p.X < other.Right()-tol && p.Right() > other.X+tol &&
		p.Y < other.Top()-tol && p.Top() > other.Y+tol
}

// PackResult is the output of one rectangular packing run.
type PackResult struct {
	Placed     []PlacedPart `json:"placed"`
	SheetCount int          `json:"sheet_count"`
	Warnings   []string     `json:"warnings,omitempty"`
}

// OnSheet returns the placements on one sheet, in placement order.
func (r PackResult) OnSheet(index int) []PlacedPart {
	var out []PlacedPart
	for _, p := range r.Placed {
		if p.SheetIndex == index {
			out = append(out, p)
		}
	}
	return out
}

// PlacedArea returns the total footprint of every placed part.
func (r PackResult) PlacedArea() float64 {
	var total float64
	for _, p := range r.Placed {
		total += p.Area()
	}
	return total
}

// Utilization returns placed area over the usable area of the sheets
// actually consumed, as a percentage. The sheet list is indexed by
// SheetIndex; the last spec covers any overflow sheets.
func (r PackResult) Utilization(sheets []SheetSpec) float64 {
	if r.SheetCount == 0 || len(sheets) == 0 {
		return 0
	}
	var total float64
	for i := 0; i < r.SheetCount; i++ {
		total += SheetForIndex(sheets, i).UsableArea()
	}
	if total == 0 {
		return 0
	}
	return r.PlacedArea() / total * 100.0
}

// SheetForIndex resolves the spec for a sheet index, reusing the last
// configured spec once the explicit list is exhausted.
func SheetForIndex(sheets []SheetSpec, index int) SheetSpec {
	if len(sheets) == 0 {
		return SheetSpec{}
	}
	if index < len(sheets) {
		return sheets[index]
	}
	return sheets[len(sheets)-1]
}

// OversizedPart identifies a part that cannot fit any configured sheet.
type OversizedPart struct {
	ID     string
	Label  string
	Width  float64
	Height float64
}

// SizeError reports parts that cannot fit any configured sheet in any
// permitted orientation. It is raised before anything is placed.
type SizeError struct {
	Oversized   []OversizedPart
	SheetWidth  float64 // first configured sheet, for the message
	SheetHeight float64
}

func (e *SizeError) Error() string {
	ids := make([]string, len(e.Oversized))
	for i, p := range e.Oversized {
		ids[i] = fmt.Sprintf("%s (%.1fx%.1f)", p.ID, p.Width, p.Height)
	}
	return fmt.Sprintf("%d part(s) exceed every configured sheet (first sheet %.0fx%.0f mm): %s",
		len(e.Oversized), e.SheetWidth, e.SheetHeight, strings.Join(ids, ", "))
}
