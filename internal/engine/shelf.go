package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/fraeswerk/nestkit/internal/model"
)

// ShelfPacker is the deterministic multi-sheet rectangular packer. Parts are
// placed left-to-right into rows, rows stacked bottom-to-top, first fit wins.
// The result is fast and predictable, not globally optimal.
type ShelfPacker struct {
	Config model.NestingConfig
	Logger *slog.Logger
}

func NewShelfPacker(cfg model.NestingConfig) *ShelfPacker {
	return &ShelfPacker{Config: cfg}
}

func (p *ShelfPacker) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// shelfRow is one horizontal band on a sheet.
type shelfRow struct {
	y       float64 // bottom of the row, relative to the usable origin
	height  float64
	cursorX float64 // next free x, relative to the usable origin
}

// shelfSheet tracks the open rows of one sheet.
type shelfSheet struct {
	spec    model.SheetSpec
	index   int
	rows    []shelfRow
	cursorY float64 // bottom of the next row
}

// orientation is one way of laying a part down.
type orientation struct {
	w, h        float64
	rotationDeg int
}

// Pack places every part onto sheets, opening sheets lazily in the order of
// the configured sheet list. It fails eagerly with a *model.SizeError when
// any part cannot fit any configured sheet in any permitted orientation;
// nothing is placed in that case. When the configured sheet list is
// exhausted, the last sheet type is reused and a warning is recorded.
func (p *ShelfPacker) Pack(parts []model.Part, sheets []model.SheetSpec) (model.PackResult, error) {
	if len(sheets) == 0 {
		return model.PackResult{}, fmt.Errorf("pack: no sheet sizes configured")
	}

	expanded := model.ExpandQuantities(parts)
	if err := p.checkFits(expanded, sheets); err != nil {
		return model.PackResult{}, err
	}

	// Large parts placed late fragment rows badly; longest dimension first.
	sort.SliceStable(expanded, func(i, j int) bool {
		return expanded[i].MaxDim() > expanded[j].MaxDim()
	})

	result := model.PackResult{}
	gap := p.Config.Gap()
	var open []*shelfSheet

	for _, part := range expanded {
		placed := false

		for _, sheet := range open {
			if p.placeInRows(sheet, part, gap, &result) {
				placed = true
				break
			}
			if p.placeInNewRow(sheet, part, gap, &result) {
				placed = true
				break
			}
		}

		// Unopened sheets may carry a different spec than the open ones;
		// keep opening in list order until one takes the part. The eager
		// fit check guarantees a fitting spec exists in the configured
		// list, so this terminates before the list is exhausted unless
		// every instance of the fitting spec is already full.
		for !placed {
			sheet := &shelfSheet{
				spec:  model.SheetForIndex(sheets, len(open)),
				index: len(open),
			}
			if sheet.index >= len(sheets) {
				warning := fmt.Sprintf("configured sheet list exhausted: reusing %.0fx%.0f mm for sheet %d",
					sheet.spec.Width, sheet.spec.Height, sheet.index+1)
				result.Warnings = append(result.Warnings, warning)
				p.logger().Warn("sheet list exhausted", "sheet_index", sheet.index)
			}
			open = append(open, sheet)

			placed = p.placeInNewRow(sheet, part, gap, &result)
			if !placed && sheet.index >= len(sheets) {
				// Exhaustion reuses only the last configured spec; a part
				// that fits just an earlier, already-full sheet type has
				// nowhere left to go.
				return model.PackResult{}, fmt.Errorf(
					"pack: part %s fits only a sheet type that is already full (reusing %.0fx%.0f mm)",
					part.ID, sheet.spec.Width, sheet.spec.Height)
			}
		}
	}

	result.SheetCount = len(open)
	return result, nil
}

// checkFits raises a SizeError listing every part that cannot fit any
// configured sheet in any permitted orientation. Checked before placement so
// a failing call never produces partial output.
func (p *ShelfPacker) checkFits(parts []model.Part, sheets []model.SheetSpec) error {
	seen := map[string]bool{}
	var oversized []model.OversizedPart

	for _, part := range parts {
		if seen[part.ID] {
			continue
		}
		fits := false
		for _, sheet := range sheets {
			for _, o := range p.orientations(part) {
				if o.w <= sheet.UsableWidth()+1e-9 && o.h <= sheet.UsableHeight()+1e-9 {
					fits = true
					break
				}
			}
			if fits {
				break
			}
		}
		if !fits {
			seen[part.ID] = true
			oversized = append(oversized, model.OversizedPart{
				ID:     part.ID,
				Label:  part.Label,
				Width:  part.Width,
				Height: part.Height,
			})
		}
	}

	if len(oversized) > 0 {
		return &model.SizeError{
			Oversized:   oversized,
			SheetWidth:  sheets[0].Width,
			SheetHeight: sheets[0].Height,
		}
	}
	return nil
}

// orientations returns the trial order for a part: un-rotated first, then
// rotated 90 degrees when the part may rotate, is non-square and the
// configuration permits it.
func (p *ShelfPacker) orientations(part model.Part) []orientation {
	out := []orientation{{w: part.Width, h: part.Height, rotationDeg: 0}}
	if part.CanRotate && !part.IsSquare() &&
		(p.Config.RotationAllowed(90) || p.Config.RotationAllowed(270)) {
		out = append(out, orientation{w: part.Height, h: part.Width, rotationDeg: 90})
	}
	return out
}

// placeInRows scans the sheet's existing rows in creation order and places
// the part into the first row with enough height and remaining width.
func (p *ShelfPacker) placeInRows(sheet *shelfSheet, part model.Part, gap float64, result *model.PackResult) bool {
	for ri := range sheet.rows {
		row := &sheet.rows[ri]
		for _, o := range p.orientations(part) {
			if o.h > row.height+1e-9 {
				continue
			}
			x := row.cursorX
			if x > 0 {
				x += gap
			}
			if x+o.w > sheet.spec.UsableWidth()+1e-9 {
				continue
			}
			p.commit(sheet, part, o, x, row.y, result)
			row.cursorX = x + o.w
			return true
		}
	}
	return false
}

// placeInNewRow opens a new row at the sheet's vertical cursor if space
// remains. Row height is the part's height in the first orientation whose
// row fits the remaining vertical space.
func (p *ShelfPacker) placeInNewRow(sheet *shelfSheet, part model.Part, gap float64, result *model.PackResult) bool {
	y := sheet.cursorY
	if len(sheet.rows) > 0 {
		y += gap
	}
	for _, o := range p.orientations(part) {
		if y+o.h > sheet.spec.UsableHeight()+1e-9 || o.w > sheet.spec.UsableWidth()+1e-9 {
			continue
		}
		sheet.rows = append(sheet.rows, shelfRow{y: y, height: o.h, cursorX: o.w})
		sheet.cursorY = y + o.h
		p.commit(sheet, part, o, 0, y, result)
		return true
	}
	return false
}

func (p *ShelfPacker) commit(sheet *shelfSheet, part model.Part, o orientation, x, y float64, result *model.PackResult) {
	result.Placed = append(result.Placed, model.PlacedPart{
		PartID:      part.ID,
		Label:       part.Label,
		X:           sheet.spec.Margin + x,
		Y:           sheet.spec.Margin + y,
		Width:       o.w,
		Height:      o.h,
		RotationDeg: o.rotationDeg,
		SheetIndex:  sheet.index,
	})
}
