package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fraeswerk/nestkit/internal/geometry"
	"github.com/fraeswerk/nestkit/internal/perf"
)

// PlacementMode selects the per-shape collision test.
type PlacementMode int

const (
	// PlaceHybrid uses the polygon test only for non-rectangular shapes
	// below the extreme complexity level; everything else is bbox-tested.
	PlaceHybrid PlacementMode = iota
	// PlaceBoundingBox forces bounding-box tests for every shape.
	PlaceBoundingBox
	// PlacePolygon forces true polygon tests for every shape.
	PlacePolygon
)

func (m PlacementMode) String() string {
	switch m {
	case PlaceBoundingBox:
		return "bounding-box"
	case PlacePolygon:
		return "polygon"
	default:
		return "hybrid"
	}
}

// NestOptions configures one polygon nesting run.
type NestOptions struct {
	Placement   PlacementMode
	Performance geometry.PerformanceMode
	SpacingMM   float64
	Progress    perf.Reporter
	Monitor     *perf.Monitor
}

// PlacedGeometry is one shape fixed onto the sheet. Shape holds the final
// contour, rotated and translated into sheet coordinates.
type PlacedGeometry struct {
	Shape       geometry.Polygon
	X           float64 // bbox min-x after placement
	Y           float64 // bbox min-y after placement
	RotationDeg float64
}

// NestResult carries the outcome of a polygon nesting run. Failures to
// place are soft: unplaceable shapes land in Unplaced, warnings accumulate,
// nothing is thrown.
type NestResult struct {
	Placed             []PlacedGeometry
	Unplaced           []geometry.Polygon
	UtilizationPercent float64
	Warnings           []string
}

// strategy is the mode-flag branching of the run resolved once at entry:
// concrete step sizes, rotation lists and attempt caps instead of scattered
// conditionals.
type strategy struct {
	mode        geometry.PerformanceMode
	stepDivisor float64
	maxAttempts int
	extraAngles bool          // 45-degree multiples for complex shapes
	throttleAt  time.Duration // elapsed time that trips the downgrade
}

func resolveStrategy(mode geometry.PerformanceMode) strategy {
	switch mode {
	case geometry.PerfFast:
		return strategy{mode: mode, stepDivisor: 2, maxAttempts: 200, throttleAt: 2 * time.Second}
	case geometry.PerfPrecise:
		return strategy{mode: mode, stepDivisor: 8, maxAttempts: 3000, extraAngles: true, throttleAt: 15 * time.Second}
	default:
		return strategy{mode: mode, stepDivisor: 4, maxAttempts: 800, throttleAt: 5 * time.Second}
	}
}

// occupiedRegion is a placed shape plus the cached answer to "is the bbox
// test exact for it".
type occupiedRegion struct {
	shape  geometry.Polygon
	isRect bool
}

// Nester places complex geometry onto a single sheet, first fit. It owns no
// state across calls; every run builds its own occupancy list.
type Nester struct {
	Logger *slog.Logger
}

func NewNester() *Nester {
	return &Nester{}
}

func (n *Nester) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}

// Nest places shapes in input order. Candidates come from a scanning grid
// over the usable area crossed with a rotation list; the first valid
// candidate wins. Every 5 shapes the engine checks its own elapsed time and
// downgrades itself to the fast strategy when the active mode's threshold
// trips; cancellation is polled once per shape.
func (n *Nester) Nest(ctx context.Context, shapes []geometry.Polygon, sheet geometry.SheetGeometry, opts NestOptions) NestResult {
	strat := resolveStrategy(opts.Performance)
	simplifier := &geometry.Simplifier{Mode: strat.mode, Logger: n.Logger}
	usable := sheet.UsableRect()

	var result NestResult
	var occupied []occupiedRegion
	start := time.Now()

	nestCtx, endStage := opts.Monitor.StartStage(ctx, "nest")
	defer endStage()
	ctx = nestCtx

	for i, shape := range shapes {
		if perf.Canceled(ctx) {
			result.Unplaced = append(result.Unplaced, shapes[i:]...)
			result.Warnings = append(result.Warnings, "nesting canceled: remaining shapes left unplaced")
			break
		}

		// Cooperative self-throttling, checked every 5 shapes.
		if i > 0 && i%5 == 0 && strat.mode != geometry.PerfFast && time.Since(start) > strat.throttleAt {
			strat = resolveStrategy(geometry.PerfFast)
			simplifier = &geometry.Simplifier{Mode: geometry.PerfFast, Logger: n.Logger}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("time pressure after %d shapes: downgraded to fast mode", i))
			n.logger().Warn("nesting self-throttled to fast mode", "shapes_done", i)
		}

		candidate, level := simplifier.Simplify(shape)
		if level >= geometry.LevelAggressive {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("shape %s too complex: simplified to %s", shape.ID, level))
		}

		placed, ok := n.placeShape(candidate, usable, occupied, strat, opts)
		if !ok {
			result.Unplaced = append(result.Unplaced, shape)
		} else {
			result.Placed = append(result.Placed, placed)
			occupied = append(occupied, occupiedRegion{
				shape:  placed.Shape,
				isRect: placed.Shape.IsRectangular(),
			})
		}

		perf.Publish(opts.Progress, "nest", float64(i+1)/float64(len(shapes))*100)
	}

	var placedArea float64
	for _, p := range result.Placed {
		placedArea += p.Shape.Area
	}
	if ua := sheet.UsableArea(); ua > 0 {
		result.UtilizationPercent = placedArea / ua * 100
	}
	return result
}

// placeShape scans rotation candidates crossed with a position grid and
// accepts the first valid spot.
func (n *Nester) placeShape(shape geometry.Polygon, usable geometry.BBox, occupied []occupiedRegion, strat strategy, opts NestOptions) (PlacedGeometry, bool) {
	attempts := 0

	for _, angle := range n.candidateAngles(shape, strat) {
		rotated := shape
		if angle != 0 {
			r, err := shape.Rotate(angle)
			if err != nil {
				continue
			}
			rotated = r
		}

		w, h := rotated.Width(), rotated.Height()
		if w > usable.Width()+1e-9 || h > usable.Height()+1e-9 {
			continue
		}

		// Step size scales with the shape and the performance mode:
		// coarser grids for speed, finer for precision.
		step := math.Max(math.Min(w, h)/strat.stepDivisor, 2.0)

		for y := usable.MinY; y+h <= usable.MaxY+1e-9; y += step {
			for x := usable.MinX; x+w <= usable.MaxX+1e-9; x += step {
				attempts++
				if attempts > strat.maxAttempts {
					return PlacedGeometry{}, false
				}
				if n.fitsAt(rotated, x, y, occupied, opts) {
					final := rotated.Translate(x-rotated.BBox.MinX, y-rotated.BBox.MinY)
					return PlacedGeometry{
						Shape:       final,
						X:           final.BBox.MinX,
						Y:           final.BBox.MinY,
						RotationDeg: angle,
					}, true
				}
			}
		}
	}
	return PlacedGeometry{}, false
}

// candidateAngles builds the rotation list: 0 always, the right-angle set
// when the shape may rotate, and 45-degree multiples for complex shapes in
// precise mode.
func (n *Nester) candidateAngles(shape geometry.Polygon, strat strategy) []float64 {
	angles := []float64{0}
	if !shape.RotationAllowed {
		return angles
	}
	angles = append(angles, 90, 180, 270)
	if strat.extraAngles && shape.Complexity >= geometry.ComplexityHigh {
		angles = append(angles, 45, 135, 225, 315)
	}
	return angles
}

// fitsAt validates one candidate position: translated bounding box first,
// then overlap against every occupied region. Polygon-vs-polygon runs the
// true intersection test when the mode allows it; anything involving a
// rectangle falls back to the cheap bbox test.
func (n *Nester) fitsAt(shape geometry.Polygon, x, y float64, occupied []occupiedRegion, opts NestOptions) bool {
	moved := shape.Translate(x-shape.BBox.MinX, y-shape.BBox.MinY)
	tol := -opts.SpacingMM // negative tolerance enforces separation

	// The exact test needs the clearance too: outset the candidate by the
	// spacing, so overlap of the outset means closer than SpacingMM.
	grown := moved
	if opts.SpacingMM > 0 {
		if g, err := moved.ApplyKerf(-opts.SpacingMM); err == nil {
			grown = g
		}
	}

	for _, region := range occupied {
		if !moved.BBox.Intersects(region.shape.BBox, tol) {
			continue
		}
		if n.usePolygonTest(moved, opts) && n.usePolygonTest(region.shape, opts) && !region.isRect {
			if grown.Overlaps(region.shape, 0) {
				return false
			}
		} else {
			return false // bbox overlap is final for rectangular regions
		}
	}
	return true
}

// usePolygonTest decides per shape whether the exact polygon test runs.
func (n *Nester) usePolygonTest(shape geometry.Polygon, opts NestOptions) bool {
	switch opts.Placement {
	case PlaceBoundingBox:
		return false
	case PlacePolygon:
		return true
	default:
		return !shape.IsRectangular() && shape.Complexity < geometry.ComplexityExtreme
	}
}
