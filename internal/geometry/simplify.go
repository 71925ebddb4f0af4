package geometry

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"
)

// PerformanceMode trades placement quality against run time. It controls
// simplification thresholds here and candidate density in the nesting engine.
type PerformanceMode int

const (
	PerfFast PerformanceMode = iota
	PerfBalanced
	PerfPrecise
)

func (m PerformanceMode) String() string {
	switch m {
	case PerfFast:
		return "fast"
	case PerfBalanced:
		return "balanced"
	case PerfPrecise:
		return "precise"
	default:
		return "unknown"
	}
}

// ParsePerformanceMode maps a config string onto a mode, defaulting to balanced.
func ParsePerformanceMode(s string) PerformanceMode {
	switch s {
	case "fast":
		return PerfFast
	case "precise":
		return PerfPrecise
	default:
		return PerfBalanced
	}
}

// SimplifyLevel is the amount of fidelity given up for speed.
type SimplifyLevel int

const (
	LevelNone SimplifyLevel = iota
	LevelLight
	LevelModerate
	LevelAggressive
	LevelBoundingBox
)

func (l SimplifyLevel) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelLight:
		return "light"
	case LevelModerate:
		return "moderate"
	case LevelAggressive:
		return "aggressive"
	case LevelBoundingBox:
		return "bounding-box"
	default:
		return "unknown"
	}
}

// ComplexityScore rates how expensive a shape is to nest: a vertex-count
// term plus a non-rectangularity term, scaled by the declared complexity
// level.
func ComplexityScore(p Polygon) float64 {
	vertexTerm := float64(p.VertexCount()) * 1.5

	nonRect := 0.0
	if ba := p.BBox.Area(); ba > 0 {
		nonRect = (1.0 - p.Area/ba) * 40.0
	}

	multiplier := 1.0 + 0.5*float64(p.Complexity)
	return (vertexTerm + nonRect) * multiplier
}

// chooseLevel picks the simplification level for a score under the active
// performance mode. Faster modes simplify earlier.
func chooseLevel(score float64, mode PerformanceMode) SimplifyLevel {
	var thresholds [4]float64
	switch mode {
	case PerfFast:
		thresholds = [4]float64{20, 40, 80, 150}
	case PerfPrecise:
		thresholds = [4]float64{80, 150, 300, 600}
	default:
		thresholds = [4]float64{40, 80, 150, 300}
	}

	switch {
	case score < thresholds[0]:
		return LevelNone
	case score < thresholds[1]:
		return LevelLight
	case score < thresholds[2]:
		return LevelModerate
	case score < thresholds[3]:
		return LevelAggressive
	default:
		return LevelBoundingBox
	}
}

// Simplifier degrades polygon fidelity under time or complexity pressure.
type Simplifier struct {
	Mode   PerformanceMode
	Logger *slog.Logger
}

func NewSimplifier(mode PerformanceMode) *Simplifier {
	return &Simplifier{Mode: mode}
}

func (s *Simplifier) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Simplify picks a level from the shape's complexity score and applies it.
func (s *Simplifier) Simplify(p Polygon) (Polygon, SimplifyLevel) {
	level := chooseLevel(ComplexityScore(p), s.Mode)
	return s.SimplifyTo(p, level), level
}

// SimplifyTo applies a specific level. Light and moderate run a recursive
// max-deviation-from-chord reduction; aggressive replaces the shape with an
// octagon silhouette; bounding-box swaps in the plain rectangle, the one
// topology-changing last resort.
func (s *Simplifier) SimplifyTo(p Polygon, level SimplifyLevel) Polygon {
	switch level {
	case LevelLight:
		return s.chordSimplify(p, 0.005*maxDim(p))
	case LevelModerate:
		return s.chordSimplify(p, 0.02*maxDim(p))
	case LevelAggressive:
		return s.octagon(p)
	case LevelBoundingBox:
		s.logger().Warn("shape degraded to bounding box",
			"polygon", p.ID, "vertices", p.VertexCount())
		return s.boundingBoxShape(p)
	default:
		return p
	}
}

func maxDim(p Polygon) float64 {
	return math.Max(p.Width(), p.Height())
}

// chordSimplify removes vertices whose deviation from the chord between
// their retained neighbours stays below tol.
func (s *Simplifier) chordSimplify(p Polygon, tol float64) Polygon {
	verts := p.vertices()
	if len(verts) <= 4 {
		return p
	}

	// A closed contour has no natural endpoints; split at the two most
	// distant vertices so the recursion has stable anchors.
	half := len(verts) / 2
	first := reduceByChord(verts[:half+1], tol)
	second := reduceByChord(verts[half:], tol)
	merged := append(append([]Point{}, first[:len(first)-1]...), second...)

	out, err := NewPolygon(p.ID, merged, p.Complexity, p.RotationAllowed)
	if err != nil {
		// Too few survivors to stay a polygon; keep the original.
		return p
	}
	out.KerfApplied = p.KerfApplied
	return out
}

// reduceByChord is the recursive core: keep the point farthest from the
// chord if it deviates more than tol, otherwise drop everything between the
// endpoints.
func reduceByChord(pts []Point, tol float64) []Point {
	if len(pts) <= 2 {
		// Copy: callers append to the result, and pts may alias a live
		// contour.
		return append([]Point(nil), pts...)
	}

	maxDist := 0.0
	maxIdx := 0
	for i := 1; i < len(pts)-1; i++ {
		d := pointToChordDistance(pts[i], pts[0], pts[len(pts)-1])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= tol {
		return []Point{pts[0], pts[len(pts)-1]}
	}

	left := reduceByChord(pts[:maxIdx+1], tol)
	right := reduceByChord(pts[maxIdx:], tol)
	return append(left[:len(left)-1], right...)
}

func pointToChordDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l < 1e-12 {
		return p.DistanceTo(a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / l
}

// octagon replaces the shape with an eight-sided silhouette sized from its
// bounding box, chamfering each corner by a quarter of the short dimension.
func (s *Simplifier) octagon(p Polygon) Polygon {
	b := p.BBox
	cut := 0.25 * math.Min(b.Width(), b.Height())
	pts := []Point{
		{b.MinX + cut, b.MinY},
		{b.MaxX - cut, b.MinY},
		{b.MaxX, b.MinY + cut},
		{b.MaxX, b.MaxY - cut},
		{b.MaxX - cut, b.MaxY},
		{b.MinX + cut, b.MaxY},
		{b.MinX, b.MaxY - cut},
		{b.MinX, b.MinY + cut},
	}
	out, err := NewPolygon(p.ID, pts, p.Complexity, p.RotationAllowed)
	if err != nil {
		return s.boundingBoxShape(p)
	}
	out.KerfApplied = p.KerfApplied
	return out
}

// boundingBoxShape replaces the shape with its bounding rectangle.
func (s *Simplifier) boundingBoxShape(p Polygon) Polygon {
	b := p.BBox
	out, err := NewRectangle(p.ID, b.MinX, b.MinY, b.Width(), b.Height(), p.RotationAllowed)
	if err != nil {
		return p
	}
	out.Complexity = p.Complexity
	out.KerfApplied = p.KerfApplied
	return out
}

// SimplifyBatch distributes a fixed time budget across a shape list, most
// complex first. As the budget burns, remaining shapes are pushed to cheaper
// levels; once 90% is spent, everything left becomes a bounding box.
func (s *Simplifier) SimplifyBatch(shapes []Polygon, budget time.Duration) ([]Polygon, []string) {
	out := make([]Polygon, len(shapes))
	copy(out, shapes)
	if len(shapes) == 0 || budget <= 0 {
		return out, nil
	}

	order := make([]int, len(shapes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ComplexityScore(shapes[order[a]]) > ComplexityScore(shapes[order[b]])
	})

	var warnings []string
	start := time.Now()

	for _, idx := range order {
		p := shapes[idx]
		elapsed := time.Since(start)

		if elapsed >= budget*9/10 {
			out[idx] = s.boundingBoxShape(p)
			warnings = append(warnings,
				fmt.Sprintf("simplification budget exhausted: %s reduced to bounding box", p.ID))
			continue
		}

		level := chooseLevel(ComplexityScore(p), s.Mode)
		// Degrade one step for every half of the budget already consumed.
		if elapsed >= budget/2 && level < LevelBoundingBox {
			level++
			warnings = append(warnings,
				fmt.Sprintf("simplification budget pressure: %s degraded to %s", p.ID, level))
		}
		out[idx] = s.SimplifyTo(p, level)
	}

	return out, warnings
}
