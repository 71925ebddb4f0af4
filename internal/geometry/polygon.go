package geometry

import (
	"fmt"
	"math"
)

// CloseTolerance is the maximum gap (mm) between the first and last contour
// points before the contour is considered open and gets auto-closed.
const CloseTolerance = 0.001

// ComplexityLevel classifies how expensive a shape is to nest.
type ComplexityLevel int

const (
	ComplexityLow ComplexityLevel = iota
	ComplexityMedium
	ComplexityHigh
	ComplexityExtreme
)

func (c ComplexityLevel) String() string {
	switch c {
	case ComplexityLow:
		return "low"
	case ComplexityMedium:
		return "medium"
	case ComplexityHigh:
		return "high"
	case ComplexityExtreme:
		return "extreme"
	default:
		return "unknown"
	}
}

// GeometryError reports a transform that would produce a degenerate polygon.
// The source polygon is untouched; every transform is copy-on-write.
type GeometryError struct {
	Op        string
	PolygonID string
	Reason    string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry %s on %q: %s", e.Op, e.PolygonID, e.Reason)
}

// Polygon is an immutable closed contour with cached derived values.
// The contour is stored explicitly closed (first point repeated last) with
// counter-clockwise winding. Transforms return new instances; contours are
// never shared mutable.
type Polygon struct {
	ID              string
	Contour         []Point // closed: Contour[0] == Contour[len-1]
	BBox            BBox
	Area            float64
	Complexity      ComplexityLevel
	RotationAllowed bool
	KerfApplied     float64 // accumulated kerf compensation, mm
}

// NewPolygon validates and normalizes a contour into a Polygon. The contour
// may be open (it is closed automatically), must have at least 3 distinct
// vertices and enclose a positive area. Winding is normalized to
// counter-clockwise.
func NewPolygon(id string, contour []Point, complexity ComplexityLevel, rotationAllowed bool) (Polygon, error) {
	pts := dedupeConsecutive(contour, CloseTolerance)
	// Drop an explicit closing point so the distinct-vertex count is honest.
	if len(pts) > 1 && pts[0].DistanceTo(pts[len(pts)-1]) <= CloseTolerance {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return Polygon{}, &GeometryError{Op: "construct", PolygonID: id, Reason: "fewer than 3 distinct vertices"}
	}

	signed := signedArea(pts)
	if math.Abs(signed) < 1e-9 {
		return Polygon{}, &GeometryError{Op: "construct", PolygonID: id, Reason: "zero enclosed area"}
	}
	if signed < 0 {
		reverse(pts)
		signed = -signed
	}

	closed := append(pts, pts[0])
	return Polygon{
		ID:              id,
		Contour:         closed,
		BBox:            boundingBox(pts),
		Area:            signed,
		Complexity:      complexity,
		RotationAllowed: rotationAllowed,
	}, nil
}

// NewRectangle builds a rectangular polygon, the common case for stock parts.
func NewRectangle(id string, x, y, w, h float64, rotationAllowed bool) (Polygon, error) {
	return NewPolygon(id, []Point{
		{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h},
	}, ComplexityLow, rotationAllowed)
}

// VertexCount returns the number of distinct vertices.
func (p Polygon) VertexCount() int {
	if len(p.Contour) == 0 {
		return 0
	}
	return len(p.Contour) - 1
}

// vertices returns the distinct vertices (closing point dropped).
func (p Polygon) vertices() []Point {
	if len(p.Contour) == 0 {
		return nil
	}
	return p.Contour[:len(p.Contour)-1]
}

// Width returns the bounding-box width.
func (p Polygon) Width() float64 { return p.BBox.Width() }

// Height returns the bounding-box height.
func (p Polygon) Height() float64 { return p.BBox.Height() }

// IsRectangular reports whether the shape fills its bounding box, i.e. the
// polygon test buys nothing over the bbox test.
func (p Polygon) IsRectangular() bool {
	if p.VertexCount() != 4 {
		return false
	}
	return math.Abs(p.Area-p.BBox.Area()) < 1e-6*math.Max(1, p.BBox.Area())
}

// Centroid returns the area centroid for shapes with more than 4 vertices
// and the bounding-box center otherwise; the bbox center is exact for
// rectangles and cheaper.
func (p Polygon) Centroid() Point {
	verts := p.vertices()
	if len(verts) <= 4 {
		return p.BBox.Center()
	}
	var cx, cy, a float64
	n := len(verts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := verts[i].X*verts[j].Y - verts[j].X*verts[i].Y
		a += cross
		cx += (verts[i].X + verts[j].X) * cross
		cy += (verts[i].Y + verts[j].Y) * cross
	}
	if math.Abs(a) < 1e-12 {
		return p.BBox.Center()
	}
	return Point{cx / (3 * a), cy / (3 * a)}
}

// Translate returns a copy shifted by dx, dy.
func (p Polygon) Translate(dx, dy float64) Polygon {
	out := make([]Point, len(p.Contour))
	for i, pt := range p.Contour {
		out[i] = Point{pt.X + dx, pt.Y + dy}
	}
	cp := p
	cp.Contour = out
	cp.BBox = p.BBox.Translate(dx, dy)
	return cp
}

// Rotate returns a copy rotated by deg degrees about the polygon's centroid.
// Area is preserved exactly; the bounding box is recomputed.
func (p Polygon) Rotate(deg float64) (Polygon, error) {
	return p.RotateAbout(deg, p.Centroid())
}

// RotateAbout rotates every contour point about an explicit center.
func (p Polygon) RotateAbout(deg float64, center Point) (Polygon, error) {
	if !p.RotationAllowed {
		return Polygon{}, &GeometryError{Op: "rotate", PolygonID: p.ID, Reason: "rotation not allowed for this shape"}
	}
	rad := deg * math.Pi / 180.0
	sin, cos := math.Sin(rad), math.Cos(rad)

	out := make([]Point, len(p.Contour))
	for i, pt := range p.Contour {
		dx, dy := pt.X-center.X, pt.Y-center.Y
		out[i] = Point{
			X: center.X + dx*cos - dy*sin,
			Y: center.Y + dx*sin + dy*cos,
		}
	}

	cp := p
	cp.Contour = out
	cp.BBox = boundingBox(out[:len(out)-1])
	// Rotation is rigid: the cached area is carried over unchanged rather
	// than recomputed through the rounded contour.
	return cp, nil
}

// maxMiterFactor clamps the vertex displacement at sharp spikes, where the
// exact miter would shoot the vertex arbitrarily far.
const maxMiterFactor = 4.0

// ApplyKerf offsets every vertex along the average of its two adjacent edge
// normals: inward for positive kerf, outward for negative. This is a
// simplified inset, not a true polygon offset (Minkowski) operation; concave
// or near-self-intersecting contours can produce invalid output. The offset
// distance is miter-scaled so straight walls move by exactly kerf mm.
func (p Polygon) ApplyKerf(kerfMM float64) (Polygon, error) {
	if kerfMM == 0 {
		return p, nil
	}
	verts := p.vertices()
	n := len(verts)
	if n < 3 {
		return Polygon{}, &GeometryError{Op: "kerf", PolygonID: p.ID, Reason: "fewer than 3 vertices"}
	}

	offset := make([]Point, n)
	for i := 0; i < n; i++ {
		prev := verts[(i-1+n)%n]
		curr := verts[i]
		next := verts[(i+1)%n]

		// Inward normals of the two adjacent edges. With CCW winding the
		// inward normal of edge (dx,dy) is (-dy,dx) normalized.
		n1x, n1y := unitNormal(curr.X-prev.X, curr.Y-prev.Y)
		n2x, n2y := unitNormal(next.X-curr.X, next.Y-curr.Y)

		ax, ay := n1x+n2x, n1y+n2y
		aLen := math.Hypot(ax, ay)
		if aLen < 1e-9 {
			// Opposed normals: a 180-degree spike. Fall back to one edge's
			// normal at plain kerf distance.
			ax, ay, aLen = n1x, n1y, 1
		} else {
			ax /= aLen
			ay /= aLen
		}

		// Miter scaling: moving along the averaged normal by kerf/cos(h)
		// moves each adjacent edge inward by exactly kerf, where h is the
		// half-angle between the edge normals.
		cosHalf := ax*n1x + ay*n1y
		scale := 1.0
		if cosHalf > 1e-6 {
			scale = 1.0 / cosHalf
		}
		if scale > maxMiterFactor {
			scale = maxMiterFactor
		}

		d := kerfMM * scale
		offset[i] = Point{curr.X + ax*d, curr.Y + ay*d}
	}

	// An offset edge that points opposite its source edge means adjacent
	// walls crossed: the kerf is larger than the local feature size.
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		ox, oy := offset[j].X-offset[i].X, offset[j].Y-offset[i].Y
		vx, vy := verts[j].X-verts[i].X, verts[j].Y-verts[i].Y
		if math.Hypot(ox, oy) > CloseTolerance && ox*vx+oy*vy < 0 {
			return Polygon{}, &GeometryError{Op: "kerf", PolygonID: p.ID,
				Reason: fmt.Sprintf("kerf %.2fmm collapses the polygon", kerfMM)}
		}
	}

	offset = dedupeConsecutive(offset, CloseTolerance)
	if len(offset) < 3 {
		return Polygon{}, &GeometryError{Op: "kerf", PolygonID: p.ID, Reason: "contour collapsed below 3 vertices"}
	}

	signed := signedArea(offset)
	if signed <= 1e-9 {
		return Polygon{}, &GeometryError{Op: "kerf", PolygonID: p.ID,
			Reason: fmt.Sprintf("kerf %.2fmm collapses the polygon", kerfMM)}
	}
	if kerfMM > 0 && signed >= p.Area {
		return Polygon{}, &GeometryError{Op: "kerf", PolygonID: p.ID, Reason: "inset failed to shrink the polygon"}
	}
	if kerfMM < 0 && signed <= p.Area {
		return Polygon{}, &GeometryError{Op: "kerf", PolygonID: p.ID, Reason: "outset failed to grow the polygon"}
	}

	closed := append(offset, offset[0])
	cp := p
	cp.Contour = closed
	cp.BBox = boundingBox(offset)
	cp.Area = signed
	cp.KerfApplied += kerfMM
	return cp, nil
}

// Overlaps reports whether two polygons intersect. The bounding boxes are
// checked first; on bbox overlap it falls back to vertex containment tests
// in both directions plus pairwise edge intersection. Correct for convex and
// most simple concave polygons; self-intersecting inputs are not supported.
func (p Polygon) Overlaps(other Polygon, tol float64) bool {
	if !p.BBox.Intersects(other.BBox, tol) {
		return false
	}

	for _, v := range other.vertices() {
		if containsPoint(p.vertices(), v) {
			return true
		}
	}
	for _, v := range p.vertices() {
		if containsPoint(other.vertices(), v) {
			return true
		}
	}

	a, b := p.Contour, other.Contour
	for i := 0; i < len(a)-1; i++ {
		for j := 0; j < len(b)-1; j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// ContainsPoint reports whether the point lies inside the polygon.
func (p Polygon) ContainsPoint(pt Point) bool {
	return containsPoint(p.vertices(), pt)
}

// containsPoint is a standard ray-casting point-in-polygon test over the
// distinct vertices of a closed contour.
func containsPoint(verts []Point, pt Point) bool {
	inside := false
	n := len(verts)
	j := n - 1
	for i := 0; i < n; i++ {
		vi, vj := verts[i], verts[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// segmentsIntersect reports whether segments a1-a2 and b1-b2 cross,
// including collinear overlap.
func segmentsIntersect(a1, a2, b1, b2 Point) bool {
	d1 := crossSign(b1, b2, a1)
	d2 := crossSign(b1, b2, a2)
	d3 := crossSign(a1, a2, b1)
	d4 := crossSign(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	return (d1 == 0 && onSegment(b1, b2, a1)) ||
		(d2 == 0 && onSegment(b1, b2, a2)) ||
		(d3 == 0 && onSegment(a1, a2, b1)) ||
		(d4 == 0 && onSegment(a1, a2, b2))
}

// crossSign returns the sign of the cross product (b-a) x (p-a).
func crossSign(a, b, p Point) int {
	v := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
	switch {
	case v > 1e-12:
		return 1
	case v < -1e-12:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether p lies on segment a-b, assuming collinearity.
func onSegment(a, b, p Point) bool {
	return math.Min(a.X, b.X)-1e-12 <= p.X && p.X <= math.Max(a.X, b.X)+1e-12 &&
		math.Min(a.Y, b.Y)-1e-12 <= p.Y && p.Y <= math.Max(a.Y, b.Y)+1e-12
}

// signedArea computes the shoelace area over distinct vertices. Positive
// means counter-clockwise winding.
func signedArea(verts []Point) float64 {
	var sum float64
	n := len(verts)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += verts[i].X*verts[j].Y - verts[j].X*verts[i].Y
	}
	return sum / 2
}

// unitNormal returns the inward unit normal of a CCW edge direction.
func unitNormal(dx, dy float64) (float64, float64) {
	l := math.Hypot(dx, dy)
	if l < 1e-12 {
		return 0, 0
	}
	return -dy / l, dx / l
}

func dedupeConsecutive(pts []Point, tol float64) []Point {
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].DistanceTo(p) <= tol {
			continue
		}
		out = append(out, p)
	}
	return out
}

func reverse(pts []Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}
