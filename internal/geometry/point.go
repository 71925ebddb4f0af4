package geometry

import "math"

// Point is a 2D coordinate in mm.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point { return Point{p.X * f, p.Y * f} }

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// BBox is an axis-aligned bounding rectangle.
type BBox struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (b BBox) Width() float64  { return b.MaxX - b.MinX }
func (b BBox) Height() float64 { return b.MaxY - b.MinY }
func (b BBox) Area() float64   { return b.Width() * b.Height() }

// Center returns the midpoint of the box.
func (b BBox) Center() Point {
	return Point{(b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2}
}

// Intersects reports whether two boxes overlap by more than tol on both axes.
func (b BBox) Intersects(other BBox, tol float64) bool {
	return b.MinX < other.MaxX-tol && b.MaxX > other.MinX+tol &&
		b.MinY < other.MaxY-tol && b.MaxY > other.MinY+tol
}

// ContainsBox reports whether other lies entirely within b, with tolerance.
func (b BBox) ContainsBox(other BBox, tol float64) bool {
	return other.MinX >= b.MinX-tol && other.MinY >= b.MinY-tol &&
		other.MaxX <= b.MaxX+tol && other.MaxY <= b.MaxY+tol
}

// Translate returns the box shifted by dx, dy.
func (b BBox) Translate(dx, dy float64) BBox {
	return BBox{b.MinX + dx, b.MinY + dy, b.MaxX + dx, b.MaxY + dy}
}

// boundingBox computes the bbox of a point slice.
func boundingBox(pts []Point) BBox {
	if len(pts) == 0 {
		return BBox{}
	}
	b := BBox{pts[0].X, pts[0].Y, pts[0].X, pts[0].Y}
	for _, p := range pts[1:] {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return b
}
