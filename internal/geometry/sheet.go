package geometry

// SheetGeometry describes the stock sheet a polygon nesting run targets.
type SheetGeometry struct {
	Width  float64 `json:"width"`  // mm
	Height float64 `json:"height"` // mm
	Margin float64 `json:"margin"` // unusable border on every edge, mm
}

// UsableRect returns the placeable region as a bounding box.
func (s SheetGeometry) UsableRect() BBox {
	return BBox{
		MinX: s.Margin,
		MinY: s.Margin,
		MaxX: s.Width - s.Margin,
		MaxY: s.Height - s.Margin,
	}
}

// UsableWidth returns the sheet width minus margins.
func (s SheetGeometry) UsableWidth() float64 { return s.Width - 2*s.Margin }

// UsableHeight returns the sheet height minus margins.
func (s SheetGeometry) UsableHeight() float64 { return s.Height - 2*s.Margin }

// UsableArea returns the placeable area in square mm.
func (s SheetGeometry) UsableArea() float64 {
	w, h := s.UsableWidth(), s.UsableHeight()
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}
