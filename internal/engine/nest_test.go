package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraeswerk/nestkit/internal/geometry"
	"github.com/fraeswerk/nestkit/internal/perf"
)

func mustRect(t *testing.T, id string, w, h float64, rotate bool) geometry.Polygon {
	t.Helper()
	p, err := geometry.NewRectangle(id, 0, 0, w, h, rotate)
	require.NoError(t, err)
	return p
}

func mustLShape(t *testing.T, id string) geometry.Polygon {
	t.Helper()
	p, err := geometry.NewPolygon(id, []geometry.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 40},
		{X: 40, Y: 40}, {X: 40, Y: 100}, {X: 0, Y: 100},
	}, geometry.ComplexityMedium, false)
	require.NoError(t, err)
	return p
}

func TestNestPlacesRectangles(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 500, Height: 400, Margin: 10}

	shapes := []geometry.Polygon{
		mustRect(t, "a", 100, 50, true),
		mustRect(t, "b", 100, 50, true),
		mustRect(t, "c", 80, 80, true),
		mustRect(t, "d", 120, 60, true),
	}

	result := n.Nest(context.Background(), shapes, sheet, NestOptions{
		Performance: geometry.PerfBalanced,
		SpacingMM:   2,
	})

	require.Len(t, result.Placed, 4)
	assert.Empty(t, result.Unplaced)
	assert.Greater(t, result.UtilizationPercent, 0.0)

	usable := sheet.UsableRect()
	for i, p := range result.Placed {
		assert.True(t, usable.ContainsBox(p.Shape.BBox, 1e-6),
			"shape %s outside usable area", p.Shape.ID)
		for j := i + 1; j < len(result.Placed); j++ {
			assert.False(t, p.Shape.Overlaps(result.Placed[j].Shape, 0.01),
				"shapes %s and %s overlap", p.Shape.ID, result.Placed[j].Shape.ID)
		}
	}
}

func TestNestOversizedShapeUnplaced(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 200, Height: 200}

	shapes := []geometry.Polygon{
		mustRect(t, "fits", 100, 100, false),
		mustRect(t, "huge", 500, 500, false),
	}

	result := n.Nest(context.Background(), shapes, sheet, NestOptions{
		Performance: geometry.PerfBalanced,
	})

	require.Len(t, result.Placed, 1)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "huge", result.Unplaced[0].ID)
}

func TestNestPolygonModeUsesConcaveSpace(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 100, Height: 160}

	run := func(mode PlacementMode) NestResult {
		shapes := []geometry.Polygon{
			mustLShape(t, "l"),
			mustRect(t, "sq", 50, 50, false),
		}
		return n.Nest(context.Background(), shapes, sheet, NestOptions{
			Placement:   mode,
			Performance: geometry.PerfBalanced,
		})
	}

	poly := run(PlacePolygon)
	box := run(PlaceBoundingBox)

	require.Len(t, poly.Placed, 2)
	require.Len(t, box.Placed, 2)

	// The polygon test lets the square sit in the L's notch; the bbox test
	// pushes it above the L's bounding box.
	assert.Less(t, poly.Placed[1].Y, 100.0)
	assert.GreaterOrEqual(t, box.Placed[1].Y, 100.0)
}

func TestNestPolygonModeKeepsSpacing(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 300, Height: 120}

	shapes := []geometry.Polygon{
		mustLShape(t, "l1"),
		mustLShape(t, "l2"),
	}

	result := n.Nest(context.Background(), shapes, sheet, NestOptions{
		Placement:   PlacePolygon,
		Performance: geometry.PerfBalanced,
		SpacingMM:   30,
	})

	require.Len(t, result.Placed, 2)
	first, second := result.Placed[0], result.Placed[1]
	assert.Equal(t, 0.0, first.X)
	assert.GreaterOrEqual(t, second.X, first.Shape.BBox.MaxX+30,
		"polygon-tested shapes must honor the spacing")
}

func TestNestCancellation(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 1000, Height: 1000}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	shapes := []geometry.Polygon{
		mustRect(t, "a", 100, 100, false),
		mustRect(t, "b", 100, 100, false),
	}

	result := n.Nest(ctx, shapes, sheet, NestOptions{Performance: geometry.PerfFast})

	assert.Empty(t, result.Placed)
	assert.Len(t, result.Unplaced, 2)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "canceled")
}

func TestNestReportsProgressPerShape(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 1000, Height: 1000}

	var percents []float64
	reporter := perf.ReporterFunc(func(stage string, pct float64) {
		assert.Equal(t, "nest", stage)
		percents = append(percents, pct)
	})

	shapes := []geometry.Polygon{
		mustRect(t, "a", 100, 100, false),
		mustRect(t, "b", 100, 100, false),
		mustRect(t, "c", 100, 100, false),
	}

	n.Nest(context.Background(), shapes, sheet, NestOptions{
		Performance: geometry.PerfFast,
		Progress:    reporter,
	})

	require.Len(t, percents, 3)
	assert.InDelta(t, 100.0, percents[2], 1e-9)
}

func TestNestRotationRescuesFit(t *testing.T) {
	n := NewNester()
	sheet := geometry.SheetGeometry{Width: 200, Height: 100}

	shapes := []geometry.Polygon{mustRect(t, "tall", 80, 180, true)}

	result := n.Nest(context.Background(), shapes, sheet, NestOptions{
		Performance: geometry.PerfBalanced,
	})

	require.Len(t, result.Placed, 1)
	assert.Equal(t, 90.0, result.Placed[0].RotationDeg)
	assert.InDelta(t, 180.0, result.Placed[0].Shape.Width(), 1e-6)
}
