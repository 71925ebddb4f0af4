package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/fraeswerk/nestkit/internal/engine"
	"github.com/fraeswerk/nestkit/internal/geometry"
	"github.com/fraeswerk/nestkit/internal/perf"
)

var (
	flagMode string
	flagTest string
)

var nestCmd = &cobra.Command{
	Use:   "nest",
	Short: "Nest a seeded synthetic polygon set with the geometric engine",
	RunE:  runNest,
}

func init() {
	nestCmd.Flags().StringVar(&flagMode, "mode", "balanced", "performance mode: fast | balanced | precise")
	nestCmd.Flags().StringVar(&flagTest, "test", "hybrid", "placement test: hybrid | bbox | polygon")
}

func runNest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	defer setupTelemetry(ctx)()

	spec, err := sheetFromFlags()
	if err != nil {
		return err
	}
	sheet := geometry.SheetGeometry{Width: spec.Width, Height: spec.Height, Margin: spec.Margin}
	shapes := syntheticShapes(flagSeed, flagCount)

	placement := engine.PlaceHybrid
	switch flagTest {
	case "bbox":
		placement = engine.PlaceBoundingBox
	case "polygon":
		placement = engine.PlacePolygon
	case "hybrid":
	default:
		return fmt.Errorf("unknown --test %q", flagTest)
	}

	monitor := perf.NewMonitor("nestkit/nestbench", nil)
	result := engine.NewNester().Nest(ctx, shapes, sheet, engine.NestOptions{
		Placement:   placement,
		Performance: geometry.ParsePerformanceMode(flagMode),
		SpacingMM:   flagSpacing,
		Monitor:     monitor,
		Progress: perf.ReporterFunc(func(stage string, pct float64) {
			fmt.Printf("\r%s %.0f%%", stage, pct)
		}),
	})
	fmt.Println()

	fmt.Printf("Placed %d/%d shapes, utilization %.1f%%, %s elapsed\n",
		len(result.Placed), len(shapes), result.UtilizationPercent, monitor.Elapsed().Round(time.Millisecond))
	for _, p := range result.Placed {
		fmt.Printf("  %-12s at (%7.1f, %7.1f) rot %3.0f  %4d vertices\n",
			p.Shape.ID, p.X, p.Y, p.RotationDeg, p.Shape.VertexCount())
	}
	for _, u := range result.Unplaced {
		fmt.Printf("  unplaced: %s (%.0fx%.0f)\n", u.ID, u.Width(), u.Height())
	}
	for _, w := range result.Warnings {
		fmt.Println("  warning:", w)
	}
	return nil
}

// syntheticShapes mixes rectangles, L-shapes and hexagons.
func syntheticShapes(seed int64, count int) []geometry.Polygon {
	rng := rand.New(rand.NewSource(seed))
	shapes := make([]geometry.Polygon, 0, count)

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("shape-%02d", i+1)
		w := 100 + rng.Float64()*300
		h := 80 + rng.Float64()*240

		var poly geometry.Polygon
		var err error
		switch i % 3 {
		case 0:
			poly, err = geometry.NewRectangle(id, 0, 0, w, h, true)
		case 1: // L-shape
			poly, err = geometry.NewPolygon(id, []geometry.Point{
				{X: 0, Y: 0}, {X: w, Y: 0}, {X: w, Y: h / 2},
				{X: w / 2, Y: h / 2}, {X: w / 2, Y: h}, {X: 0, Y: h},
			}, geometry.ComplexityMedium, true)
		default: // hexagon
			poly, err = geometry.NewPolygon(id, []geometry.Point{
				{X: w / 4, Y: 0}, {X: 3 * w / 4, Y: 0}, {X: w, Y: h / 2},
				{X: 3 * w / 4, Y: h}, {X: w / 4, Y: h}, {X: 0, Y: h / 2},
			}, geometry.ComplexityMedium, true)
		}
		if err != nil {
			continue
		}
		shapes = append(shapes, poly)
	}
	return shapes
}
