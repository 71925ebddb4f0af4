package commands

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fraeswerk/nestkit/internal/cutplan"
	"github.com/fraeswerk/nestkit/internal/engine"
	"github.com/fraeswerk/nestkit/internal/model"
	"github.com/fraeswerk/nestkit/internal/quality"
)

var (
	flagStrategy string
	flagGCode    bool
	flagBudgetMS int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Pack a seeded synthetic cut list and print layout, cut plan and quality report",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagStrategy, "strategy", "shelf", "packing strategy: shelf | genetic")
	runCmd.Flags().BoolVar(&flagGCode, "gcode", false, "print the machine program per sheet")
	runCmd.Flags().IntVar(&flagBudgetMS, "budget-ms", 0, "genetic time budget override in ms")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer setupTelemetry(ctx)()

	sheet, err := sheetFromFlags()
	if err != nil {
		return err
	}
	sheets := []model.SheetSpec{sheet}
	parts := syntheticParts(flagSeed, flagCount, sheet)
	nc := nestingConfigFromFlags()

	var result model.PackResult
	switch flagStrategy {
	case "genetic":
		ga := engine.DefaultGeneticConfig()
		ga.Seed = flagSeed
		ga.PopulationSize = cfg.Tuning.Population
		ga.StallLimit = cfg.Tuning.StallLimit
		ga.TargetUtilization = cfg.Tuning.TargetUtilization
		if flagBudgetMS > 0 {
			ga.TimeBudget = time.Duration(flagBudgetMS) * time.Millisecond
		} else if cfg.Tuning.TimeBudgetMS > 0 {
			ga.TimeBudget = time.Duration(cfg.Tuning.TimeBudgetMS) * time.Millisecond
		}
		result = engine.NewGeneticOptimizer(nc, ga).Pack(ctx, parts, sheets, nil)
	case "shelf":
		result, err = engine.NewShelfPacker(nc).Pack(parts, sheets)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown --strategy %q", flagStrategy)
	}

	printLayout(result, sheets)

	checker := quality.NewChecker()
	checker.MinSpacing = nc.SpacingMM
	report := checker.Check(result.Placed, sheets, model.ExpandQuantities(parts))
	printQuality(report)

	planner := cutplan.NewPlanner(cutplan.Params{
		KerfMM:           cfg.Machine.KerfMM,
		CutSpeedMMPerSec: cfg.Machine.CutSpeedMMPerSec,
		SetupSecPerCut:   cfg.Machine.SetupSecPerCut,
	})
	sequences := planner.Plan(result.Placed, sheets)
	printCutPlan(sequences)

	if flagGCode {
		for _, program := range cutplan.EmitAll(sequences, sheets, cfg.Machine) {
			fmt.Println(program)
		}
	}

	offcuts := model.DetectAllOffcuts(result, sheets, nc.KerfMM)
	if len(offcuts) > 0 {
		fmt.Printf("\nReusable offcuts: %d, %.0f sq cm total\n",
			len(offcuts), model.TotalOffcutArea(offcuts)/100)
	}
	return nil
}

// syntheticParts builds a reproducible cut list scaled to the sheet.
func syntheticParts(seed int64, count int, sheet model.SheetSpec) []model.Part {
	rng := rand.New(rand.NewSource(seed))
	parts := make([]model.Part, 0, count)
	for i := 0; i < count; i++ {
		w := 80 + rng.Float64()*sheet.UsableWidth()/4
		h := 60 + rng.Float64()*sheet.UsableHeight()/4
		p := model.NewPart(fmt.Sprintf("part-%02d", i+1), w, h, 1)
		p.CanRotate = rng.Float64() < 0.8
		parts = append(parts, p)
	}
	return parts
}

func printLayout(result model.PackResult, sheets []model.SheetSpec) {
	fmt.Printf("Placed %d parts on %d sheet(s), utilization %.1f%%\n",
		len(result.Placed), result.SheetCount, result.Utilization(sheets))
	for _, w := range result.Warnings {
		fmt.Println("  warning:", w)
	}

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHEET\tPART\tX\tY\tW\tH\tROT")
	for _, p := range result.Placed {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%d\n",
			p.SheetIndex, p.Label, p.X, p.Y, p.Width, p.Height, p.RotationDeg)
	}
	tw.Flush()
}

func printQuality(report quality.QualityReport) {
	fmt.Printf("\nQuality score: %.1f (passed %d/%d checks)\n",
		report.Score, len(report.PassedChecks),
		len(report.PassedChecks)+len(report.FailedChecks))
	for _, issue := range report.Issues {
		fmt.Printf("  [%s] %s: %s\n", issue.Severity, issue.Type, issue.Description)
	}
}

func printCutPlan(sequences []cutplan.CutSequence) {
	for _, seq := range sequences {
		fmt.Printf("\nSheet %d cut plan: %d operations, %.0f mm, ~%.0f s\n",
			seq.SheetIndex+1, len(seq.Operations), seq.TotalLengthMM, seq.EstimatedTimeSec)
		for _, op := range seq.Operations {
			fmt.Printf("  %2d. %-8s %-10s at %7.1f releases %d part(s)\n",
				op.Priority+1, op.Type, op.Direction, op.Position, len(op.PartsReleased))
		}
	}
}
