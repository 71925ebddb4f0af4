package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fraeswerk/nestkit/internal/engine"
	"github.com/fraeswerk/nestkit/internal/model"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the default what-if scenarios side by side",
	RunE:  runCompare,
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	defer setupTelemetry(ctx)()

	sheet, err := sheetFromFlags()
	if err != nil {
		return err
	}
	sheets := []model.SheetSpec{sheet}
	parts := syntheticParts(flagSeed, flagCount, sheet)

	scenarios := engine.BuildDefaultScenarios(nestingConfigFromFlags())
	results := engine.CompareScenarios(parts, sheets, scenarios)

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tSTRATEGY\tSHEETS\tPLACED\tWASTE%\tERROR")
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\t%s\n",
			r.Scenario.Name, r.Scenario.Strategy, r.SheetsUsed, r.PlacedCount, r.WastePercent, errText)
	}
	return tw.Flush()
}
