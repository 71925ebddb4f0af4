// Package commands implements the nestbench CLI, the reference host for the
// nesting core. It generates synthetic cut lists in-process; file import and
// export live outside this repository.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fraeswerk/nestkit/internal/config"
	"github.com/fraeswerk/nestkit/internal/model"
	"github.com/fraeswerk/nestkit/internal/telemetry"
)

const version = "0.3.0"

var (
	cfgFile   string
	traceRuns bool
	cfg       config.Config

	flagSheet   string
	flagMargin  float64
	flagKerf    float64
	flagSpacing float64
	flagSeed    int64
	flagCount   int
)

var rootCmd = &cobra.Command{
	Use:     "nestbench",
	Short:   "Benchmark harness for the nestkit packing engines",
	Long:    "nestbench runs the nestkit shelf packer, genetic optimizer and\npolygon nesting engine against seeded synthetic cut lists and prints\nlayouts, cut plans and quality reports.",
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "machine profile YAML (default built-in panel saw)")
	rootCmd.PersistentFlags().BoolVar(&traceRuns, "trace", false, "emit OTel spans to stderr")
	rootCmd.PersistentFlags().StringVar(&flagSheet, "sheet", "2440x1220", "sheet size WxH in mm")
	rootCmd.PersistentFlags().Float64Var(&flagMargin, "margin", 10, "sheet edge margin in mm")
	rootCmd.PersistentFlags().Float64Var(&flagKerf, "kerf", 3.2, "blade kerf in mm")
	rootCmd.PersistentFlags().Float64Var(&flagSpacing, "spacing", 5, "part spacing in mm")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 42, "synthetic cut list seed")
	rootCmd.PersistentFlags().IntVar(&flagCount, "parts", 12, "synthetic part count")

	viper.SetEnvPrefix("NESTBENCH")
	viper.AutomaticEnv()
	_ = viper.BindPFlag("sheet", rootCmd.PersistentFlags().Lookup("sheet"))
	_ = viper.BindPFlag("kerf", rootCmd.PersistentFlags().Lookup("kerf"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(nestCmd)
}

func initConfig() {
	cfg = config.Default()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))
}

// setupTelemetry installs the trace pipeline and returns its shutdown hook.
func setupTelemetry(ctx context.Context) func() {
	shutdown, err := telemetry.Init(ctx, "nestbench", version, traceRuns)
	if err != nil {
		fmt.Fprintln(os.Stderr, "telemetry disabled:", err)
		return func() {}
	}
	return func() { _ = shutdown(ctx) }
}

func sheetFromFlags() (model.SheetSpec, error) {
	raw := viper.GetString("sheet")
	if raw == "" {
		raw = flagSheet
	}
	parts := strings.SplitN(strings.ToLower(raw), "x", 2)
	if len(parts) != 2 {
		return model.SheetSpec{}, fmt.Errorf("invalid --sheet %q, want WxH", raw)
	}
	w, errW := strconv.ParseFloat(parts[0], 64)
	h, errH := strconv.ParseFloat(parts[1], 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return model.SheetSpec{}, fmt.Errorf("invalid --sheet %q, want WxH", raw)
	}
	return model.SheetSpec{Width: w, Height: h, Margin: flagMargin}, nil
}

func nestingConfigFromFlags() model.NestingConfig {
	nc := model.DefaultConfig()
	nc.KerfMM = flagKerf
	nc.SpacingMM = flagSpacing
	return nc
}
