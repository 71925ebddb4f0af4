// Package config defines the machine profile and tuning knobs the CLI and
// hosts feed into the core, with YAML loading over validated defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MachineProfile describes the cutting machine a plan targets.
type MachineProfile struct {
	Name             string  `yaml:"name"`
	KerfMM           float64 `yaml:"kerf_mm"`
	CutSpeedMMPerSec float64 `yaml:"cut_speed_mm_per_sec"`
	SetupSecPerCut   float64 `yaml:"setup_sec_per_cut"`
	SafeZ            float64 `yaml:"safe_z"`      // retract height, mm
	FeedRate         float64 `yaml:"feed_rate"`   // cutting feed, mm/min
	PlungeRate       float64 `yaml:"plunge_rate"` // plunge feed, mm/min
	PassDepth        float64 `yaml:"pass_depth"`  // depth per pass, mm
	CutDepth         float64 `yaml:"cut_depth"`   // material thickness, mm
}

// Tuning holds optimizer knobs exposed to operators.
type Tuning struct {
	PerformanceMode   string  `yaml:"performance_mode"` // fast | balanced | precise
	Population        int     `yaml:"population"`
	TimeBudgetMS      int     `yaml:"time_budget_ms"`
	TargetUtilization float64 `yaml:"target_utilization"` // percent, 0 disables
	StallLimit        int     `yaml:"stall_limit"`
}

// Config is the root document.
type Config struct {
	Machine MachineProfile `yaml:"machine"`
	Tuning  Tuning         `yaml:"tuning"`
}

// Default returns a profile for a generic panel saw.
func Default() Config {
	return Config{
		Machine: MachineProfile{
			Name:             "generic-panel-saw",
			KerfMM:           3.2,
			CutSpeedMMPerSec: 50.0,
			SetupSecPerCut:   5.0,
			SafeZ:            5.0,
			FeedRate:         1500.0,
			PlungeRate:       500.0,
			PassDepth:        6.0,
			CutDepth:         18.0,
		},
		Tuning: Tuning{
			PerformanceMode: "balanced",
			Population:      40,
			TimeBudgetMS:    2000,
			StallLimit:      20,
		},
	}
}

// Load reads a YAML config file over the defaults: absent fields keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the planners cannot work with.
func (c Config) Validate() error {
	if c.Machine.KerfMM < 0 {
		return fmt.Errorf("config: kerf_mm must be >= 0, got %.2f", c.Machine.KerfMM)
	}
	if c.Machine.CutSpeedMMPerSec <= 0 {
		return fmt.Errorf("config: cut_speed_mm_per_sec must be > 0, got %.2f", c.Machine.CutSpeedMMPerSec)
	}
	if c.Machine.PassDepth <= 0 || c.Machine.CutDepth <= 0 {
		return fmt.Errorf("config: pass_depth and cut_depth must be > 0")
	}
	switch c.Tuning.PerformanceMode {
	case "", "fast", "balanced", "precise":
	default:
		return fmt.Errorf("config: unknown performance_mode %q", c.Tuning.PerformanceMode)
	}
	return nil
}
