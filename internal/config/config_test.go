package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "generic-panel-saw", cfg.Machine.Name)
	assert.Equal(t, 3.2, cfg.Machine.KerfMM)
	assert.Equal(t, "balanced", cfg.Tuning.PerformanceMode)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machine.yaml")
	doc := `
machine:
  name: thin-blade
  kerf_mm: 1.1
tuning:
  performance_mode: precise
  time_budget_ms: 5000
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "thin-blade", cfg.Machine.Name)
	assert.Equal(t, 1.1, cfg.Machine.KerfMM)
	assert.Equal(t, "precise", cfg.Tuning.PerformanceMode)
	assert.Equal(t, 5000, cfg.Tuning.TimeBudgetMS)

	// Absent fields keep their defaults.
	assert.Equal(t, 50.0, cfg.Machine.CutSpeedMMPerSec)
	assert.Equal(t, 40, cfg.Tuning.Population)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"negative kerf", "machine:\n  kerf_mm: -1\n"},
		{"zero cut speed", "machine:\n  cut_speed_mm_per_sec: 0\n"},
		{"bad performance mode", "tuning:\n  performance_mode: ludicrous\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.doc), 0o644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("machine: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
