package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Base(t *testing.T) {
	base := writeTempYAML(t, "base.yaml", testConfigYAML)

	cfg, err := LoadConfig(base)
	require.NoError(t, err)

	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, 7, cfg.Simulation.DurationDays)
	assert.Equal(t, 200, cfg.Installs.Total)
	assert.Len(t, cfg.PlayerTypes, 6)
	assert.InDelta(t, 0.002, cfg.Gacha.Rates.Legendary, 1e-12)
}

func TestLoadConfig_OverrideMergesMapsAndReplacesArrays(t *testing.T) {
	base := writeTempYAML(t, "base.yaml", testConfigYAML)
	override := writeTempYAML(t, "override.yaml", `
simulation:
  duration_days: 14
devices:
  app_versions: ["2.0.0"]
  app_version_weights: [1.0]
`)

	cfg, err := LoadConfig(base, override)
	require.NoError(t, err)

	// overridden scalar
	assert.Equal(t, 14, cfg.Simulation.DurationDays)
	// untouched sibling key survives the merge
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	// arrays are replaced wholesale, not appended
	assert.Equal(t, []string{"2.0.0"}, cfg.Devices.AppVersions)
	assert.Equal(t, []float64{1.0}, cfg.Devices.AppVersionWeights)
	// sibling sections untouched
	assert.Equal(t, 200, cfg.Installs.Total)
}

func TestLoadConfig_LaterOverrideWins(t *testing.T) {
	base := writeTempYAML(t, "base.yaml", testConfigYAML)
	first := writeTempYAML(t, "first.yaml", "simulation:\n  seed: 1\n")
	second := writeTempYAML(t, "second.yaml", "simulation:\n  seed: 2\n")

	cfg, err := LoadConfig(base, first, second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cfg.Simulation.Seed)
}

func TestLoadConfig_RejectsUnknownKeys(t *testing.T) {
	base := writeTempYAML(t, "base.yaml", testConfigYAML)
	override := writeTempYAML(t, "typo.yaml", "simulaton:\n  seed: 9\n")

	_, err := LoadConfig(base, override)
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Accessors(t *testing.T) {
	cfg := testConfig(t)

	assert.Equal(t, "2024-01-01", cfg.StartDate().Format("2006-01-02"))
	assert.Equal(t, "2024-01-07", cfg.EndDate().Format("2006-01-02"))

	names := cfg.PlayerTypeNames()
	require.Len(t, names, 6)
	assert.True(t, sortedStrings(names), "player type names must come back sorted")

	assert.Equal(t, 0, cfg.VIPLevelForSpend(0.5))
	assert.Equal(t, 1, cfg.VIPLevelForSpend(1))
	assert.Equal(t, 2, cfg.VIPLevelForSpend(49.99))
	assert.Equal(t, 3, cfg.VIPLevelForSpend(500))

	assert.Equal(t, 10, cfg.VIPBonuses(1).EnergyBonus)
	assert.Equal(t, 0, cfg.VIPBonuses(99).EnergyBonus)

	assert.Equal(t, 15, cfg.FeatureUnlockLevel("guild", 99))
	assert.Equal(t, 7, cfg.FeatureUnlockLevel("unknown_feature", 7))

	assert.InDelta(t, 1.05, cfg.ABEffect("onboarding_length", "short", "d1_retention_mult", 1.0), 1e-9)
	assert.InDelta(t, 1.0, cfg.ABEffect("onboarding_length", "control", "d1_retention_mult", 1.0), 1e-9)
	assert.InDelta(t, 1.0, cfg.ABEffect("no_such_test", "x", "y", 1.0), 1e-9)
}

func TestConfig_BadTraffic(t *testing.T) {
	cfg := testConfig(t)
	assert.Nil(t, cfg.BadTraffic(), "disabled scenario must be nil")

	cfg.Scenarios.BadTraffic.Enabled = true
	require.NotNil(t, cfg.BadTraffic())
	assert.Equal(t, 3, cfg.BadTraffic().Day)
}

func sortedStrings(ss []string) bool {
	for i := 1; i < len(ss); i++ {
		if ss[i-1] > ss[i] {
			return false
		}
	}
	return true
}
