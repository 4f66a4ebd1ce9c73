package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ValidConfigPasses(t *testing.T) {
	cfg := testConfig(t)
	assert.Empty(t, cfg.Validate())
	assert.NoError(t, cfg.ValidateOrError())
}

func TestValidate_CollectsAllViolationsAtOnce(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.DurationDays = 0
	cfg.Gacha.Rates.Legendary = 0.5
	cfg.Output.Format = "parquet"

	violations := cfg.Validate()
	assert.GreaterOrEqual(t, len(violations), 3,
		"all violations must be reported together, got %v", violations)

	err := cfg.ValidateOrError()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "violation")
}

func TestValidate_Simulation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad date", func(c *Config) { c.Simulation.StartDate = "01/01/2024" }, "start_date"},
		{"zero duration", func(c *Config) { c.Simulation.DurationDays = 0 }, "duration_days"},
		{"over a year", func(c *Config) { c.Simulation.DurationDays = 400 }, "duration_days"},
		{"too few installs", func(c *Config) { c.Installs.Total = 10 }, "installs.total"},
		{"unknown distribution", func(c *Config) { c.Installs.Distribution = "spike" }, "distribution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			assertViolation(t, cfg, tt.want)
		})
	}
}

func TestValidate_ShareSums(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"source shares", func(c *Config) {
			s := c.Installs.Sources["organic"]
			s.Share = 0.9
			c.Installs.Sources["organic"] = s
		}, "installs.sources"},
		{"player type shares", func(c *Config) {
			p := c.PlayerTypes["whale"]
			p.Share = 0.5
			c.PlayerTypes["whale"] = p
		}, "player_types"},
		{"platform shares", func(c *Config) { c.Devices.Platforms["ios"] = 0.9 }, "devices.platforms"},
		{"country shares", func(c *Config) { c.Devices.Countries["US"] = 0.9 }, "devices.countries"},
		{"gacha rates", func(c *Config) { c.Gacha.Rates.Common = 0.5 }, "gacha.rates"},
		{"ab weights", func(c *Config) {
			ab := c.ABTests["gacha_pity_display"]
			ab.Weights = []float64{0.5, 0.4}
			c.ABTests["gacha_pity_display"] = ab
		}, "ab_tests.gacha_pity_display"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			assertViolation(t, cfg, tt.want)
		})
	}
}

func TestValidate_DisabledTestWeightsIgnored(t *testing.T) {
	cfg := testConfig(t)
	bad := cfg.ABTests["gacha_pity_display"]
	bad.Enabled = false
	bad.Weights = []float64{0.1, 0.1}
	cfg.ABTests["gacha_pity_display"] = bad

	assert.Empty(t, cfg.Validate(), "disabled tests are not validated")
}

func TestValidate_RetentionOrdering(t *testing.T) {
	cfg := testConfig(t)
	p := cfg.PlayerTypes["whale"]
	p.Retention.D7 = 0.95 // above d1
	cfg.PlayerTypes["whale"] = p
	assertViolation(t, cfg, "retention")
}

func TestValidate_PityOrdering(t *testing.T) {
	cfg := testConfig(t)
	cfg.Gacha.Pity.SoftPityStart = 90
	assertViolation(t, cfg, "soft_pity_start")
}

func TestValidate_UnlockBeyondMaxLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Progression.Unlocks["guild"] = 200
	assertViolation(t, cfg, "progression.unlocks.guild")
}

func TestValidate_VIPThresholdsMonotonic(t *testing.T) {
	cfg := testConfig(t)
	lv := cfg.VIP.Levels["2"]
	lv.Threshold = 0.5 // below level 1's threshold
	cfg.VIP.Levels["2"] = lv
	assertViolation(t, cfg, "vip.levels")
}

func TestValidate_Output(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.Compression = "zstd"
	assertViolation(t, cfg, "compression")
}

func assertViolation(t *testing.T, cfg *Config, substr string) {
	t.Helper()
	violations := cfg.Validate()
	for _, v := range violations {
		if strings.Contains(v, substr) {
			return
		}
	}
	t.Errorf("no violation mentioning %q in %v", substr, violations)
}
