package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlesim/idlesim/sim"
)

// TestDefaultConfig_Valid verifies the shipped default configuration loads
// and passes every validation check.
func TestDefaultConfig_Valid(t *testing.T) {
	cfg, err := sim.LoadConfig("../configs/default.yaml")
	require.NoError(t, err)
	assert.NoError(t, cfg.ValidateOrError())
}

// TestSmokeOverride_Valid verifies the smoke override merges cleanly over the
// default config.
func TestSmokeOverride_Valid(t *testing.T) {
	cfg, err := sim.LoadConfig("../configs/default.yaml", "../configs/smoke.yaml")
	require.NoError(t, err)
	require.NoError(t, cfg.ValidateOrError())

	assert.Equal(t, 7, cfg.Simulation.DurationDays)
	assert.Equal(t, 500, cfg.Installs.Total)
	assert.Equal(t, "none", cfg.Output.Compression)
	// untouched sections keep their base values
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Len(t, cfg.PlayerTypes, 6)
}

func TestDiscardSink(t *testing.T) {
	var s sim.RecordSink = discardSink{}
	assert.NoError(t, s.WriteRecords(nil))
	s.RecordInstall("organic", "whale")
}
