package sink

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/idlesim/idlesim/sim"
)

const generatorVersion = "0.1.0"

// Metadata is the run manifest written alongside the event files.
type Metadata struct {
	GeneratorVersion string           `json:"generator_version"`
	GeneratedAt      string           `json:"generated_at"`
	ConfigHash       string           `json:"config_hash"`
	Seed             int64            `json:"seed"`
	Simulation       MetadataWindow   `json:"simulation"`
	Stats            MetadataStats    `json:"stats"`
	ConfigSnapshot   map[string]any   `json:"config_snapshot"`
}

// MetadataWindow is the simulated calendar window.
type MetadataWindow struct {
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	DurationDays int    `json:"duration_days"`
}

// MetadataStats are the aggregate counters of the run.
type MetadataStats struct {
	TotalInstalls        int            `json:"total_installs"`
	TotalEvents          int            `json:"total_events"`
	UniqueUsers          int            `json:"unique_users"`
	EventsByType         map[string]int `json:"events_by_type"`
	InstallsBySource     map[string]int `json:"installs_by_source"`
	InstallsByPlayerType map[string]int `json:"installs_by_player_type"`
}

// configHash derives the canonical hash of the merged raw config mapping.
// encoding/json sorts map keys, so the hash is stable across runs.
func configHash(cfg *sim.Config) (string, error) {
	data, err := json.Marshal(cfg.Raw())
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data)), nil
}

// writeMetadata renders metadata.json into dir.
func writeMetadata(dir string, cfg *sim.Config, stats MetadataStats, generatedAt time.Time) error {
	hash, err := configHash(cfg)
	if err != nil {
		return err
	}
	meta := Metadata{
		GeneratorVersion: generatorVersion,
		GeneratedAt:      generatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		ConfigHash:       hash,
		Seed:             cfg.Simulation.Seed,
		Simulation: MetadataWindow{
			StartDate:    cfg.Simulation.StartDate,
			EndDate:      cfg.EndDate().Format("2006-01-02"),
			DurationDays: cfg.Simulation.DurationDays,
		},
		Stats:          stats,
		ConfigSnapshot: cfg.Raw(),
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644)
}
