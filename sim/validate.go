package sim

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// shareTolerance is how far a group of shares may drift from 1.0 before the
// configuration is rejected.
const shareTolerance = 0.01

// ValidationError aggregates every configuration violation found in one pass.
// The engine never repairs invalid config; the whole list is surfaced at once
// so operators fix everything in a single round trip.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed with %d violation(s):\n  - %s",
		len(e.Violations), strings.Join(e.Violations, "\n  - "))
}

// Validate runs every configuration check and returns the full list of
// violations, each naming the offending config path. An empty slice means the
// configuration is valid.
func (c *Config) Validate() []string {
	v := &validator{cfg: c}
	v.simulation()
	v.installs()
	v.playerTypes()
	v.devices()
	v.gacha()
	v.abTests()
	v.progression()
	v.vip()
	v.output()
	return v.violations
}

// ValidateOrError wraps Validate into a single aggregated error.
func (c *Config) ValidateOrError() error {
	if violations := c.Validate(); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

type validator struct {
	cfg        *Config
	violations []string
}

func (v *validator) addf(format string, args ...any) {
	v.violations = append(v.violations, fmt.Sprintf(format, args...))
}

func (v *validator) simulation() {
	s := v.cfg.Simulation
	if _, err := time.Parse("2006-01-02", s.StartDate); err != nil {
		v.addf("simulation.start_date %q is not a valid YYYY-MM-DD date", s.StartDate)
	}
	if s.DurationDays < 1 {
		v.addf("simulation.duration_days must be a positive integer, got %d", s.DurationDays)
	} else if s.DurationDays > 365 {
		v.addf("simulation.duration_days must be <= 365, got %d", s.DurationDays)
	}
}

func (v *validator) installs() {
	ins := v.cfg.Installs
	if ins.Total < 100 {
		v.addf("installs.total should be at least 100, got %d", ins.Total)
	}
	if ins.Total > 10_000_000 {
		v.addf("installs.total should be at most 10,000,000, got %d", ins.Total)
	}
	switch ins.Distribution {
	case "uniform", "decay", "":
	default:
		v.addf("installs.distribution must be uniform or decay, got %q", ins.Distribution)
	}
	if len(ins.Sources) == 0 {
		v.addf("installs.sources must define at least one source")
		return
	}
	total := 0.0
	for _, src := range ins.Sources {
		total += src.Share
	}
	v.checkShareSum("installs.sources", total)
}

func (v *validator) playerTypes() {
	types := v.cfg.PlayerTypes
	if len(types) == 0 {
		v.addf("player_types must define at least one archetype")
		return
	}
	total := 0.0
	for _, name := range sortedKeys(types) {
		pt := types[name]
		total += pt.Share
		r := pt.Retention
		if !(r.D1 >= r.D7 && r.D7 >= r.D30 && r.D30 >= r.D90) {
			v.addf("player_types.%s.retention must satisfy d1 >= d7 >= d30 >= d90 (got d1=%v, d7=%v, d30=%v, d90=%v)",
				name, r.D1, r.D7, r.D30, r.D90)
		}
		for day, val := range map[string]float64{"d1": r.D1, "d7": r.D7, "d30": r.D30, "d90": r.D90} {
			if val < 0 || val > 1 {
				v.addf("player_types.%s.retention.%s must be between 0 and 1, got %v", name, day, val)
			}
		}
		if len(pt.SessionsPerDay) != 2 {
			v.addf("player_types.%s.sessions_per_day must be a [min, max] pair", name)
		}
		if len(pt.SessionDurationMin) != 2 {
			v.addf("player_types.%s.session_duration_min must be a [min, max] pair", name)
		}
	}
	v.checkShareSum("player_types", total)
}

func (v *validator) devices() {
	d := v.cfg.Devices
	sum := func(m map[string]float64) float64 {
		t := 0.0
		for _, s := range m {
			t += s
		}
		return t
	}
	if len(d.Platforms) > 0 {
		v.checkShareSum("devices.platforms", sum(d.Platforms))
	}
	if len(d.Countries) > 0 {
		v.checkShareSum("devices.countries", sum(d.Countries))
	}
	if len(d.AppVersions) != len(d.AppVersionWeights) {
		v.addf("devices.app_versions and devices.app_version_weights must have the same length (%d vs %d)",
			len(d.AppVersions), len(d.AppVersionWeights))
	}
	if len(d.IOSModels) == 0 {
		v.addf("devices.ios_models must not be empty")
	}
	if len(d.AndroidModels) == 0 {
		v.addf("devices.android_models must not be empty")
	}
}

func (v *validator) gacha() {
	g := v.cfg.Gacha
	rates := g.Rates.Common + g.Rates.Rare + g.Rates.Epic + g.Rates.Legendary
	v.checkShareSum("gacha.rates", rates)
	if g.Pity.SoftPityStart >= g.Pity.Threshold {
		v.addf("gacha.pity.soft_pity_start (%d) must be < threshold (%d)",
			g.Pity.SoftPityStart, g.Pity.Threshold)
	}
	if g.Pity.Threshold <= 0 {
		v.addf("gacha.pity.threshold must be positive, got %d", g.Pity.Threshold)
	}
}

func (v *validator) abTests() {
	for _, name := range v.cfg.ABTestNames() {
		t := v.cfg.ABTests[name]
		if !t.Enabled {
			continue
		}
		if len(t.Variants) != len(t.Weights) {
			v.addf("ab_tests.%s: variants and weights must have the same length (%d vs %d)",
				name, len(t.Variants), len(t.Weights))
			continue
		}
		total := 0.0
		for _, w := range t.Weights {
			total += w
		}
		v.checkShareSum("ab_tests."+name+".weights", total)
	}
}

func (v *validator) progression() {
	p := v.cfg.Progression
	maxLevel := p.PlayerLevel.Max
	if maxLevel <= 0 {
		v.addf("progression.player_level.max must be positive, got %d", maxLevel)
	}
	for _, feature := range sortedKeys(p.Unlocks) {
		if lvl := p.Unlocks[feature]; lvl > maxLevel {
			v.addf("progression.unlocks.%s (%d) exceeds player_level.max (%d)", feature, lvl, maxLevel)
		}
	}
	if p.Chapters <= 0 || p.StagesPerChapter <= 0 {
		v.addf("progression.chapters and progression.stages_per_chapter must be positive")
	}
}

func (v *validator) vip() {
	levels := v.cfg.VIP.Levels
	names := make([]int, 0, len(levels))
	for name := range levels {
		names = append(names, atoiSafe(name))
	}
	sort.Ints(names)
	prev := -1.0
	for _, n := range names {
		threshold := levels[fmt.Sprint(n)].Threshold
		if threshold < prev {
			v.addf("vip.levels.%d.threshold (%v) must be >= the previous level's threshold (%v)", n, threshold, prev)
		}
		prev = threshold
	}
}

func (v *validator) output() {
	switch v.cfg.Output.Format {
	case "jsonl", "sqlite", "both", "":
	default:
		v.addf("output.format must be jsonl, sqlite or both, got %q", v.cfg.Output.Format)
	}
	switch v.cfg.Output.Compression {
	case "gzip", "none", "":
	default:
		v.addf("output.compression must be gzip or none, got %q", v.cfg.Output.Compression)
	}
}

func (v *validator) checkShareSum(path string, total float64) {
	if math.Abs(total-1.0) > shareTolerance {
		v.addf("%s shares sum to %.4f, expected 1.0", path, total)
	}
}
