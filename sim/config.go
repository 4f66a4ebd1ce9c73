package sim

import (
	"sort"
	"time"
)

// Config is the fully typed simulation configuration tree.
// Loaded from YAML via LoadConfig(base, overrides); the engine only ever reads
// it through typed accessors and never mutates it after validation.
type Config struct {
	Simulation  SimulationParams            `yaml:"simulation"`
	Installs    InstallsConfig              `yaml:"installs"`
	PlayerTypes map[string]PlayerTypeConfig `yaml:"player_types"`
	Economy     EconomyConfig               `yaml:"economy"`
	Gacha       GachaConfig                 `yaml:"gacha"`
	Shop        ShopConfig                  `yaml:"shop"`
	VIP         VIPConfig                   `yaml:"vip"`
	Progression ProgressionConfig           `yaml:"progression"`
	Heroes      HeroesConfig                `yaml:"heroes"`
	Social      SocialConfig                `yaml:"social"`
	ABTests     map[string]ABTestConfig     `yaml:"ab_tests"`
	Devices     DevicesConfig               `yaml:"devices"`
	Scenarios   ScenariosConfig             `yaml:"scenarios"`
	Output      OutputConfig                `yaml:"output"`

	// raw holds the merged base+override mapping the typed tree was decoded
	// from. Kept only for the metadata config hash and snapshot.
	raw map[string]any
}

// SimulationParams describes the run window and seed.
type SimulationParams struct {
	Seed         int64  `yaml:"seed"`
	StartDate    string `yaml:"start_date"` // YYYY-MM-DD
	DurationDays int    `yaml:"duration_days"`
}

// InstallsConfig describes the install volume and its daily distribution.
type InstallsConfig struct {
	Total        int                            `yaml:"total"`
	Distribution string                         `yaml:"distribution"` // uniform | decay
	DecayRate    float64                        `yaml:"decay_rate"`
	Sources      map[string]InstallSourceConfig `yaml:"sources"`
}

// InstallSourceConfig is one acquisition channel.
type InstallSourceConfig struct {
	Share                float64 `yaml:"share"`
	RetentionModifier    float64 `yaml:"retention_modifier"`
	MonetizationModifier float64 `yaml:"monetization_modifier"`
}

// RetentionAnchors are the configured retention curve anchor points.
type RetentionAnchors struct {
	D1  float64 `yaml:"d1"`
	D7  float64 `yaml:"d7"`
	D30 float64 `yaml:"d30"`
	D90 float64 `yaml:"d90"`
}

// PlayerTypeConfig is one behavioral archetype.
type PlayerTypeConfig struct {
	Share              float64          `yaml:"share"`
	Retention          RetentionAnchors `yaml:"retention"`
	SessionsPerDay     []float64        `yaml:"sessions_per_day"`     // [min, max]
	SessionDurationMin []float64        `yaml:"session_duration_min"` // [min, max] minutes
	GachaDesire        float64          `yaml:"gacha_desire"`
	AdWatchProbability float64          `yaml:"ad_watch_probability"`
	GuildEngagement    float64          `yaml:"guild_engagement"`
	ArenaEngagement    float64          `yaml:"arena_engagement"`
}

// EconomyConfig groups currency rules and reward formulas.
type EconomyConfig struct {
	Initial     InitialBalances `yaml:"initial"`
	Energy      EnergyRules     `yaml:"energy"`
	StageReward StageRewardRule `yaml:"stage_rewards"`
	IdleReward  IdleRewardRule  `yaml:"idle_rewards"`
	HeroLevelup HeroLevelupRule `yaml:"hero_levelup"`
}

type InitialBalances struct {
	Gold          int `yaml:"gold"`
	Gems          int `yaml:"gems"`
	SummonTickets int `yaml:"summon_tickets"`
	Energy        int `yaml:"energy"`
}

type EnergyRules struct {
	Max          int `yaml:"max"`
	RegenMinutes int `yaml:"regen_minutes"` // minutes per point
	StageCost    int `yaml:"stage_cost"`
}

type StageRewardRule struct {
	GoldBase       int `yaml:"gold_base"`
	GoldPerChapter int `yaml:"gold_per_chapter"`
	ExpBase        int `yaml:"exp_base"`
	ExpPerChapter  int `yaml:"exp_per_chapter"`
}

type IdleRewardRule struct {
	GoldPerHourBase  int     `yaml:"gold_per_hour_base"`
	GoldPerStageMult float64 `yaml:"gold_per_stage_mult"`
	MaxHours         float64 `yaml:"max_hours"`
}

type HeroLevelupRule struct {
	GoldBase         int     `yaml:"gold_base"`
	GoldPerLevelMult float64 `yaml:"gold_per_level_mult"`
}

// RarityRates are per-rarity pull probabilities; they must sum to 1.0.
type RarityRates struct {
	Common    float64 `yaml:"common"`
	Rare      float64 `yaml:"rare"`
	Epic      float64 `yaml:"epic"`
	Legendary float64 `yaml:"legendary"`
}

// PityRules configure the soft/hard pity mechanism.
type PityRules struct {
	Threshold         int     `yaml:"threshold"`
	SoftPityStart     int     `yaml:"soft_pity_start"`
	SoftPityRateBoost float64 `yaml:"soft_pity_rate_boost"`
}

// GachaConfig groups summon costs, rarity rates and pity.
type GachaConfig struct {
	SingleGems int         `yaml:"single_gems"`
	MultiGems  int         `yaml:"multi_gems"`
	Rates      RarityRates `yaml:"rates"`
	Pity       PityRules   `yaml:"pity"`
}

// ProductConfig is one IAP product.
type ProductConfig struct {
	PriceUSD      float64 `yaml:"price_usd"`
	Gems          int     `yaml:"gems"`
	GemsImmediate int     `yaml:"gems_immediate"`
	GemsDaily     int     `yaml:"gems_daily"`
	SummonTickets int     `yaml:"summon_tickets"`
}

type AdRules struct {
	RewardGems      int `yaml:"reward_gems"`
	MaxPerDay       int `yaml:"max_per_day"`
	CooldownMinutes int `yaml:"cooldown_minutes"`
}

type ShopConfig struct {
	Products map[string]ProductConfig `yaml:"products"`
	Ads      AdRules                  `yaml:"ads"`
}

// VIPLevel is one spend tier. Thresholds must be monotonically increasing.
type VIPLevel struct {
	Threshold   float64 `yaml:"threshold"`
	EnergyBonus int     `yaml:"energy_bonus"`
	GoldBonus   float64 `yaml:"gold_bonus"`
}

type VIPConfig struct {
	Levels map[string]VIPLevel `yaml:"levels"` // keys are numeric strings
}

type PlayerLevelRule struct {
	Max             int     `yaml:"max"`
	ExpPerLevelBase int     `yaml:"exp_per_level_base"`
	ExpPerLevelMult float64 `yaml:"exp_per_level_mult"`
}

type StagePowerRule struct {
	Base         int     `yaml:"base"`
	PerStageMult float64 `yaml:"per_stage_mult"`
}

type ProgressionConfig struct {
	Chapters         int             `yaml:"chapters"`
	StagesPerChapter int             `yaml:"stages_per_chapter"`
	Unlocks          map[string]int  `yaml:"unlocks"`
	PlayerLevel      PlayerLevelRule `yaml:"player_level"`
	StagePower       StagePowerRule  `yaml:"stage_power"`
}

type HeroesConfig struct {
	Pool      map[string]int `yaml:"pool"`       // per-rarity catalog sizes
	BasePower map[string]int `yaml:"base_power"` // per-rarity base power
}

type ArenaRules struct {
	DailyAttempts   int `yaml:"daily_attempts"`
	AttemptCostGems int `yaml:"attempt_cost_gems"`
	RatingStart     int `yaml:"rating_start"`
	RatingKFactor   int `yaml:"rating_k_factor"`
}

type GuildRules struct {
	Count      int `yaml:"count"`
	MaxMembers int `yaml:"max_members"`
}

type SocialConfig struct {
	Arena  ArenaRules `yaml:"arena"`
	Guilds GuildRules `yaml:"guilds"`
}

// ABTestConfig is one experiment definition. Effects are keyed by variant and
// hold named numeric multipliers/overrides consumed by the behavior model.
type ABTestConfig struct {
	Enabled             bool                          `yaml:"enabled"`
	Variants            []string                      `yaml:"variants"`
	Weights             []float64                     `yaml:"weights"`
	ActivationCondition map[string]int                `yaml:"activation_condition"`
	Effects             map[string]map[string]float64 `yaml:"effects"`
}

// DeferredByInstallAge reports whether assignment waits for a
// days_since_install condition instead of happening at install time.
func (t ABTestConfig) DeferredByInstallAge() bool {
	_, ok := t.ActivationCondition["days_since_install"]
	return ok
}

type DevicesConfig struct {
	Platforms         map[string]float64 `yaml:"platforms"`
	Countries         map[string]float64 `yaml:"countries"`
	IOSModels         []string           `yaml:"ios_models"`
	AndroidModels     []string           `yaml:"android_models"`
	AppVersions       []string           `yaml:"app_versions"`
	AppVersionWeights []float64          `yaml:"app_version_weights"`
}

// BadTrafficConfig injects anomalous installs on one specific day.
type BadTrafficConfig struct {
	Enabled              bool    `yaml:"enabled"`
	Day                  int     `yaml:"day"`
	Volume               int     `yaml:"volume"`
	SourceName           string  `yaml:"source_name"`
	BotRatio             float64 `yaml:"bot_ratio"`
	RetentionModifier    float64 `yaml:"retention_modifier"`
	MonetizationModifier float64 `yaml:"monetization_modifier"`
}

type ScenariosConfig struct {
	BadTraffic *BadTrafficConfig `yaml:"bad_traffic"`
}

type OutputConfig struct {
	Format          string `yaml:"format"`      // jsonl | sqlite | both
	Compression     string `yaml:"compression"` // gzip | none
	BatchSize       int    `yaml:"batch_size"`
	IncludeMetadata bool   `yaml:"include_metadata"`
}

// === Typed accessors ===
//
// Every accessor over a YAML mapping iterates in ascending key order so that
// weighted sampling consumes the random stream in a stable, documented order.
// Go map iteration order must never leak into the engine.

// StartDate parses the configured start date. Validation guarantees it parses.
func (c *Config) StartDate() time.Time {
	t, err := time.Parse("2006-01-02", c.Simulation.StartDate)
	if err != nil {
		panic("sim: start_date not validated: " + err.Error())
	}
	return t.UTC()
}

// EndDate is the last simulated calendar day.
func (c *Config) EndDate() time.Time {
	return c.StartDate().AddDate(0, 0, c.Simulation.DurationDays-1)
}

// PlayerTypeNames returns archetype names in sorted order.
func (c *Config) PlayerTypeNames() []string {
	return sortedKeys(c.PlayerTypes)
}

// InstallSourceNames returns install source names in sorted order.
func (c *Config) InstallSourceNames() []string {
	return sortedKeys(c.Installs.Sources)
}

// CountryNames returns countries in sorted order.
func (c *Config) CountryNames() []string {
	return sortedKeys(c.Devices.Countries)
}

// ABTestNames returns experiment names in sorted order.
func (c *Config) ABTestNames() []string {
	return sortedKeys(c.ABTests)
}

// BadTraffic returns the bad-traffic scenario if enabled, else nil.
func (c *Config) BadTraffic() *BadTrafficConfig {
	if c.Scenarios.BadTraffic != nil && c.Scenarios.BadTraffic.Enabled {
		return c.Scenarios.BadTraffic
	}
	return nil
}

// VIPLevelForSpend maps cumulative spend to the highest qualifying VIP level.
func (c *Config) VIPLevelForSpend(totalSpent float64) int {
	level := 0
	for _, name := range sortedKeys(c.VIP.Levels) {
		n := atoiSafe(name)
		if totalSpent >= c.VIP.Levels[name].Threshold && n > level {
			level = n
		}
	}
	return level
}

// VIPBonuses returns the bonuses for a VIP level (zero values if unknown).
func (c *Config) VIPBonuses(level int) VIPLevel {
	for name, lv := range c.VIP.Levels {
		if atoiSafe(name) == level {
			return lv
		}
	}
	return VIPLevel{}
}

// FeatureUnlockLevel returns the player level gating a feature, with a
// fallback used when the config omits the entry.
func (c *Config) FeatureUnlockLevel(feature string, fallback int) int {
	if lvl, ok := c.Progression.Unlocks[feature]; ok {
		return lvl
	}
	return fallback
}

// ABTest returns the config for a test, and whether it exists and is enabled.
func (c *Config) ABTest(name string) (ABTestConfig, bool) {
	t, ok := c.ABTests[name]
	if !ok || !t.Enabled {
		return ABTestConfig{}, false
	}
	return t, true
}

// ABEffect returns one named effect value for the variant an agent holds,
// falling back to def when the test, variant, or effect is absent.
func (c *Config) ABEffect(test, variant, effect string, def float64) float64 {
	t, ok := c.ABTests[test]
	if !ok {
		return def
	}
	ve, ok := t.Effects[variant]
	if !ok {
		return def
	}
	v, ok := ve[effect]
	if !ok {
		return def
	}
	return v
}

// Raw returns the merged raw mapping the config was decoded from.
// Used only for the metadata config hash/snapshot.
func (c *Config) Raw() map[string]any {
	return c.raw
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
