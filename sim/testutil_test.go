package sim

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// testConfigYAML is a compact but complete configuration used across the
// package tests: every archetype present, small catalog, one week of installs.
const testConfigYAML = `
simulation:
  seed: 42
  start_date: "2024-01-01"
  duration_days: 7
installs:
  total: 200
  distribution: uniform
  decay_rate: 0.02
  sources:
    organic:
      share: 0.6
      retention_modifier: 1.1
      monetization_modifier: 1.0
    paid:
      share: 0.4
      retention_modifier: 0.9
      monetization_modifier: 1.2
player_types:
  whale:
    share: 0.05
    retention: {d1: 0.9, d7: 0.75, d30: 0.6, d90: 0.5}
    sessions_per_day: [3, 6]
    session_duration_min: [10, 30]
    gacha_desire: 0.6
    ad_watch_probability: 0.1
    guild_engagement: 0.8
    arena_engagement: 0.7
  dolphin:
    share: 0.10
    retention: {d1: 0.8, d7: 0.6, d30: 0.45, d90: 0.3}
    sessions_per_day: [2, 5]
    session_duration_min: [8, 20]
    gacha_desire: 0.5
    ad_watch_probability: 0.2
    guild_engagement: 0.7
    arena_engagement: 0.6
  minnow:
    share: 0.15
    retention: {d1: 0.7, d7: 0.5, d30: 0.3, d90: 0.2}
    sessions_per_day: [2, 4]
    session_duration_min: [5, 15]
    gacha_desire: 0.4
    ad_watch_probability: 0.4
    guild_engagement: 0.5
    arena_engagement: 0.5
  free_engaged:
    share: 0.20
    retention: {d1: 0.65, d7: 0.45, d30: 0.25, d90: 0.15}
    sessions_per_day: [1, 3]
    session_duration_min: [5, 15]
    gacha_desire: 0.45
    ad_watch_probability: 0.6
    guild_engagement: 0.5
    arena_engagement: 0.4
  free_casual:
    share: 0.30
    retention: {d1: 0.45, d7: 0.25, d30: 0.1, d90: 0.05}
    sessions_per_day: [1, 2]
    session_duration_min: [3, 10]
    gacha_desire: 0.3
    ad_watch_probability: 0.5
    guild_engagement: 0.3
    arena_engagement: 0.25
  free_churner:
    share: 0.20
    retention: {d1: 0.25, d7: 0.08, d30: 0.02, d90: 0.01}
    sessions_per_day: [1, 2]
    session_duration_min: [2, 8]
    gacha_desire: 0.2
    ad_watch_probability: 0.3
    guild_engagement: 0.1
    arena_engagement: 0.1
economy:
  initial: {gold: 10000, gems: 300, summon_tickets: 10, energy: 120}
  energy: {max: 120, regen_minutes: 5, stage_cost: 6}
  stage_rewards: {gold_base: 100, gold_per_chapter: 50, exp_base: 10, exp_per_chapter: 5}
  idle_rewards: {gold_per_hour_base: 200, gold_per_stage_mult: 0.1, max_hours: 12}
  hero_levelup: {gold_base: 100, gold_per_level_mult: 1.15}
gacha:
  single_gems: 300
  multi_gems: 2700
  rates: {common: 0.898, rare: 0.08, epic: 0.02, legendary: 0.002}
  pity: {threshold: 90, soft_pity_start: 75, soft_pity_rate_boost: 0.06}
shop:
  products:
    starter_pack: {price_usd: 0.99, gems: 500, summon_tickets: 5}
    gems_tier1: {price_usd: 0.99, gems: 100}
    gems_tier2: {price_usd: 4.99, gems: 550}
    gems_tier3: {price_usd: 9.99, gems: 1200}
    gems_tier4: {price_usd: 49.99, gems: 6500}
    gems_tier5: {price_usd: 99.99, gems: 14000}
    monthly_pass: {price_usd: 9.99, gems_immediate: 300, gems_daily: 100}
  ads: {reward_gems: 50, max_per_day: 5, cooldown_minutes: 30}
vip:
  levels:
    "1": {threshold: 1, energy_bonus: 10, gold_bonus: 0.05}
    "2": {threshold: 10, energy_bonus: 20, gold_bonus: 0.1}
    "3": {threshold: 50, energy_bonus: 30, gold_bonus: 0.15}
progression:
  chapters: 10
  stages_per_chapter: 10
  unlocks: {daily_quests: 5, arena: 10, guild: 15}
  player_level: {max: 100, exp_per_level_base: 100, exp_per_level_mult: 1.12}
  stage_power: {base: 500, per_stage_mult: 1.08}
heroes:
  pool: {common: 10, rare: 8, epic: 5, legendary: 3}
  base_power: {common: 100, rare: 200, epic: 400, legendary: 800}
social:
  arena: {daily_attempts: 5, attempt_cost_gems: 50, rating_start: 1000, rating_k_factor: 32}
  guilds: {count: 10, max_members: 30}
ab_tests:
  onboarding_length:
    enabled: true
    variants: [control, short, extended]
    weights: [0.34, 0.33, 0.33]
    effects:
      short: {d1_retention_mult: 1.05, d7_retention_mult: 0.97}
      extended: {d1_retention_mult: 0.95, d7_retention_mult: 1.03}
  gacha_pity_display:
    enabled: true
    variants: [hidden, visible]
    weights: [0.5, 0.5]
  late_game_offer:
    enabled: true
    variants: [control, offer]
    weights: [0.5, 0.5]
    activation_condition: {days_since_install: 30}
    effects:
      offer: {d30_d60_retention_mult: 1.05, iap_conversion_mult: 1.2}
devices:
  platforms: {ios: 0.45, android: 0.55}
  countries: {US: 0.5, JP: 0.2, other: 0.3}
  ios_models: [iPhone 14, iPhone 15]
  android_models: [Pixel 7, Galaxy S23]
  app_versions: ["1.0.0", "1.1.0"]
  app_version_weights: [0.4, 0.6]
scenarios:
  bad_traffic:
    enabled: false
    day: 3
    volume: 50
    source_name: adnet_x
    bot_ratio: 0.7
    retention_modifier: 0.4
    monetization_modifier: 0.1
output:
  format: jsonl
  compression: none
  batch_size: 500
  include_metadata: true
`

// testConfig decodes the shared test configuration and fails the test on any
// violation, so every test starts from a known-valid config.
func testConfig(t *testing.T) *Config {
	t.Helper()
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(testConfigYAML), &raw); err != nil {
		t.Fatalf("unmarshal test config: %v", err)
	}
	cfg, err := decodeConfig(raw)
	if err != nil {
		t.Fatalf("decode test config: %v", err)
	}
	if violations := cfg.Validate(); len(violations) > 0 {
		t.Fatalf("test config invalid: %v", violations)
	}
	return cfg
}
