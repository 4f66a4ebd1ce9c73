package sim

import (
	"math"
	"time"
)

// sessionTimeBucket is one slot of the daily play-time distribution.
type sessionTimeBucket struct {
	startHour int
	endHour   int
	weight    float64
}

// sessionTimeBuckets shape when during the day sessions start. Evening peak
// dominates, with a lunch bump and a commute bump.
var sessionTimeBuckets = []sessionTimeBucket{
	{0, 7, 0.05},
	{7, 9, 0.15},
	{9, 12, 0.10},
	{12, 14, 0.20},
	{14, 18, 0.10},
	{18, 21, 0.25},
	{21, 24, 0.15},
}

// iapTriggerRates are the base conversion probabilities per purchase trigger.
var iapTriggerRates = map[string]float64{
	"starter_pack_offer":    0.15,
	"out_of_gems_gacha":     0.08,
	"out_of_energy":         0.03,
	"pity_close":            0.12,
	"limited_banner_ending": 0.10,
	"stuck_progression":     0.05,
	"monthly_pass_reminder": 0.20,
	"late_game_offer":       0.10,
}

// iapTypeMultipliers scale trigger rates by archetype.
var iapTypeMultipliers = map[PlayerType]float64{
	PlayerWhale:       3.0,
	PlayerDolphin:     1.5,
	PlayerMinnow:      0.8,
	PlayerFreeEngaged: 0.1,
	PlayerFreeCasual:  0.05,
	PlayerFreeChurner: 0.02,
}

// GachaPull describes a chosen pull: how many, paid with what.
type GachaPull struct {
	Type     string // "single", "multi", "none"
	Currency string // "tickets", "gems"
	Count    int
}

// Behavior is the stateless decision model shared by all agents. Every
// method draws from the run stream in a fixed order.
type Behavior struct {
	cfg *Config
}

// NewBehavior creates the decision model for a config.
func NewBehavior(cfg *Config) *Behavior {
	return &Behavior{cfg: cfg}
}

// RetentionProbability is the chance an agent opens the game on a given day
// since install. The configured d1/d7/d30/d90 anchors are linearly
// interpolated, decaying 20% past d90, then behavioral modifiers apply. The
// result is clamped to 0.99 so no cohort retains forever.
func (b *Behavior) RetentionProbability(agent *AgentState, daysSinceInstall int) float64 {
	if daysSinceInstall == 0 {
		return 1.0
	}
	r := b.cfg.PlayerTypes[string(agent.AgentType)].Retention

	var base float64
	switch {
	case daysSinceInstall == 1:
		base = r.D1
	case daysSinceInstall <= 7:
		t := float64(daysSinceInstall-1) / 6
		base = r.D1*(1-t) + r.D7*t
	case daysSinceInstall <= 30:
		t := float64(daysSinceInstall-7) / 23
		base = r.D7*(1-t) + r.D30*t
	case daysSinceInstall <= 90:
		t := float64(daysSinceInstall-30) / 60
		base = r.D30*(1-t) + r.D90*t
	default:
		base = r.D90 * 0.8
	}

	mod := agent.SourceRetentionMod
	mod *= b.abRetentionModifier(agent, daysSinceInstall)
	if agent.ConsecutiveLosses > 3 {
		mod *= 0.85
	}
	if agent.GotLegendaryRecently {
		mod *= 1.15
	}
	if agent.GuildID != "" {
		mod *= 1.10
	}
	if agent.IsBot {
		mod *= 0.3
	}

	return math.Min(base*mod, 0.99)
}

func (b *Behavior) abRetentionModifier(agent *AgentState, day int) float64 {
	mod := 1.0

	if variant, ok := agent.ABTests["onboarding_length"]; ok {
		if day == 1 {
			mod *= b.cfg.ABEffect("onboarding_length", variant, "d1_retention_mult", 1.0)
		} else if day <= 7 {
			mod *= b.cfg.ABEffect("onboarding_length", variant, "d7_retention_mult", 1.0)
		}
	}
	if variant, ok := agent.ABTests["late_game_offer"]; ok && day >= 30 && day <= 60 {
		mod *= b.cfg.ABEffect("late_game_offer", variant, "d30_d60_retention_mult", 1.0)
	}
	return mod
}

// WillReturnToday decides whether a non-churned agent plays on the given day.
func (b *Behavior) WillReturnToday(agent *AgentState, day time.Time, s *Stream) bool {
	if agent.IsChurned {
		return false
	}
	days := int(day.Sub(agent.InstallDate).Hours() / 24)
	return s.Chance(b.RetentionProbability(agent, days))
}

// SessionsCount decides how many sessions the agent plays today.
func (b *Behavior) SessionsCount(agent *AgentState, day time.Time, s *Stream) int {
	rng := b.cfg.PlayerTypes[string(agent.AgentType)].SessionsPerDay
	min, max := rng[0], rng[1]

	base := s.Triangular(min, max, min*1.2)
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		base *= 1.2
	}
	if variant, ok := agent.ABTests["energy_regen_rate"]; ok {
		base *= b.cfg.ABEffect("energy_regen_rate", variant, "sessions_mult", 1.0)
	}
	if agent.IsBot {
		base = float64(s.IntBetween(1, 2))
	}
	n := int(math.Round(base))
	if n < 1 {
		n = 1
	}
	return n
}

// SessionStartOffset picks a time of day for a session start, as an offset
// from midnight.
func (b *Behavior) SessionStartOffset(s *Stream) time.Duration {
	v := s.Float64()
	cum := 0.0
	for _, bucket := range sessionTimeBuckets {
		cum += bucket.weight
		if v < cum {
			hour := s.IntBetween(bucket.startHour, bucket.endHour-1)
			minute := s.IntBetween(0, 59)
			second := s.IntBetween(0, 59)
			return time.Duration(hour)*time.Hour +
				time.Duration(minute)*time.Minute +
				time.Duration(second)*time.Second
		}
	}
	return 12 * time.Hour
}

// SessionDurationMinutes decides how long a session lasts. The first session
// of the day skews long, repeat sessions skew short.
func (b *Behavior) SessionDurationMinutes(agent *AgentState, sessionNumber int, s *Stream) int {
	rng := b.cfg.PlayerTypes[string(agent.AgentType)].SessionDurationMin
	min, max := rng[0], rng[1]

	var base float64
	if sessionNumber == 1 {
		base = s.Triangular(min, max, max*0.7)
	} else {
		base = s.Triangular(min, max*0.7, min*1.3)
	}
	if agent.IsBot {
		base = float64(s.IntBetween(2, 5))
	}
	n := int(math.Round(base))
	if n < 2 {
		n = 2
	}
	return n
}

// ShouldDoGacha decides whether the agent heads for the summon screen.
// Desire rises as the pity counter approaches the threshold.
func (b *Behavior) ShouldDoGacha(agent *AgentState, s *Stream) bool {
	canAfford := agent.Gems >= b.cfg.Gacha.SingleGems || agent.SummonTickets >= 1
	if !canAfford {
		return false
	}

	desire := b.cfg.PlayerTypes[string(agent.AgentType)].GachaDesire
	if agent.PityCounter >= 75 {
		desire += 0.4
	} else if agent.PityCounter >= 50 {
		desire += 0.2
	}
	if agent.ABTests["gacha_pity_display"] == "visible" && agent.PityCounter >= 50 {
		desire += 0.15
	}
	return s.Chance(desire)
}

// GachaPullType picks a pull size and currency. Tickets are preferred over
// gems, and only spenders burn gems on multis.
func (b *Behavior) GachaPullType(agent *AgentState) GachaPull {
	switch {
	case agent.SummonTickets >= 10:
		return GachaPull{Type: "multi", Currency: "tickets", Count: 10}
	case agent.Gems >= b.cfg.Gacha.MultiGems &&
		(agent.AgentType == PlayerWhale || agent.AgentType == PlayerDolphin):
		return GachaPull{Type: "multi", Currency: "gems", Count: 10}
	case agent.SummonTickets >= 1:
		return GachaPull{Type: "single", Currency: "tickets", Count: 1}
	case agent.Gems >= b.cfg.Gacha.SingleGems:
		return GachaPull{Type: "single", Currency: "gems", Count: 1}
	}
	return GachaPull{Type: "none"}
}

// RollGacha resolves one pull's rarity under the pity rules. At
// threshold-1 the pull is a guaranteed legendary; from soft_pity_start the
// legendary rate grows linearly while the other rarities renormalize.
func (b *Behavior) RollGacha(agent *AgentState, s *Stream) HeroRarity {
	g := b.cfg.Gacha
	pity := agent.PityCounter

	if pity >= g.Pity.Threshold-1 {
		return RarityLegendary
	}

	rates := map[HeroRarity]float64{
		RarityCommon:    g.Rates.Common,
		RarityRare:      g.Rates.Rare,
		RarityEpic:      g.Rates.Epic,
		RarityLegendary: g.Rates.Legendary,
	}
	if pity >= g.Pity.SoftPityStart {
		boost := float64(pity-g.Pity.SoftPityStart+1) * g.Pity.SoftPityRateBoost
		rates[RarityLegendary] = math.Min(rates[RarityLegendary]+boost, 1.0)

		remaining := 1.0 - rates[RarityLegendary]
		rest := rates[RarityCommon] + rates[RarityRare] + rates[RarityEpic]
		if rest > 0 {
			factor := remaining / rest
			rates[RarityCommon] *= factor
			rates[RarityRare] *= factor
			rates[RarityEpic] *= factor
		}
	}

	v := s.Float64()
	cum := 0.0
	for _, rarity := range rarityRollOrder {
		cum += rates[rarity]
		if v < cum {
			return rarity
		}
	}
	return RarityCommon
}

// ShouldWatchAd decides whether the agent watches a rewarded ad.
func (b *Behavior) ShouldWatchAd(agent *AgentState, s *Stream) bool {
	if agent.AdsWatchedToday >= b.cfg.Shop.Ads.MaxPerDay {
		return false
	}
	prob := b.cfg.PlayerTypes[string(agent.AgentType)].AdWatchProbability
	if variant, ok := agent.ABTests["ad_reward_amount"]; ok {
		prob *= b.cfg.ABEffect("ad_reward_amount", variant, "ad_watch_mult", 1.0)
	}
	if agent.Gems > 1000 {
		prob *= 0.7
	}
	return s.Chance(prob)
}

// ShouldAttemptIAP decides whether a purchase trigger converts. Free
// archetypes are gated behind a 0.1% chance before the trigger math runs.
func (b *Behavior) ShouldAttemptIAP(agent *AgentState, trigger string, s *Stream) bool {
	if !agent.AgentType.IsPayer() {
		if !s.Chance(0.001) {
			return false
		}
	}

	prob, ok := iapTriggerRates[trigger]
	if !ok {
		prob = 0.02
	}
	prob *= iapTypeMultipliers[agent.AgentType]
	prob *= agent.SourceMonetizationMod

	if trigger == "starter_pack_offer" {
		if variant, ok := agent.ABTests["starter_pack_price"]; ok {
			prob *= b.cfg.ABEffect("starter_pack_price", variant, "conversion_mult", 1.0)
		}
	}
	if trigger == "late_game_offer" {
		if variant, ok := agent.ABTests["late_game_offer"]; ok {
			prob *= b.cfg.ABEffect("late_game_offer", variant, "iap_conversion_mult", 1.0)
		}
	}
	if variant, ok := agent.ABTests["ad_reward_amount"]; ok {
		prob *= b.cfg.ABEffect("ad_reward_amount", variant, "iap_conversion_mult", 1.0)
	}

	return s.Chance(prob)
}

// SelectIAPProduct picks the product a converting trigger buys.
func (b *Behavior) SelectIAPProduct(agent *AgentState, trigger string, s *Stream) string {
	if trigger == "starter_pack_offer" && !agent.BoughtStarterPack {
		return "starter_pack"
	}
	if trigger == "monthly_pass_reminder" && !agent.HasActiveMonthly {
		return "monthly_pass"
	}
	switch agent.AgentType {
	case PlayerWhale:
		return Pick(s, []string{"gems_tier4", "gems_tier5"})
	case PlayerDolphin:
		return Pick(s, []string{"gems_tier2", "gems_tier3", "gems_tier4"})
	default:
		return Pick(s, []string{"gems_tier1", "gems_tier2"})
	}
}

// ShouldJoinGuild decides whether an unguilded, unlocked agent joins today.
func (b *Behavior) ShouldJoinGuild(agent *AgentState, s *Stream) bool {
	if agent.GuildID != "" {
		return false
	}
	if agent.PlayerLevel < b.cfg.FeatureUnlockLevel("guild", 15) {
		return false
	}
	engagement := b.cfg.PlayerTypes[string(agent.AgentType)].GuildEngagement
	return s.Chance(engagement * 0.3)
}

// ShouldDoArena decides whether the agent fights in the arena. Spenders may
// buy extra attempts with gems once the daily ones run out.
func (b *Behavior) ShouldDoArena(agent *AgentState, s *Stream) bool {
	if agent.PlayerLevel < b.cfg.FeatureUnlockLevel("arena", 10) {
		return false
	}
	if agent.ArenaAttemptsToday <= 0 {
		if agent.AgentType == PlayerWhale || agent.AgentType == PlayerDolphin {
			if agent.Gems >= b.cfg.Social.Arena.AttemptCostGems {
				return s.Chance(0.2)
			}
		}
		return false
	}
	return s.Chance(b.cfg.PlayerTypes[string(agent.AgentType)].ArenaEngagement)
}

// ShouldAttackGuildBoss decides whether a guilded agent uses today's attack.
func (b *Behavior) ShouldAttackGuildBoss(agent *AgentState, s *Stream) bool {
	if agent.GuildID == "" || agent.AttackedGuildBossToday {
		return false
	}
	return s.Chance(b.cfg.PlayerTypes[string(agent.AgentType)].GuildEngagement)
}

// GenerateDailyQuests builds the daily quest slate once the feature unlocks.
// The login quest completes immediately.
func (b *Behavior) GenerateDailyQuests(agent *AgentState) []*DailyQuestProgress {
	if agent.PlayerLevel < b.cfg.FeatureUnlockLevel("daily_quests", 5) {
		return nil
	}
	return []*DailyQuestProgress{
		{ID: "dq_stages", Name: "Complete 5 stages", Target: 5},
		{ID: "dq_gacha", Name: "Perform 3 summons", Target: 3},
		{ID: "dq_levelup", Name: "Level up any hero", Target: 1},
		{ID: "dq_arena", Name: "Win 1 arena battle", Target: 1},
		{ID: "dq_login", Name: "Log in today", Target: 1, Current: 1, Completed: true},
	}
}

// StageSuccess resolves a stage battle from the power ratio, returning
// success and earned stars.
func (b *Behavior) StageSuccess(agent *AgentState, requiredPower int, s *Stream) (bool, int) {
	ratio := 1.0
	if requiredPower > 0 {
		ratio = float64(agent.TeamPower) / float64(requiredPower)
	}

	var successProb float64
	switch {
	case ratio >= 1.3:
		successProb = 0.98
	case ratio >= 1.1:
		successProb = 0.85
	case ratio >= 1.0:
		successProb = 0.70
	case ratio >= 0.9:
		successProb = 0.45
	case ratio >= 0.8:
		successProb = 0.25
	default:
		successProb = 0.10
	}

	if !s.Chance(successProb) {
		return false, 0
	}

	switch {
	case ratio >= 1.3:
		return true, 3
	case ratio >= 1.1:
		if s.Chance(0.7) {
			return true, 3
		}
		return true, 2
	default:
		stars := []int{1, 2, 3}
		return true, stars[s.WeightedIndex([]float64{0.3, 0.5, 0.2})]
	}
}

// ArenaWin resolves an arena battle from the power ratio.
func (b *Behavior) ArenaWin(agent *AgentState, opponentPower int, s *Stream) bool {
	ratio := 1.0
	if opponentPower > 0 {
		ratio = float64(agent.TeamPower) / float64(opponentPower)
	}
	var winProb float64
	switch {
	case ratio >= 1.2:
		winProb = 0.85
	case ratio >= 1.0:
		winProb = 0.60
	case ratio >= 0.8:
		winProb = 0.35
	default:
		winProb = 0.15
	}
	return s.Chance(winProb)
}

// ArenaRatingChange computes the ELO delta for a battle outcome.
func (b *Behavior) ArenaRatingChange(agentRating, opponentRating int, won bool) int {
	k := float64(b.cfg.Social.Arena.RatingKFactor)
	expected := 1 / (1 + math.Pow(10, float64(opponentRating-agentRating)/400))
	actual := 0.0
	if won {
		actual = 1.0
	}
	return int(k * (actual - expected))
}
