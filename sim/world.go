package sim

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// heroNames are the display name pools per class.
var heroNames = map[HeroClass][]string{
	ClassWarrior: {
		"Blade Master", "Iron Knight", "Steel Guardian", "War Chief",
		"Battle Titan", "Sword Saint", "Crusader", "Berserker",
		"Champion", "Gladiator", "Warlord", "Paladin",
		"Vanguard", "Sentinel", "Defender", "Conqueror",
		"Ravager", "Slayer", "Reaver", "Destroyer",
	},
	ClassMage: {
		"Frost Witch", "Fire Sage", "Storm Caller", "Archmage",
		"Void Walker", "Crystal Seer", "Shadow Weaver", "Light Bringer",
		"Elementalist", "Enchanter", "Sorcerer", "Wizard",
		"Necromancer", "Illusionist", "Conjurer", "Warlock",
		"Mystic", "Oracle", "Diviner", "Spellbinder",
	},
	ClassArcher: {
		"Eagle Eye", "Swift Arrow", "Wind Runner", "Shadow Hunter",
		"Forest Ranger", "Sniper", "Marksman", "Sharpshooter",
		"Tracker", "Scout", "Pathfinder", "Stalker",
		"Hawk Eye", "Silent Shot", "Death Dealer", "Venomstrike",
		"Crossbow Master", "Bow Master", "Hunter", "Predator",
	},
	ClassHealer: {
		"Life Keeper", "Holy Priest", "Light Bearer", "Soul Mender",
		"Nature's Grace", "Divine Touch", "Restoration Master", "Mercy",
		"Cleric", "Bishop", "Saint", "Seraph",
		"Medicine Woman", "Shaman", "Druid", "Herbalist",
		"Angel", "Guardian Spirit", "Beacon", "Hope Bringer",
	},
	ClassTank: {
		"Stone Wall", "Iron Fortress", "Shield Bearer", "Mountain Guard",
		"Bulwark", "Rampart", "Bastion", "Colossus",
		"Golem", "Juggernaut", "Behemoth", "Titan",
		"Protector", "Aegis", "Barrier", "Fortress",
		"Earthshaker", "Rock Solid", "Immovable", "Anchor",
	},
}

var guildPrefixes = []string{
	"Royal", "Shadow", "Dragon", "Phoenix", "Iron",
	"Golden", "Silver", "Dark", "Light", "Storm",
	"Fire", "Ice", "Thunder", "Crystal", "Ancient",
}

var guildSuffixes = []string{
	"Knights", "Legion", "Order", "Guard", "Warriors",
	"Hunters", "Raiders", "Champions", "Defenders", "Alliance",
	"Brigade", "Battalion", "Corps", "Squad", "Force",
}

var gameEventKinds = []string{"login_event", "summon_event", "spending_event", "collection_event"}

var gameEventNames = map[string][]string{
	"login_event":      {"New Year Celebration", "Spring Festival", "Summer Bash", "Autumn Harvest"},
	"summon_event":     {"Hero Festival", "Lucky Draw", "Summoner's Blessing", "Divine Fortune"},
	"spending_event":   {"Gem Rush", "Shopping Spree", "Treasure Hunt", "Fortune Fever"},
	"collection_event": {"Artifact Hunt", "Rune Collection", "Fragment Gathering", "Token Chase"},
}

// WorldState holds the shared game world: the static hero catalog, guilds,
// the banner schedule, and the live-ops event calendar for the whole run.
type WorldState struct {
	cfg *Config

	CurrentDate time.Time
	DayNumber   int

	HeroTemplates map[string]*HeroTemplate
	heroIDs       []string // sorted, for deterministic iteration
	Guilds        []*Guild
	Banners       []*GachaBanner
	GameEvents    []*GameEvent

	TotalInstalls int
}

// NewWorldState builds and populates a world from the configuration. The
// hero catalog, guild roster, banner rotation and event calendar are all
// generated up front from the shared stream.
func NewWorldState(cfg *Config, s *Stream) *WorldState {
	w := &WorldState{
		cfg:           cfg,
		CurrentDate:   cfg.StartDate(),
		DayNumber:     1,
		HeroTemplates: map[string]*HeroTemplate{},
	}
	w.generateHeroTemplates(s)
	w.generateGuilds(s)
	w.generateBanners(s)
	w.generateGameEvents(s)
	return w
}

func (w *WorldState) generateHeroTemplates(s *Stream) {
	for _, rarityName := range sortedKeys(w.cfg.Heroes.Pool) {
		count := w.cfg.Heroes.Pool[rarityName]
		basePower := w.cfg.Heroes.BasePower[rarityName]
		for i := 1; i <= count; i++ {
			id := fmt.Sprintf("hero_%s_%03d", rarityName, i)
			class := Pick(s, heroClasses)
			name := Pick(s, heroNames[class])
			t := &HeroTemplate{
				ID:        id,
				Name:      fmt.Sprintf("%s (%s)", name, titleCase(rarityName)),
				Rarity:    HeroRarity(rarityName),
				Class:     class,
				BasePower: basePower,
			}
			w.HeroTemplates[id] = t
			w.heroIDs = append(w.heroIDs, id)
		}
	}
}

func (w *WorldState) generateGuilds(s *Stream) {
	for i := 1; i <= w.cfg.Social.Guilds.Count; i++ {
		w.Guilds = append(w.Guilds, &Guild{
			ID:                 fmt.Sprintf("guild_%04d", i),
			Name:               Pick(s, guildPrefixes) + " " + Pick(s, guildSuffixes),
			MaxMembers:         w.cfg.Social.Guilds.MaxMembers,
			BossLevel:          1,
			BossHPRemainingPct: 100.0,
		})
	}
}

func (w *WorldState) generateBanners(s *Stream) {
	start := w.cfg.StartDate()
	end := start.AddDate(0, 0, w.cfg.Simulation.DurationDays)

	w.Banners = append(w.Banners, &GachaBanner{
		ID:    "standard_banner",
		Kind:  "standard",
		Start: start,
		End:   end,
	})

	legendaries := w.HeroesByRarity(RarityLegendary)
	current := start
	for num := 1; current.Before(end); num++ {
		featured := Pick(s, legendaries)
		bannerEnd := current.AddDate(0, 0, 14)
		if bannerEnd.After(end) {
			bannerEnd = end
		}
		w.Banners = append(w.Banners, &GachaBanner{
			ID:           fmt.Sprintf("limited_banner_%03d", num),
			Kind:         "limited",
			FeaturedHero: featured.ID,
			Start:        current,
			End:          bannerEnd,
		})
		current = bannerEnd.AddDate(0, 0, 1)
	}
}

func (w *WorldState) generateGameEvents(s *Stream) {
	start := w.cfg.StartDate()
	end := start.AddDate(0, 0, w.cfg.Simulation.DurationDays)

	current := start.AddDate(0, 0, 3)
	for num := 1; current.Before(end.AddDate(0, 0, -7)); num++ {
		kind := gameEventKinds[num%len(gameEventKinds)]
		name := Pick(s, gameEventNames[kind])

		duration := s.IntBetween(7, 14)
		eventEnd := current.AddDate(0, 0, duration)
		if eventEnd.After(end) {
			eventEnd = end
		}

		w.GameEvents = append(w.GameEvents, &GameEvent{
			ID:         fmt.Sprintf("event_%03d", num),
			Kind:       kind,
			Name:       fmt.Sprintf("%s #%d", name, num),
			Start:      current,
			End:        eventEnd,
			Milestones: buildMilestones(kind, duration),
		})

		current = eventEnd.AddDate(0, 0, s.IntBetween(3, 7))
	}
}

// buildMilestones produces the reward ladder for an event kind.
func buildMilestones(kind string, duration int) []EventMilestone {
	var ms []EventMilestone
	switch kind {
	case "login_event":
		days := duration + 1
		if days > 8 {
			days = 8
		}
		for d := 1; d < days; d++ {
			m := EventMilestone{Day: d, RewardCurrency: "gold", RewardAmount: 500 * d}
			if d%3 == 0 {
				m.RewardCurrency = "gems"
				m.RewardAmount = 50 * d
			}
			ms = append(ms, m)
		}
	case "summon_event":
		for _, pulls := range []int{10, 30, 50, 100} {
			ms = append(ms, EventMilestone{
				PullsRequired:  pulls,
				RewardCurrency: "summon_tickets",
				RewardAmount:   pulls / 10,
			})
		}
	case "spending_event":
		for _, spend := range []int{5, 20, 50, 100} {
			ms = append(ms, EventMilestone{
				SpendUSD:       spend,
				RewardCurrency: "gems",
				RewardAmount:   spend * 20,
			})
		}
	case "collection_event":
		for _, tokens := range []int{100, 300, 500, 1000} {
			ms = append(ms, EventMilestone{
				TokensRequired: tokens,
				RewardCurrency: "gems",
				RewardAmount:   tokens / 5,
			})
		}
	}
	return ms
}

// AdvanceDay moves the world to the next calendar day and resets every guild
// boss to full HP.
func (w *WorldState) AdvanceDay() {
	w.CurrentDate = w.CurrentDate.AddDate(0, 0, 1)
	w.DayNumber++
	for _, g := range w.Guilds {
		g.BossHPRemainingPct = 100.0
	}
}

// ActiveEvents returns the game events live on the current day, in schedule
// order.
func (w *WorldState) ActiveEvents() []*GameEvent {
	var active []*GameEvent
	for _, e := range w.GameEvents {
		if e.IsActive(w.CurrentDate) {
			active = append(active, e)
		}
	}
	return active
}

// StandardBanner returns the permanent banner.
func (w *WorldState) StandardBanner() *GachaBanner {
	for _, b := range w.Banners {
		if b.Kind == "standard" {
			return b
		}
	}
	return nil
}

// LimitedBanner returns the limited banner active today, or nil.
func (w *WorldState) LimitedBanner() *GachaBanner {
	for _, b := range w.Banners {
		if b.Kind == "limited" && b.IsActive(w.CurrentDate) {
			return b
		}
	}
	return nil
}

// HeroesByRarity returns the catalog slice for one rarity in id order.
func (w *WorldState) HeroesByRarity(rarity HeroRarity) []*HeroTemplate {
	var out []*HeroTemplate
	for _, id := range w.heroIDs {
		if t := w.HeroTemplates[id]; t.Rarity == rarity {
			out = append(out, t)
		}
	}
	return out
}

// RandomOpenGuild picks a guild with free capacity, nil when all are full.
func (w *WorldState) RandomOpenGuild(s *Stream) *Guild {
	var open []*Guild
	for _, g := range w.Guilds {
		if !g.IsFull() {
			open = append(open, g)
		}
	}
	if len(open) == 0 {
		return nil
	}
	return Pick(s, open)
}

// GuildByID returns a guild by id, nil when unknown.
func (w *WorldState) GuildByID(id string) *Guild {
	for _, g := range w.Guilds {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// JoinGuild adds one member to a guild if it has capacity.
func (w *WorldState) JoinGuild(id string) bool {
	g := w.GuildByID(id)
	if g == nil || g.IsFull() {
		return false
	}
	g.MemberCount++
	return true
}

// LeaveGuild removes one member from a guild.
func (w *WorldState) LeaveGuild(id string) bool {
	g := w.GuildByID(id)
	if g == nil || g.MemberCount == 0 {
		return false
	}
	g.MemberCount--
	return true
}

// DamageGuildBoss applies percentage damage to a guild's boss. A kill levels
// the boss up and restores it to full HP. Returns the remaining HP percent.
func (w *WorldState) DamageGuildBoss(id string, damagePct float64) float64 {
	g := w.GuildByID(id)
	if g == nil {
		return 100.0
	}
	g.BossHPRemainingPct = math.Max(0, g.BossHPRemainingPct-damagePct)
	if g.BossHPRemainingPct <= 0 {
		g.BossLevel++
		g.BossHPRemainingPct = 100.0
	}
	return g.BossHPRemainingPct
}

// StagePowerRequirement is the team power a stage expects, growing
// geometrically with the absolute stage number.
func (w *WorldState) StagePowerRequirement(chapter, stage int) int {
	stageNum := (chapter-1)*w.cfg.Progression.StagesPerChapter + stage
	rule := w.cfg.Progression.StagePower
	return int(float64(rule.Base) * math.Pow(rule.PerStageMult, float64(stageNum-1)))
}

// StageRewards returns the gold and exp granted for clearing a stage.
func (w *WorldState) StageRewards(chapter int) (gold, exp int) {
	r := w.cfg.Economy.StageReward
	return r.GoldBase + (chapter-1)*r.GoldPerChapter, r.ExpBase + (chapter-1)*r.ExpPerChapter
}

// IdleRewards computes offline earnings from the agent's best stage and the
// hours away, capped at the configured maximum.
func (w *WorldState) IdleRewards(maxStage int, hours float64) (gold, exp int, cappedHours float64) {
	r := w.cfg.Economy.IdleReward
	if hours > r.MaxHours {
		hours = r.MaxHours
	}
	gold = int(float64(r.GoldPerHourBase) * (1 + float64(maxStage)*r.GoldPerStageMult) * hours)
	exp = gold / 10
	return gold, exp, hours
}

// LevelupCost is the gold price of raising a hero one level.
func (w *WorldState) LevelupCost(currentLevel int) int {
	r := w.cfg.Economy.HeroLevelup
	return int(float64(r.GoldBase) * math.Pow(r.GoldPerLevelMult, float64(currentLevel-1)))
}

// ExpForLevel is the exp required to reach a player level from the previous.
func (w *WorldState) ExpForLevel(level int) int {
	r := w.cfg.Progression.PlayerLevel
	return int(float64(r.ExpPerLevelBase) * math.Pow(r.ExpPerLevelMult, float64(level-1)))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
