package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld(t *testing.T) *WorldState {
	t.Helper()
	cfg := testConfig(t)
	return NewWorldState(cfg, NewStream(NewSimulationKey(cfg.Simulation.Seed)))
}

func TestWorld_HeroCatalog(t *testing.T) {
	w := newTestWorld(t)

	assert.Len(t, w.HeroTemplates, 10+8+5+3)
	assert.Len(t, w.HeroesByRarity(RarityCommon), 10)
	assert.Len(t, w.HeroesByRarity(RarityLegendary), 3)

	tmpl, ok := w.HeroTemplates["hero_legendary_001"]
	require.True(t, ok)
	assert.Equal(t, RarityLegendary, tmpl.Rarity)
	assert.Equal(t, 800, tmpl.BasePower)
	assert.NotEmpty(t, tmpl.Name)
}

func TestWorld_DeterministicGeneration(t *testing.T) {
	cfg := testConfig(t)
	a := NewWorldState(cfg, NewStream(NewSimulationKey(42)))
	b := NewWorldState(cfg, NewStream(NewSimulationKey(42)))

	for id, ta := range a.HeroTemplates {
		tb, ok := b.HeroTemplates[id]
		require.True(t, ok, "hero %s missing from second world", id)
		assert.Equal(t, ta.Name, tb.Name)
		assert.Equal(t, ta.Class, tb.Class)
	}
	require.Equal(t, len(a.Guilds), len(b.Guilds))
	for i := range a.Guilds {
		assert.Equal(t, a.Guilds[i].Name, b.Guilds[i].Name)
	}
	require.Equal(t, len(a.Banners), len(b.Banners))
	for i := range a.Banners {
		assert.Equal(t, a.Banners[i].FeaturedHero, b.Banners[i].FeaturedHero)
	}
}

func TestWorld_BannerScheduleCoversRun(t *testing.T) {
	w := newTestWorld(t)
	cfg := testConfig(t)

	std := w.StandardBanner()
	require.NotNil(t, std)
	assert.Equal(t, "standard", std.Kind)

	// every day of the run has exactly one live limited banner
	day := cfg.StartDate()
	for i := 0; i < cfg.Simulation.DurationDays; i++ {
		live := 0
		for _, b := range w.Banners {
			if b.Kind == "limited" && b.IsActive(day) {
				live++
				assert.NotEmpty(t, b.FeaturedHero)
				assert.Equal(t, RarityLegendary, w.HeroTemplates[b.FeaturedHero].Rarity)
			}
		}
		assert.Equal(t, 1, live, "day %s should have one live limited banner", day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
}

func TestWorld_EventCalendar(t *testing.T) {
	cfg := testConfig(t)
	cfg.Simulation.DurationDays = 60
	w := NewWorldState(cfg, NewStream(NewSimulationKey(42)))

	require.NotEmpty(t, w.GameEvents)
	firstStart := cfg.StartDate().AddDate(0, 0, 3)
	assert.Equal(t, firstStart, w.GameEvents[0].Start, "first event starts 3 days in")

	for i, e := range w.GameEvents {
		assert.Equal(t, gameEventKinds[(i+1)%len(gameEventKinds)], e.Kind, "kinds rotate in fixed order")
		assert.NotEmpty(t, e.Milestones)
		if i > 0 {
			assert.True(t, e.Start.After(w.GameEvents[i-1].End), "events do not overlap")
		}
	}
}

func TestBuildMilestones(t *testing.T) {
	login := buildMilestones("login_event", 10)
	require.Len(t, login, 7)
	assert.Equal(t, 1, login[0].Day)
	assert.Equal(t, "gold", login[0].RewardCurrency)
	assert.Equal(t, "gems", login[2].RewardCurrency, "every third day pays gems")

	summon := buildMilestones("summon_event", 7)
	require.Len(t, summon, 4)
	assert.Equal(t, 100, summon[3].PullsRequired)
	assert.Equal(t, 10, summon[3].RewardAmount)

	spend := buildMilestones("spending_event", 7)
	assert.Equal(t, 5, spend[0].SpendUSD)
	assert.Equal(t, 100, spend[0].RewardAmount)

	collect := buildMilestones("collection_event", 7)
	assert.Equal(t, 1000, collect[3].TokensRequired)
	assert.Equal(t, 200, collect[3].RewardAmount)
}

func TestWorld_GuildBoss(t *testing.T) {
	w := newTestWorld(t)
	g := w.Guilds[0]
	require.Equal(t, 1, g.BossLevel)
	require.Equal(t, 100.0, g.BossHPRemainingPct)

	hp := w.DamageGuildBoss(g.ID, 30)
	assert.Equal(t, 70.0, hp)

	// a killing blow levels the boss and resets HP
	hp = w.DamageGuildBoss(g.ID, 75)
	assert.Equal(t, 100.0, hp)
	assert.Equal(t, 2, g.BossLevel)

	// daily reset restores every boss
	w.DamageGuildBoss(g.ID, 10)
	w.AdvanceDay()
	assert.Equal(t, 100.0, g.BossHPRemainingPct)
	assert.Equal(t, 2, g.BossLevel, "level survives the daily reset")
}

func TestWorld_GuildMembership(t *testing.T) {
	w := newTestWorld(t)
	g := w.Guilds[0]

	assert.True(t, w.JoinGuild(g.ID))
	assert.Equal(t, 1, g.MemberCount)

	g.MemberCount = g.MaxMembers
	assert.False(t, w.JoinGuild(g.ID), "full guild rejects joins")

	assert.True(t, w.LeaveGuild(g.ID))
	assert.Equal(t, g.MaxMembers-1, g.MemberCount)

	assert.Nil(t, w.GuildByID("guild_9999"))
	assert.False(t, w.JoinGuild("guild_9999"))
}

func TestWorld_StageFormulas(t *testing.T) {
	w := newTestWorld(t)

	assert.Equal(t, 500, w.StagePowerRequirement(1, 1))
	assert.Equal(t, 540, w.StagePowerRequirement(1, 2)) // 500 * 1.08
	assert.Greater(t, w.StagePowerRequirement(2, 1), w.StagePowerRequirement(1, 10))

	gold, exp := w.StageRewards(1)
	assert.Equal(t, 100, gold)
	assert.Equal(t, 10, exp)
	gold3, _ := w.StageRewards(3)
	assert.Equal(t, 200, gold3)
}

func TestWorld_IdleRewardsCapped(t *testing.T) {
	w := newTestWorld(t)

	gold, exp, hours := w.IdleRewards(10, 48)
	assert.Equal(t, 12.0, hours, "idle hours capped at config max")
	assert.Equal(t, int(200.0*2.0*12), gold) // base * (1 + 10*0.1) * hours
	assert.Equal(t, gold/10, exp)
}

func TestWorld_LevelCurves(t *testing.T) {
	w := newTestWorld(t)

	assert.Equal(t, 100, w.LevelupCost(1))
	assert.Greater(t, w.LevelupCost(50), w.LevelupCost(10))

	assert.Equal(t, 100, w.ExpForLevel(1))
	assert.Greater(t, w.ExpForLevel(30), w.ExpForLevel(2))
}
