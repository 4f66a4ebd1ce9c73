package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHeroInstance_Power(t *testing.T) {
	tmpl := &HeroTemplate{ID: "hero_common_001", Rarity: RarityCommon, BasePower: 100}

	tests := []struct {
		name  string
		level int
		stars int
		want  int
	}{
		{"fresh pull", 1, 1, 100},
		{"level only", 11, 1, 200},
		{"stars only", 1, 2, 120},
		{"level and stars", 11, 3, 288}, // (100+100) * 1.2^2
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HeroInstance{Template: tmpl, Level: tt.level, Stars: tt.stars}
			assert.Equal(t, tt.want, h.Power())
		})
	}
}

func TestPlayerType_IsPayer(t *testing.T) {
	assert.True(t, PlayerWhale.IsPayer())
	assert.True(t, PlayerDolphin.IsPayer())
	assert.True(t, PlayerMinnow.IsPayer())
	assert.False(t, PlayerFreeEngaged.IsPayer())
	assert.False(t, PlayerFreeCasual.IsPayer())
	assert.False(t, PlayerFreeChurner.IsPayer())
}

func TestGachaBanner_IsActive(t *testing.T) {
	day := func(s string) time.Time {
		d, _ := time.Parse("2006-01-02", s)
		return d
	}

	standard := &GachaBanner{Kind: "standard", Start: day("2024-01-01"), End: day("2024-01-31")}
	assert.True(t, standard.IsActive(day("2030-06-01")), "standard banner is always live")

	limited := &GachaBanner{Kind: "limited", Start: day("2024-01-10"), End: day("2024-01-23")}
	assert.False(t, limited.IsActive(day("2024-01-09")))
	assert.True(t, limited.IsActive(day("2024-01-10")), "window start is inclusive")
	assert.True(t, limited.IsActive(day("2024-01-23")), "window end is inclusive")
	assert.False(t, limited.IsActive(day("2024-01-24")))
}

func TestGuild_IsFull(t *testing.T) {
	g := &Guild{MaxMembers: 2}
	assert.False(t, g.IsFull())
	g.MemberCount = 2
	assert.True(t, g.IsFull())
}

func TestAgentState_AddHero(t *testing.T) {
	agent := &AgentState{Heroes: map[string]*HeroInstance{}}
	tmpl := &HeroTemplate{ID: "hero_rare_001", Rarity: RarityRare, BasePower: 200}

	h, isNew := agent.AddHero(tmpl)
	assert.True(t, isNew)
	assert.Equal(t, 1, h.Level)
	assert.Equal(t, 1, h.Stars)
	assert.Contains(t, agent.Team, tmpl.ID, "new hero fills an empty team slot")
	assert.Equal(t, 200, agent.TeamPower)

	dup, isNew := agent.AddHero(tmpl)
	assert.False(t, isNew)
	assert.Same(t, h, dup)
	assert.Equal(t, 1, dup.Duplicates)
	assert.Len(t, agent.Team, 1, "duplicates never take a second slot")
}

func TestAgentState_TeamCapacity(t *testing.T) {
	agent := &AgentState{Heroes: map[string]*HeroInstance{}}
	for i := 0; i < 8; i++ {
		agent.AddHero(&HeroTemplate{ID: newUserID(i), Rarity: RarityCommon, BasePower: 100})
	}
	assert.Len(t, agent.Team, teamSize)
	assert.Len(t, agent.Heroes, 8)
}

func TestIDFormats(t *testing.T) {
	assert.Equal(t, "u_000007", newUserID(7))
	assert.Equal(t, "d_000123", newDeviceID(123))
	assert.Equal(t, "ch03_st10", stageID(3, 10))

	sid := newSessionID()
	assert.Len(t, sid, 14)
	assert.Equal(t, "s_", sid[:2])

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "txn_1704110400000", newTransactionID(at))
}
