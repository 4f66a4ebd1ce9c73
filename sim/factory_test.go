package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestABGroup_StableAcrossCalls(t *testing.T) {
	variants := []string{"control", "treatment"}
	weights := []float64{0.5, 0.5}

	first := ABGroup("u_000001", "my_test", variants, weights, NewSimulationKey(42))
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ABGroup("u_000001", "my_test", variants, weights, NewSimulationKey(42)))
	}
}

func TestABGroup_VariesByUserTestAndSeed(t *testing.T) {
	variants := []string{"a", "b"}
	weights := []float64{0.5, 0.5}

	differs := func(pick func(i int) string) bool {
		first := pick(0)
		for i := 1; i < 200; i++ {
			if pick(i) != first {
				return true
			}
		}
		return false
	}

	assert.True(t, differs(func(i int) string {
		return ABGroup(newUserID(i), "t", variants, weights, NewSimulationKey(1))
	}), "assignment should vary across users")
	assert.True(t, differs(func(i int) string {
		return ABGroup("u_000001", "t", variants, weights, NewSimulationKey(int64(i)))
	}), "assignment should vary across seeds")
}

func TestABGroup_FullDigestBuckets(t *testing.T) {
	// Ten equal variants expose the raw bucket: variant index == bucket/1000.
	// Expected buckets are int(md5("seed:test:user"), 16) % 10000 computed
	// over the whole digest with an independent md5 implementation.
	variants := []string{"v0", "v1", "v2", "v3", "v4", "v5", "v6", "v7", "v8", "v9"}
	weights := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}

	tests := []struct {
		user string
		test string
		seed int64
		want string
	}{
		{"u_000001", "bucket_pin", 42, "v3"},       // bucket 3899
		{"u_000042", "bucket_pin", 42, "v1"},       // bucket 1514
		{"u_000123", "onboarding_length", 7, "v9"}, // bucket 9184
	}
	for _, tc := range tests {
		got := ABGroup(tc.user, tc.test, variants, weights, NewSimulationKey(tc.seed))
		assert.Equal(t, tc.want, got, "%d:%s:%s", tc.seed, tc.test, tc.user)
	}
}

func TestABGroup_RespectsWeights(t *testing.T) {
	variants := []string{"rare", "common"}
	weights := []float64{0.1, 0.9}

	counts := map[string]int{}
	for i := 0; i < 2000; i++ {
		counts[ABGroup(newUserID(i), "t", variants, weights, NewSimulationKey(7))]++
	}
	assert.Greater(t, counts["common"], counts["rare"]*3,
		"90/10 split should be visibly skewed, got %v", counts)
}

func TestCreateAgent_Identity(t *testing.T) {
	cfg := testConfig(t)
	f := NewAgentFactory(cfg, NewSimulationKey(42))
	s := NewStream(NewSimulationKey(42))
	install := cfg.StartDate()

	a1 := f.CreateAgent(install, "organic", s, false)
	a2 := f.CreateAgent(install, "paid", s, false)

	assert.Equal(t, "u_000001", a1.UserID)
	assert.Equal(t, "u_000002", a2.UserID)
	assert.Equal(t, "d_000001", a1.DeviceID)
	assert.Equal(t, install, a1.InstallDate)
	assert.Equal(t, "organic", a1.InstallSource)
}

func TestCreateAgent_InitialState(t *testing.T) {
	cfg := testConfig(t)
	f := NewAgentFactory(cfg, NewSimulationKey(42))
	s := NewStream(NewSimulationKey(42))

	a := f.CreateAgent(cfg.StartDate(), "organic", s, false)

	assert.Equal(t, 1, a.PlayerLevel)
	assert.Equal(t, 1, a.CurrentChapter)
	assert.Equal(t, 1, a.CurrentStage)
	assert.Equal(t, cfg.Economy.Initial.Gold, a.Gold)
	assert.Equal(t, cfg.Economy.Initial.Gems, a.Gems)
	assert.Equal(t, cfg.Economy.Initial.SummonTickets, a.SummonTickets)
	assert.Equal(t, cfg.Economy.Initial.Energy, a.Energy)
	assert.Equal(t, cfg.Social.Arena.RatingStart, a.ArenaRating)
	assert.Empty(t, a.Heroes)
	assert.False(t, a.IsChurned)

	// source modifiers recorded on the agent
	assert.InDelta(t, 1.1, a.SourceRetentionMod, 1e-9)
	assert.InDelta(t, 1.0, a.SourceMonetizationMod, 1e-9)

	// device/country/language are internally consistent
	require.NotEmpty(t, a.DeviceModel)
	if a.Platform == PlatformIOS {
		assert.Contains(t, cfg.Devices.IOSModels, a.DeviceModel)
	} else {
		assert.Contains(t, cfg.Devices.AndroidModels, a.DeviceModel)
	}
	assert.Equal(t, languageFor(a.Country), a.Language)
	assert.Contains(t, cfg.Devices.AppVersions, a.AppVersion)
}

func TestCreateAgent_BotsForcedToChurnerArchetype(t *testing.T) {
	cfg := testConfig(t)
	f := NewAgentFactory(cfg, NewSimulationKey(42))
	s := NewStream(NewSimulationKey(42))

	for i := 0; i < 50; i++ {
		a := f.CreateAgent(cfg.StartDate(), "organic", s, true)
		assert.Equal(t, PlayerFreeChurner, a.AgentType)
		assert.True(t, a.IsBot)
	}
}

func TestCreateAgent_ABAssignment(t *testing.T) {
	cfg := testConfig(t)
	f := NewAgentFactory(cfg, NewSimulationKey(42))
	s := NewStream(NewSimulationKey(42))

	a := f.CreateAgent(cfg.StartDate(), "organic", s, false)

	assert.Contains(t, a.ABTests, "onboarding_length")
	assert.Contains(t, a.ABTests, "gacha_pity_display")
	assert.NotContains(t, a.ABTests, "late_game_offer",
		"tests gated on install age are deferred")
}

func TestCreateAgent_UnknownSourceKeepsNeutralModifiers(t *testing.T) {
	cfg := testConfig(t)
	f := NewAgentFactory(cfg, NewSimulationKey(42))
	s := NewStream(NewSimulationKey(42))

	a := f.CreateAgent(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "adnet_x", s, false)
	assert.InDelta(t, 1.0, a.SourceRetentionMod, 1e-9)
	assert.InDelta(t, 1.0, a.SourceMonetizationMod, 1e-9)
}
