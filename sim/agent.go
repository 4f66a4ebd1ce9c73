package sim

import (
	"time"
)

const teamSize = 5

// AgentState is the complete mutable state of one simulated player.
// Agents are owned by the Simulator and touched from a single goroutine.
type AgentState struct {
	// Identity
	UserID    string
	DeviceID  string
	AgentType PlayerType

	// Install info
	InstallDate   time.Time
	InstallSource string
	Country       string
	Platform      Platform
	DeviceModel   string
	OSVersion     string
	AppVersion    string
	Language      string

	// A/B assignments, test name to variant.
	ABTests map[string]string

	// Progression
	PlayerLevel        int
	PlayerExp          int
	CurrentChapter     int
	CurrentStage       int
	MaxChapter         int
	MaxStage           int
	TotalStagesCleared int
	TutorialCompleted  bool
	TutorialStep       int

	// Economy
	Gold          int
	Gems          int
	SummonTickets int
	Energy        int
	MaxEnergy     int
	EnergyUpdated time.Time

	// Monetization
	TotalSpentUSD     float64
	VIPLevel          int
	VIPPoints         int
	PurchaseCount     int
	BoughtStarterPack bool
	HasActiveMonthly  bool
	MonthlyPassDay    int
	MonthlyPassStart  time.Time

	// Heroes
	Heroes    map[string]*HeroInstance // keyed by template id
	Team      []string
	TeamPower int

	// Gacha
	PityCounter     int
	TotalGachaPulls int

	// Social
	GuildID         string
	GuildJoinedDate time.Time
	ArenaRank       int
	ArenaRating     int

	// Daily state, reset each day.
	SessionsToday          int
	AdsWatchedToday        int
	ArenaAttemptsToday     int
	AttackedGuildBossToday bool
	ClaimedDailyLogin      bool
	ClaimedIdleToday       bool
	DailyQuests            []*DailyQuestProgress

	// Game event participation, event id to accumulated progress.
	EventProgress map[string]*AgentEventProgress

	// Engagement
	TotalSessions        int
	TotalPlaytimeSec     int
	LastSessionDate      time.Time
	LastSessionEnd       time.Time
	LoginStreak          int
	ConsecutiveLosses    int
	GotLegendaryRecently bool

	// Churn
	IsChurned bool
	ChurnDate time.Time

	// Session scratch state
	SessionID           string
	SessionStart        time.Time
	SessionEvents       int
	SessionStagesPlayed int
	SessionGemsSpent    int
	SessionGoldSpent    int

	// Behavioral modifiers
	SourceRetentionMod    float64
	SourceMonetizationMod float64
	IsBot                 bool
}

// AgentEventProgress is one agent's running progress inside a game event.
type AgentEventProgress struct {
	Started             bool
	Progress            int
	MilestonesClaimed   int
	TotalRewardAmount   int
	TotalRewardCurrency string
	Completed           bool
}

// Device builds the device block stamped onto every record.
func (a *AgentState) Device() DeviceInfo {
	return DeviceInfo{
		DeviceID:    a.DeviceID,
		Platform:    a.Platform,
		OSVersion:   a.OSVersion,
		AppVersion:  a.AppVersion,
		DeviceModel: a.DeviceModel,
		Country:     a.Country,
		Language:    a.Language,
	}
}

// Properties builds the user-properties block stamped onto every record.
func (a *AgentState) Properties(day time.Time) UserProperties {
	days := int(day.Sub(a.InstallDate).Hours() / 24)
	return UserProperties{
		PlayerLevel:      a.PlayerLevel,
		VIPLevel:         a.VIPLevel,
		TotalSpentUSD:    round2(a.TotalSpentUSD),
		DaysSinceInstall: days,
		CohortDate:       a.InstallDate.Format("2006-01-02"),
		CurrentChapter:   a.CurrentChapter,
	}
}

// ResetDailyState clears all per-day counters at the start of a played day.
func (a *AgentState) ResetDailyState(arenaAttempts int) {
	a.SessionsToday = 0
	a.AdsWatchedToday = 0
	a.ArenaAttemptsToday = arenaAttempts
	a.AttackedGuildBossToday = false
	a.ClaimedDailyLogin = false
	a.ClaimedIdleToday = false
	a.DailyQuests = nil
	a.GotLegendaryRecently = false
}

// RecalcTeamPower recomputes and stores the sum of team member powers.
func (a *AgentState) RecalcTeamPower() int {
	total := 0
	for _, id := range a.Team {
		if h, ok := a.Heroes[id]; ok {
			total += h.Power()
		}
	}
	a.TeamPower = total
	return total
}

// AddHero adds a pulled hero to the collection. A repeat pull becomes a
// duplicate on the existing instance. New heroes fill empty team slots.
// Returns the instance and whether it was new.
func (a *AgentState) AddHero(t *HeroTemplate) (*HeroInstance, bool) {
	if h, ok := a.Heroes[t.ID]; ok {
		h.Duplicates++
		return h, false
	}
	h := &HeroInstance{Template: t, Level: 1, Stars: 1}
	a.Heroes[t.ID] = h
	if len(a.Team) < teamSize {
		a.Team = append(a.Team, t.ID)
		a.RecalcTeamPower()
	}
	return h, true
}

// HeroesByRarity counts owned heroes per rarity.
func (a *AgentState) HeroesByRarity() map[string]int {
	counts := map[string]int{"common": 0, "rare": 0, "epic": 0, "legendary": 0}
	for _, h := range a.Heroes {
		counts[string(h.Template.Rarity)]++
	}
	return counts
}

// MaxHeroLevel returns the highest level among owned heroes, 0 when none.
func (a *AgentState) MaxHeroLevel() int {
	max := 0
	for _, h := range a.Heroes {
		if h.Level > max {
			max = h.Level
		}
	}
	return max
}

// MaxHeroStars returns the highest star count among owned heroes, 0 when none.
func (a *AgentState) MaxHeroStars() int {
	max := 0
	for _, h := range a.Heroes {
		if h.Stars > max {
			max = h.Stars
		}
	}
	return max
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
