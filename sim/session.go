package sim

import (
	"sort"
	"time"
)

// tutorialStep is one scripted onboarding step.
type tutorialStep struct {
	id     string
	name   string
	minSec int
	maxSec int
}

var tutorialSteps = []tutorialStep{
	{"tut_welcome", "Welcome", 5, 15},
	{"tut_first_battle", "First Battle", 20, 60},
	{"tut_hero_summon", "Hero Summon", 20, 50},
	{"tut_hero_levelup", "Hero Level Up", 15, 40},
	{"tut_team_setup", "Team Setup", 15, 35},
	{"tut_campaign", "Campaign Intro", 20, 45},
	{"tut_idle_rewards", "Idle Rewards", 10, 25},
	{"tut_complete", "Tutorial Complete", 5, 10},
}

var extendedTutorialSteps = []tutorialStep{
	{"tut_arena_preview", "Arena Preview", 20, 40},
	{"tut_shop_tour", "Shop Tour", 15, 30},
	{"tut_guild_preview", "Guild Preview", 15, 35},
	{"tut_advanced_tips", "Advanced Tips", 10, 25},
}

// simulateFirstSession plays the install-day session: tutorial, starting
// heroes and the first login reward.
func (sim *Simulator) simulateFirstSession(agent *AgentState) error {
	start := sim.currentDate.Add(sim.behavior.SessionStartOffset(sim.stream))

	agent.SessionID = newSessionID()
	agent.SessionStart = start
	agent.SessionEvents = 0
	agent.SessionStagesPlayed = 0
	agent.SessionGemsSpent = 0
	agent.SessionGoldSpent = 0
	agent.EnergyUpdated = start

	sim.emitter.SessionStart(agent, start, sim.currentDate, 1, true, nil)

	sim.simulateTutorial(agent, start)
	sim.giveStartingHeroes(agent)
	sim.claimDailyLogin(agent, start)

	durationMin := sim.behavior.SessionDurationMinutes(agent, 1, sim.stream)
	end := start.Add(time.Duration(durationMin) * time.Minute)

	sim.emitter.SessionEnd(agent, end, sim.currentDate,
		durationMin*60, agent.SessionEvents, agent.SessionStagesPlayed,
		agent.SessionGemsSpent, agent.SessionGoldSpent)

	agent.TotalSessions = 1
	agent.SessionsToday = 1
	agent.TotalPlaytimeSec = durationMin * 60
	agent.LastSessionDate = sim.currentDate
	agent.LastSessionEnd = end
	agent.SessionID = ""

	sim.stats.ActiveToday++
	return sim.flush()
}

// simulateTutorial plays the scripted onboarding. The onboarding_length
// experiment shortens or extends the script; steps past the second may be
// skipped.
func (sim *Simulator) simulateTutorial(agent *AgentState, start time.Time) {
	steps := tutorialSteps
	switch agent.ABTests["onboarding_length"] {
	case "short":
		steps = tutorialSteps[:4]
	case "extended":
		steps = append(append([]tutorialStep(nil), tutorialSteps...), extendedTutorialSteps...)
	}

	current := start
	totalDuration := 0
	completed := 0
	skipped := 0

	for i, step := range steps {
		isSkipped := i >= 2 && sim.stream.Chance(0.1)

		var duration int
		if isSkipped {
			duration = sim.stream.IntBetween(1, 3)
			skipped++
		} else {
			duration = sim.stream.IntBetween(step.minSec, step.maxSec)
			completed++
		}

		sim.emitter.TutorialStep(agent, current, sim.currentDate,
			step.id, i+1, step.name, duration, isSkipped)

		current = current.Add(time.Duration(duration) * time.Second)
		totalDuration += duration
		agent.TutorialStep = i + 1
	}

	sim.emitter.TutorialComplete(agent, current, sim.currentDate, totalDuration, completed, skipped)
	agent.TutorialCompleted = true
}

func (sim *Simulator) giveStartingHeroes(agent *AgentState) {
	commons := sim.world.HeroesByRarity(RarityCommon)
	for i := 0; i < 3; i++ {
		agent.AddHero(Pick(sim.stream, commons))
	}
	agent.RecalcTeamPower()
}

// simulateAgentDay plays one full day for a returning agent.
func (sim *Simulator) simulateAgentDay(agent *AgentState) error {
	agent.ResetDailyState(sim.cfg.Social.Arena.DailyAttempts)
	agent.DailyQuests = sim.behavior.GenerateDailyQuests(agent)

	// Late activation experiments assign once the agent is old enough.
	daysSince := int(sim.currentDate.Sub(agent.InstallDate).Hours() / 24)
	if daysSince >= 30 {
		if _, assigned := agent.ABTests["late_game_offer"]; !assigned {
			if t, ok := sim.cfg.ABTest("late_game_offer"); ok && len(t.Variants) > 0 && len(t.Weights) > 0 {
				agent.ABTests["late_game_offer"] = ABGroup(agent.UserID, "late_game_offer", t.Variants, t.Weights, sim.stream.Key())
			}
		}
	}

	if !agent.LastSessionDate.IsZero() && sim.currentDate.Sub(agent.LastSessionDate) == 24*time.Hour {
		agent.LoginStreak++
	} else {
		agent.LoginStreak = 1
	}

	numSessions := sim.behavior.SessionsCount(agent, sim.currentDate, sim.stream)

	starts := make([]time.Time, numSessions)
	for i := range starts {
		starts[i] = sim.currentDate.Add(sim.behavior.SessionStartOffset(sim.stream))
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	for i, start := range starts {
		if err := sim.simulateSession(agent, start, i+1); err != nil {
			return err
		}
	}

	if numSessions > 0 {
		sim.emitter.PlayerStateSnapshot(agent, starts[0], sim.currentDate)
		sim.stats.ActiveToday++
		if err := sim.flush(); err != nil {
			return err
		}
	}
	return nil
}

// simulateSession plays one session: daily claims on the first session, then
// the weighted action loop until the chosen duration runs out.
func (sim *Simulator) simulateSession(agent *AgentState, start time.Time, sessionNumber int) error {
	agent.TotalSessions++
	agent.SessionsToday++

	var sinceLast *int
	if !agent.LastSessionEnd.IsZero() {
		sec := int(start.Sub(agent.LastSessionEnd).Seconds())
		sinceLast = &sec
	}

	agent.SessionID = newSessionID()
	agent.SessionStart = start
	agent.SessionEvents = 0
	agent.SessionStagesPlayed = 0
	agent.SessionGemsSpent = 0
	agent.SessionGoldSpent = 0

	sim.emitter.SessionStart(agent, start, sim.currentDate, agent.TotalSessions, false, sinceLast)

	sim.regenerateEnergy(agent, start)

	current := start
	durationMin := sim.behavior.SessionDurationMinutes(agent, sessionNumber, sim.stream)
	end := start.Add(time.Duration(durationMin) * time.Minute)

	if sessionNumber == 1 {
		current = sim.claimIdleRewards(agent, current)
		current = sim.claimDailyLogin(agent, current)
		current = sim.claimMonthlyPass(agent, current)
		current = sim.maybeLeaveGuild(agent, current)
	}

	for end.Sub(current) > time.Minute {
		idleSec := sim.stream.IntBetween(10, 60)
		next := current

		switch {
		case agent.Energy >= sim.cfg.Economy.Energy.StageCost && sim.stream.Chance(0.85):
			next = sim.playStage(agent, current)
		case sim.stream.Chance(0.70):
			next = sim.upgradeHero(agent, current)
		case sim.behavior.ShouldDoGacha(agent, sim.stream):
			next = sim.doGacha(agent, current)
		case sim.behavior.ShouldDoArena(agent, sim.stream):
			next = sim.doArena(agent, current)
		case sim.behavior.ShouldAttackGuildBoss(agent, sim.stream):
			next = sim.attackGuildBoss(agent, current)
		case sim.behavior.ShouldJoinGuild(agent, sim.stream):
			next = sim.joinGuild(agent, current)
		case sim.behavior.ShouldWatchAd(agent, sim.stream):
			next = sim.watchAd(agent, current)
		case sim.stream.Chance(0.30):
			next = sim.browseShop(agent, current)
		}

		if next.Equal(current) {
			next = current.Add(time.Duration(idleSec) * time.Second)
		}
		current = next

		if !current.Before(end) {
			break
		}
	}

	current = sim.participateInEvents(agent, current)
	current = sim.claimCompletedQuests(agent, current)

	actualDuration := int(current.Sub(start).Seconds())
	sim.emitter.SessionEnd(agent, current, sim.currentDate,
		actualDuration, agent.SessionEvents, agent.SessionStagesPlayed,
		agent.SessionGemsSpent, agent.SessionGoldSpent)

	agent.TotalPlaytimeSec += actualDuration
	agent.LastSessionDate = sim.currentDate
	agent.LastSessionEnd = current
	agent.SessionID = ""

	return sim.flush()
}

// regenerateEnergy applies the offline energy regen since the last session,
// capped at the agent's maximum plus the VIP bonus.
func (sim *Simulator) regenerateEnergy(agent *AgentState, now time.Time) {
	regen := sim.cfg.Economy.Energy.RegenMinutes
	if regen <= 0 || agent.EnergyUpdated.IsZero() {
		agent.EnergyUpdated = now
		return
	}
	minutes := int(now.Sub(agent.EnergyUpdated).Minutes())
	if minutes <= 0 {
		return
	}
	limit := agent.MaxEnergy + sim.cfg.VIPBonuses(agent.VIPLevel).EnergyBonus
	agent.Energy += minutes / regen
	if agent.Energy > limit {
		agent.Energy = limit
	}
	agent.EnergyUpdated = now
}

func (sim *Simulator) claimIdleRewards(agent *AgentState, at time.Time) time.Time {
	if agent.ClaimedIdleToday {
		return at
	}

	idleHours := 12.0
	if !agent.LastSessionEnd.IsZero() {
		idleHours = at.Sub(agent.LastSessionEnd).Hours()
	}

	maxStage := (agent.MaxChapter-1)*sim.cfg.Progression.StagesPerChapter + agent.MaxStage
	gold, exp, cappedHours := sim.world.IdleRewards(maxStage, idleHours)

	if gold > 0 {
		agent.Gold += gold
		agent.PlayerExp += exp

		sim.emitter.IdleRewardClaim(agent, at, sim.currentDate,
			int(cappedHours*3600), gold, exp, stageID(agent.MaxChapter, agent.MaxStage))
		sim.emitter.EconomySource(agent, at, sim.currentDate, "gold", gold, agent.Gold, "idle_reward", "")

		sim.checkLevelUp(agent, at)
	}

	agent.ClaimedIdleToday = true
	return at.Add(time.Duration(sim.stream.IntBetween(5, 15)) * time.Second)
}

// claimDailyLogin grants the calendar reward. Every 7th consecutive day pays
// gems instead of gold. The streak is still 0 on install day, which wraps the
// calendar to day 30 and lands on the zero-amount gem rung.
func (sim *Simulator) claimDailyLogin(agent *AgentState, at time.Time) time.Time {
	if agent.ClaimedDailyLogin {
		return at
	}

	rewardDay := ((agent.LoginStreak-1)%30+30)%30 + 1
	streakBonus := agent.LoginStreak%7 == 0

	currency := "gold"
	amount := 100 * rewardDay
	if streakBonus {
		currency = "gems"
		amount = 50 * (agent.LoginStreak / 7)
	}

	balance := 0
	if currency == "gems" {
		agent.Gems += amount
		balance = agent.Gems
	} else {
		agent.Gold += amount
		balance = agent.Gold
	}

	sim.emitter.DailyLogin(agent, at, sim.currentDate,
		agent.LoginStreak, rewardDay, currency, amount, streakBonus)
	sim.emitter.EconomySource(agent, at, sim.currentDate, currency, amount, balance, "login_reward", "")

	agent.ClaimedDailyLogin = true
	return at.Add(time.Duration(sim.stream.IntBetween(3, 10)) * time.Second)
}

// claimMonthlyPass pays the daily gems while the pass is live; passes lapse
// after 30 days.
func (sim *Simulator) claimMonthlyPass(agent *AgentState, at time.Time) time.Time {
	if !agent.HasActiveMonthly || agent.MonthlyPassStart.IsZero() {
		return at
	}

	daysActive := int(sim.currentDate.Sub(agent.MonthlyPassStart).Hours() / 24)
	if daysActive >= 30 {
		agent.HasActiveMonthly = false
		return at
	}

	daily := 100
	if p, ok := sim.cfg.Shop.Products["monthly_pass"]; ok && p.GemsDaily > 0 {
		daily = p.GemsDaily
	}
	agent.Gems += daily
	agent.MonthlyPassDay++

	sim.emitter.EconomySource(agent, at, sim.currentDate, "gems", daily, agent.Gems, "vip_bonus", "")

	return at.Add(time.Duration(sim.stream.IntBetween(2, 5)) * time.Second)
}

// claimCompletedQuests pays out finished daily quests at the end of the
// session.
func (sim *Simulator) claimCompletedQuests(agent *AgentState, at time.Time) time.Time {
	for _, q := range agent.DailyQuests {
		if !q.Completed || q.RewardClaimed {
			continue
		}
		reward := 500
		agent.Gold += reward
		q.RewardClaimed = true

		sim.emitter.QuestComplete(agent, at, sim.currentDate, q.ID, "daily", q.Name, "gold", reward)
		sim.emitter.EconomySource(agent, at, sim.currentDate, "gold", reward, agent.Gold, "quest_reward", q.ID)

		at = at.Add(time.Duration(sim.stream.IntBetween(1, 3)) * time.Second)
	}
	return at
}

// questProgress advances a quest slot and marks completion.
func questProgress(agent *AgentState, questID string, delta int) {
	for _, q := range agent.DailyQuests {
		if q.ID == questID && !q.Completed {
			q.Current += delta
			if q.Current >= q.Target {
				q.Completed = true
			}
		}
	}
}
