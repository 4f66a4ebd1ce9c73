package sim

import (
	"fmt"
	"math"
	"time"
)

var adNetworks = []string{"unity_ads", "applovin", "ironsource", "admob"}

var adPlacements = []string{"main_screen", "shop", "energy_refill"}

var shopTabs = []string{"iap", "gems", "daily", "special"}

var iapFailReasons = []string{"cancelled", "payment_error", "network_error"}

var productNames = map[string]string{
	"starter_pack": "Starter Pack",
	"gems_tier1":   "Pile of Gems",
	"gems_tier2":   "Bag of Gems",
	"gems_tier3":   "Chest of Gems",
	"gems_tier4":   "Vault of Gems",
	"gems_tier5":   "Treasury of Gems",
	"monthly_pass": "Monthly Pass",
}

// maxHeroLevel caps hero leveling.
const maxHeroLevel = 100

// playStage runs one campaign stage attempt: energy sink, battle, rewards
// and progression on a first clear.
func (sim *Simulator) playStage(agent *AgentState, at time.Time) time.Time {
	chapter, stage := agent.CurrentChapter, agent.CurrentStage

	cost := sim.cfg.Economy.Energy.StageCost
	if agent.Energy < cost {
		return at
	}
	agent.Energy -= cost
	agent.SessionStagesPlayed++

	sim.emitter.EconomySink(agent, at, sim.currentDate,
		"energy", cost, agent.Energy, "stage_entry", stageID(chapter, stage))

	requiredPower := sim.world.StagePowerRequirement(chapter, stage)

	sim.emitter.StageStart(agent, at, sim.currentDate,
		chapter, stage, 1, agent.TeamPower, agent.Team)

	success, stars := sim.behavior.StageSuccess(agent, requiredPower, sim.stream)
	duration := sim.stream.IntBetween(30, 120)
	end := at.Add(time.Duration(duration) * time.Second)

	if !success {
		sim.emitter.StageFail(agent, end, sim.currentDate,
			chapter, stage, duration, "defeat", agent.TeamPower, requiredPower)
		agent.ConsecutiveLosses++
		return end
	}

	firstClear := chapter > agent.MaxChapter || (chapter == agent.MaxChapter && stage > agent.MaxStage)
	gold, exp := sim.world.StageRewards(chapter)

	agent.Gold += gold
	agent.PlayerExp += exp
	agent.TotalStagesCleared++

	var loot []LootItem
	if sim.stream.Chance(0.3) {
		loot = append(loot, LootItem{
			ItemID:   fmt.Sprintf("equip_%03d", sim.stream.IntBetween(1, 50)),
			ItemType: "equipment",
		})
	}

	sim.emitter.StageComplete(agent, end, sim.currentDate,
		chapter, stage, duration, stars, firstClear, gold, exp, loot)
	sim.emitter.EconomySource(agent, end, sim.currentDate,
		"gold", gold, agent.Gold, "stage_reward", stageID(chapter, stage))

	if firstClear {
		if stage < sim.cfg.Progression.StagesPerChapter {
			agent.CurrentStage = stage + 1
			agent.MaxStage = stage + 1
		} else if chapter < sim.cfg.Progression.Chapters {
			agent.CurrentChapter = chapter + 1
			agent.CurrentStage = 1
			agent.MaxChapter = chapter + 1
			agent.MaxStage = 1
		}
	}

	agent.ConsecutiveLosses = 0
	questProgress(agent, "dq_stages", 1)
	sim.checkLevelUp(agent, end)

	return end
}

// upgradeHero levels the cheapest affordable hero, then tries to ascend it
// with banked duplicates.
func (sim *Simulator) upgradeHero(agent *AgentState, at time.Time) time.Time {
	var best *HeroInstance
	bestCost := math.MaxInt

	for _, id := range agent.Team {
		if h, ok := agent.Heroes[id]; ok {
			if cost := sim.affordableLevelupCost(agent, h); cost >= 0 && cost < bestCost {
				best, bestCost = h, cost
			}
		}
	}
	if best == nil {
		for _, id := range sortedKeys(agent.Heroes) {
			h := agent.Heroes[id]
			if cost := sim.affordableLevelupCost(agent, h); cost >= 0 && cost < bestCost {
				best, bestCost = h, cost
			}
		}
	}
	if best == nil {
		return at
	}

	oldLevel := best.Level
	oldPower := best.Power()
	agent.Gold -= bestCost
	agent.SessionGoldSpent += bestCost
	best.Level++

	sim.emitter.EconomySink(agent, at, sim.currentDate,
		"gold", bestCost, agent.Gold, "hero_levelup", best.Template.ID)
	sim.emitter.HeroLevelup(agent, at, sim.currentDate,
		best, oldLevel, best.Level, bestCost, oldPower, best.Power())

	agent.RecalcTeamPower()
	questProgress(agent, "dq_levelup", 1)

	sim.maybeAscendHero(agent, best, at)

	return at.Add(time.Duration(sim.stream.IntBetween(5, 15)) * time.Second)
}

// affordableLevelupCost returns the levelup cost if the agent can pay it,
// or -1 when the hero is maxed or too expensive.
func (sim *Simulator) affordableLevelupCost(agent *AgentState, h *HeroInstance) int {
	if h.Level >= maxHeroLevel {
		return -1
	}
	cost := sim.world.LevelupCost(h.Level)
	if cost > agent.Gold {
		return -1
	}
	return cost
}

// maybeAscendHero spends banked duplicates to raise a hero's star level.
// Each star costs as many duplicates as the current star count, up to five
// stars.
func (sim *Simulator) maybeAscendHero(agent *AgentState, h *HeroInstance, at time.Time) {
	const maxStars = 5
	if h.Stars >= maxStars || h.Duplicates < h.Stars {
		return
	}

	used := h.Stars
	oldStars := h.Stars
	oldPower := h.Power()
	h.Duplicates -= used
	h.Stars++

	sim.emitter.HeroAscend(agent, at, sim.currentDate,
		h, oldStars, h.Stars, used, oldPower, h.Power())

	agent.RecalcTeamPower()
}

// doGacha runs a summon flow: banner view, the cost sink and each pull.
func (sim *Simulator) doGacha(agent *AgentState, at time.Time) time.Time {
	pull := sim.behavior.GachaPullType(agent)
	if pull.Type == "none" {
		return at
	}

	banner := sim.world.StandardBanner()
	if limited := sim.world.LimitedBanner(); limited != nil && sim.stream.Chance(0.6) {
		banner = limited
	}

	sim.emitter.GachaBannerView(agent, at, sim.currentDate, banner,
		agent.Gems, agent.SummonTickets,
		agent.Gems >= sim.cfg.Gacha.SingleGems || agent.SummonTickets >= 1,
		agent.Gems >= sim.cfg.Gacha.MultiGems || agent.SummonTickets >= 10)

	at = at.Add(time.Duration(sim.stream.IntBetween(3, 10)) * time.Second)

	var cost int
	costCurrency := "gems"
	if pull.Currency == "tickets" {
		cost = pull.Count
		agent.SummonTickets -= cost
		costCurrency = "summon_tickets"
	} else {
		cost = sim.cfg.Gacha.SingleGems
		if pull.Count == 10 {
			cost = sim.cfg.Gacha.MultiGems
		}
		agent.Gems -= cost
		agent.SessionGemsSpent += cost
	}

	balance := agent.Gems
	if costCurrency == "summon_tickets" {
		balance = agent.SummonTickets
	}
	sim.emitter.EconomySink(agent, at, sim.currentDate, costCurrency, cost, balance, "gacha_summon", "")

	summonType := "single"
	if pull.Count == 10 {
		summonType = "multi_10"
	}

	for i := 0; i < pull.Count; i++ {
		pityBefore := agent.PityCounter
		rarity := sim.behavior.RollGacha(agent, sim.stream)

		pool := sim.world.HeroesByRarity(rarity)
		hero := Pick(sim.stream, pool)

		// Featured legendaries win the 50/50.
		if banner.FeaturedHero != "" && rarity == RarityLegendary && sim.stream.Chance(0.5) {
			if featured, ok := sim.world.HeroTemplates[banner.FeaturedHero]; ok {
				hero = featured
			}
		}

		_, isNew := agent.AddHero(hero)

		pityTriggered := false
		if rarity == RarityLegendary {
			pityTriggered = pityBefore >= sim.cfg.Gacha.Pity.SoftPityStart
			agent.PityCounter = 0
			agent.GotLegendaryRecently = true
		} else {
			agent.PityCounter++
		}
		agent.TotalGachaPulls++

		costAmount := 0
		if i == 0 {
			costAmount = cost
		}
		sim.emitter.GachaSummon(agent, at, sim.currentDate, banner,
			summonType, i+1, costCurrency, costAmount, hero, isNew,
			pityBefore, agent.PityCounter, pityTriggered)

		at = at.Add(time.Duration(sim.stream.IntBetween(1, 3)) * time.Second)
	}

	agent.RecalcTeamPower()
	sim.optimizeTeam(agent, at)
	questProgress(agent, "dq_gacha", pull.Count)

	return at
}

// optimizeTeam swaps the weakest team member for the strongest benched hero
// when the bench outgrows the lineup.
func (sim *Simulator) optimizeTeam(agent *AgentState, at time.Time) {
	if len(agent.Team) < teamSize {
		return
	}

	inTeam := map[string]bool{}
	weakestIdx := -1
	weakestPower := math.MaxInt
	for i, id := range agent.Team {
		inTeam[id] = true
		if h, ok := agent.Heroes[id]; ok {
			if p := h.Power(); p < weakestPower {
				weakestIdx, weakestPower = i, p
			}
		}
	}
	if weakestIdx < 0 {
		return
	}

	var bestBench *HeroInstance
	bestPower := weakestPower
	for _, id := range sortedKeys(agent.Heroes) {
		h := agent.Heroes[id]
		if inTeam[id] {
			continue
		}
		if p := h.Power(); p > bestPower {
			bestBench, bestPower = h, p
		}
	}
	if bestBench == nil {
		return
	}

	oldTeam := append([]string(nil), agent.Team...)
	oldPower := agent.TeamPower
	agent.Team[weakestIdx] = bestBench.Template.ID
	agent.RecalcTeamPower()

	sim.emitter.HeroTeamChange(agent, at, sim.currentDate,
		oldTeam, agent.Team, oldPower, agent.TeamPower, "stronger_hero")
}

// doArena runs one arena battle, free or gem-paid.
func (sim *Simulator) doArena(agent *AgentState, at time.Time) time.Time {
	paid := agent.ArenaAttemptsToday <= 0
	if paid {
		cost := sim.cfg.Social.Arena.AttemptCostGems
		if agent.Gems < cost {
			return at
		}
		agent.Gems -= cost
		agent.SessionGemsSpent += cost
		sim.emitter.EconomySink(agent, at, sim.currentDate, "gems", cost, agent.Gems, "arena_attempt", "")
	} else {
		agent.ArenaAttemptsToday--
	}

	opponentPower := int(float64(agent.TeamPower) * sim.stream.Uniform(0.8, 1.2))
	opponentRank := agent.ArenaRank + sim.stream.IntBetween(-100, 100)
	if opponentRank < 1 {
		opponentRank = 1
	}
	opponentID := fmt.Sprintf("u_arena_%06d", sim.stream.IntBetween(1, 100000))

	attempt := sim.cfg.Social.Arena.DailyAttempts - agent.ArenaAttemptsToday

	sim.emitter.ArenaBattleStart(agent, at, sim.currentDate,
		opponentID, opponentPower, opponentRank, agent.TeamPower, agent.ArenaRank, attempt, paid)

	duration := sim.stream.IntBetween(30, 90)
	end := at.Add(time.Duration(duration) * time.Second)

	won := sim.behavior.ArenaWin(agent, opponentPower, sim.stream)
	ratingChange := sim.behavior.ArenaRatingChange(agent.ArenaRating, 1000, won)

	oldRank := agent.ArenaRank
	agent.ArenaRating += ratingChange
	agent.ArenaRank = 2000 - agent.ArenaRating/10
	if agent.ArenaRank < 1 {
		agent.ArenaRank = 1
	}

	rewardCurrency := ""
	rewardAmount := 0
	if won {
		rewardCurrency = "gold"
		rewardAmount = 100 + agent.ArenaRank
		agent.Gold += rewardAmount
	}

	result := "lose"
	if won {
		result = "win"
	}
	sim.emitter.ArenaBattleEnd(agent, end, sim.currentDate,
		opponentID, result, duration, oldRank, agent.ArenaRank, ratingChange,
		rewardCurrency, rewardAmount)

	if won {
		sim.emitter.EconomySource(agent, end, sim.currentDate,
			"gold", rewardAmount, agent.Gold, "arena_reward", "")
		questProgress(agent, "dq_arena", 1)
	}

	return end
}

// attackGuildBoss deals the daily boss hit. Damage scales with team power,
// capped at 10% of the boss per hit.
func (sim *Simulator) attackGuildBoss(agent *AgentState, at time.Time) time.Time {
	if agent.GuildID == "" || agent.AttackedGuildBossToday {
		return at
	}
	guild := sim.world.GuildByID(agent.GuildID)
	if guild == nil {
		return at
	}

	damagePct := float64(agent.TeamPower) / 1000 * sim.stream.Uniform(0.8, 1.2)
	if damagePct > 10.0 {
		damagePct = 10.0
	}
	damageDealt := int(damagePct * 10000)

	bossLevel := guild.BossLevel
	hpRemaining := sim.world.DamageGuildBoss(agent.GuildID, damagePct)

	sim.emitter.GuildBossAttack(agent, at, sim.currentDate,
		guild.ID, fmt.Sprintf("boss_%03d", bossLevel), bossLevel,
		damageDealt, agent.TeamPower, 1, hpRemaining)

	agent.AttackedGuildBossToday = true

	rewardGold := 500 + bossLevel*100
	agent.Gold += rewardGold
	sim.emitter.EconomySource(agent, at, sim.currentDate,
		"gold", rewardGold, agent.Gold, "guild_reward", "")

	return at.Add(time.Duration(sim.stream.IntBetween(30, 60)) * time.Second)
}

func (sim *Simulator) joinGuild(agent *AgentState, at time.Time) time.Time {
	if agent.GuildID != "" {
		return at
	}
	guild := sim.world.RandomOpenGuild(sim.stream)
	if guild == nil {
		return at
	}
	if sim.world.JoinGuild(guild.ID) {
		agent.GuildID = guild.ID
		agent.GuildJoinedDate = sim.currentDate
		sim.emitter.GuildJoin(agent, at, sim.currentDate, guild, "search")
	}
	return at.Add(time.Duration(sim.stream.IntBetween(10, 30)) * time.Second)
}

// maybeLeaveGuild lets low-engagement members drift out of their guild.
func (sim *Simulator) maybeLeaveGuild(agent *AgentState, at time.Time) time.Time {
	if agent.GuildID == "" {
		return at
	}
	engagement := sim.cfg.PlayerTypes[string(agent.AgentType)].GuildEngagement
	if !sim.stream.Chance(0.01 * (1 - engagement)) {
		return at
	}

	guild := sim.world.GuildByID(agent.GuildID)
	if guild == nil {
		agent.GuildID = ""
		return at
	}
	sim.world.LeaveGuild(guild.ID)

	daysIn := int(sim.currentDate.Sub(agent.GuildJoinedDate).Hours() / 24)
	sim.emitter.GuildLeave(agent, at, sim.currentDate, guild, "voluntary", daysIn)

	agent.GuildID = ""
	agent.GuildJoinedDate = time.Time{}
	return at.Add(time.Duration(sim.stream.IntBetween(5, 15)) * time.Second)
}

// watchAd plays a rewarded ad flow: opportunity, start, then completion or a
// skip.
func (sim *Simulator) watchAd(agent *AgentState, at time.Time) time.Time {
	if agent.AdsWatchedToday >= sim.cfg.Shop.Ads.MaxPerDay {
		return at
	}

	placement := Pick(sim.stream, adPlacements)
	network := Pick(sim.stream, adNetworks)

	sim.emitter.AdOpportunity(agent, at, sim.currentDate, placement,
		agent.AdsWatchedToday, sim.cfg.Shop.Ads.MaxPerDay-agent.AdsWatchedToday)

	at = at.Add(2 * time.Second)
	sim.emitter.AdStarted(agent, at, sim.currentDate, placement, network)

	if sim.stream.Chance(0.05) {
		skipAfter := sim.stream.IntBetween(5, 15)
		sim.emitter.AdSkipped(agent, at.Add(time.Duration(skipAfter)*time.Second),
			sim.currentDate, placement, network, skipAfter, "user_closed")
		return at.Add(time.Duration(skipAfter) * time.Second)
	}

	watchDuration := sim.stream.IntBetween(15, 30)
	end := at.Add(time.Duration(watchDuration) * time.Second)

	reward := sim.cfg.Shop.Ads.RewardGems
	if variant, ok := agent.ABTests["ad_reward_amount"]; ok {
		reward = int(sim.cfg.ABEffect("ad_reward_amount", variant, "reward_gems", float64(reward)))
	}

	agent.Gems += reward
	agent.AdsWatchedToday++

	sim.emitter.AdCompleted(agent, end, sim.currentDate,
		placement, network, "gems", reward, watchDuration)
	sim.emitter.EconomySource(agent, end, sim.currentDate,
		"gems", reward, agent.Gems, "ad_reward", "")

	return end
}

// browseShop opens a shop tab and evaluates purchase triggers.
func (sim *Simulator) browseShop(agent *AgentState, at time.Time) time.Time {
	tab := Pick(sim.stream, shopTabs)
	sim.emitter.ShopView(agent, at, sim.currentDate, tab, agent.Gems)

	at = at.Add(time.Duration(sim.stream.IntBetween(5, 20)) * time.Second)

	trigger := ""
	switch {
	case !agent.BoughtStarterPack:
		trigger = "starter_pack_offer"
	case agent.PityCounter >= 70:
		trigger = "pity_close"
	case agent.Energy < 20:
		trigger = "out_of_energy"
	case !agent.HasActiveMonthly && sim.stream.Chance(0.3):
		trigger = "monthly_pass_reminder"
	case int(sim.currentDate.Sub(agent.InstallDate).Hours()/24) >= 30:
		trigger = "late_game_offer"
	}

	if trigger != "" && sim.behavior.ShouldAttemptIAP(agent, trigger, sim.stream) {
		at = sim.makePurchase(agent, at, trigger)
	}
	return at
}

// makePurchase runs the IAP flow: initiation, a 10% failure chance, then the
// grant, VIP accrual and economy source.
func (sim *Simulator) makePurchase(agent *AgentState, at time.Time, trigger string) time.Time {
	productID := sim.behavior.SelectIAPProduct(agent, trigger, sim.stream)
	product := sim.cfg.Shop.Products[productID]

	price := product.PriceUSD
	if price == 0 {
		price = 0.99
	}
	name := productID
	if n, ok := productNames[productID]; ok {
		name = n
	}

	if productID == "starter_pack" {
		if variant, ok := agent.ABTests["starter_pack_price"]; ok {
			price = sim.cfg.ABEffect("starter_pack_price", variant, "price_usd", price)
		}
	}

	sim.emitter.IAPInitiated(agent, at, sim.currentDate, productID, name, price)
	at = at.Add(time.Duration(sim.stream.IntBetween(5, 15)) * time.Second)

	if sim.stream.Chance(0.1) {
		sim.emitter.IAPFailed(agent, at, sim.currentDate, productID, price, Pick(sim.stream, iapFailReasons))
		return at
	}

	gems := product.Gems
	if productID == "monthly_pass" {
		gems = product.GemsImmediate
		if gems == 0 {
			gems = 300
		}
	}

	var items []GrantedItem
	if product.SummonTickets > 0 {
		items = append(items, GrantedItem{ItemID: "summon_ticket", Amount: product.SummonTickets})
		agent.SummonTickets += product.SummonTickets
	}

	agent.Gems += gems
	agent.TotalSpentUSD += price
	agent.PurchaseCount++

	vipPoints := int(price * 100)
	agent.VIPPoints += vipPoints
	agent.VIPLevel = sim.cfg.VIPLevelForSpend(agent.TotalSpentUSD)

	firstPurchase := agent.PurchaseCount == 1

	switch productID {
	case "starter_pack":
		agent.BoughtStarterPack = true
	case "monthly_pass":
		agent.HasActiveMonthly = true
		agent.MonthlyPassStart = sim.currentDate
		agent.MonthlyPassDay = 0
	}

	sim.emitter.IAPPurchase(agent, at, sim.currentDate,
		productID, name, price, gems, items, firstPurchase, agent.PurchaseCount, vipPoints)
	sim.emitter.EconomySource(agent, at, sim.currentDate,
		"gems", gems, agent.Gems, "iap_purchase", productID)

	return at
}

// checkLevelUp processes pending player levelups and their feature unlocks.
func (sim *Simulator) checkLevelUp(agent *AgentState, at time.Time) {
	maxLevel := sim.cfg.Progression.PlayerLevel.Max
	for {
		needed := sim.world.ExpForLevel(agent.PlayerLevel + 1)
		if agent.PlayerExp < needed || agent.PlayerLevel >= maxLevel {
			return
		}

		oldLevel := agent.PlayerLevel
		agent.PlayerExp -= needed
		agent.PlayerLevel++

		var unlocked []string
		for _, feature := range sortedKeys(sim.cfg.Progression.Unlocks) {
			if sim.cfg.Progression.Unlocks[feature] == agent.PlayerLevel {
				unlocked = append(unlocked, feature)
			}
		}

		sim.emitter.PlayerLevelup(agent, at, sim.currentDate, oldLevel, agent.PlayerLevel, unlocked)
	}
}

// participateInEvents advances the agent through today's live-ops events:
// first touch emits event_start, milestone crossings pay out, and claiming
// the last milestone completes the event.
func (sim *Simulator) participateInEvents(agent *AgentState, at time.Time) time.Time {
	for _, ge := range sim.world.ActiveEvents() {
		progress := agent.EventProgress[ge.ID]
		if progress == nil {
			progress = &AgentEventProgress{}
			agent.EventProgress[ge.ID] = progress
		}
		if progress.Completed {
			continue
		}

		if !progress.Started {
			progress.Started = true
			sim.emitter.EventStart(agent, at, sim.currentDate, ge)
			at = at.Add(time.Duration(sim.stream.IntBetween(1, 5)) * time.Second)
		}

		progress.Progress += sim.eventProgressDelta(agent, ge)

		for progress.MilestonesClaimed < len(ge.Milestones) {
			m := ge.Milestones[progress.MilestonesClaimed]
			if progress.Progress < milestoneTarget(ge.Kind, m) {
				break
			}
			progress.MilestonesClaimed++
			sim.grantEventReward(agent, m)
			progress.TotalRewardAmount += m.RewardAmount
			progress.TotalRewardCurrency = m.RewardCurrency

			sim.emitter.EventProgress(agent, at, sim.currentDate, ge,
				progress.MilestonesClaimed, milestoneTarget(ge.Kind, m),
				progress.Progress, true, m.RewardCurrency, m.RewardAmount)
			at = at.Add(time.Duration(sim.stream.IntBetween(1, 3)) * time.Second)
		}

		if progress.MilestonesClaimed == len(ge.Milestones) && len(ge.Milestones) > 0 {
			progress.Completed = true
			sim.emitter.EventComplete(agent, at, sim.currentDate, ge,
				progress.Progress, progress.MilestonesClaimed,
				progress.TotalRewardCurrency, progress.TotalRewardAmount)
		}
	}
	return at
}

// eventProgressDelta is the agent's daily contribution to an event's metric.
func (sim *Simulator) eventProgressDelta(agent *AgentState, ge *GameEvent) int {
	switch ge.Kind {
	case "login_event":
		return 1
	case "summon_event":
		return agent.SessionEvents / 10 // rough pulls-this-session proxy
	case "spending_event":
		return int(agent.TotalSpentUSD)
	case "collection_event":
		return sim.stream.IntBetween(10, 50)
	}
	return 0
}

func milestoneTarget(kind string, m EventMilestone) int {
	switch kind {
	case "login_event":
		return m.Day
	case "summon_event":
		return m.PullsRequired
	case "spending_event":
		return m.SpendUSD
	case "collection_event":
		return m.TokensRequired
	}
	return 0
}

func (sim *Simulator) grantEventReward(agent *AgentState, m EventMilestone) {
	switch m.RewardCurrency {
	case "gems":
		agent.Gems += m.RewardAmount
	case "gold":
		agent.Gold += m.RewardAmount
	case "summon_tickets":
		agent.SummonTickets += m.RewardAmount
	}
}
