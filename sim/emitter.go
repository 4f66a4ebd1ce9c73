package sim

import "time"

// LootItem is a dropped item reference in stage completion payloads.
type LootItem struct {
	ItemID   string `json:"item_id"`
	ItemType string `json:"item_type"`
}

// GrantedItem is a non-gem item granted by a purchase.
type GrantedItem struct {
	ItemID string `json:"item_id"`
	Amount int    `json:"amount"`
}

// Emitter accumulates records for the current batch of agent actions.
// The simulator drains it into the sinks after each session.
type Emitter struct {
	records []*Record
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Drain returns the accumulated records and resets the buffer.
func (e *Emitter) Drain() []*Record {
	out := e.records
	e.records = nil
	return out
}

func (e *Emitter) add(name string, at time.Time, agent *AgentState, day time.Time, props map[string]any) {
	e.records = append(e.records, newRecord(name, at, agent, day, props))
	agent.SessionEvents++
}

// --- session ---

func (e *Emitter) SessionStart(agent *AgentState, at, day time.Time, sessionNumber int, first bool, sinceLastSec *int) {
	e.add("session_start", at, agent, day, map[string]any{
		"session_number":              sessionNumber,
		"is_first_session":            first,
		"time_since_last_session_sec": sinceLastSec,
		"install_source":              agent.InstallSource,
	})
}

func (e *Emitter) SessionEnd(agent *AgentState, at, day time.Time, durationSec, eventsCount, stagesPlayed, gemsSpent, goldSpent int) {
	e.records = append(e.records, newRecord("session_end", at, agent, day, map[string]any{
		"session_duration_sec": durationSec,
		"events_count":         eventsCount,
		"stages_played":        stagesPlayed,
		"gems_spent":           gemsSpent,
		"gold_spent":           goldSpent,
	}))
}

// --- economy ---

func (e *Emitter) EconomySource(agent *AgentState, at, day time.Time, currency string, amount, balanceAfter int, source, sourceID string) {
	props := map[string]any{
		"currency":      currency,
		"amount":        amount,
		"balance_after": balanceAfter,
		"source":        source,
	}
	if sourceID != "" {
		props["source_id"] = sourceID
	}
	e.add("economy_source", at, agent, day, props)
}

func (e *Emitter) EconomySink(agent *AgentState, at, day time.Time, currency string, amount, balanceAfter int, sink, sinkID string) {
	props := map[string]any{
		"currency":      currency,
		"amount":        amount,
		"balance_after": balanceAfter,
		"sink":          sink,
	}
	if sinkID != "" {
		props["sink_id"] = sinkID
	}
	e.add("economy_sink", at, agent, day, props)
}

// --- progression ---

func (e *Emitter) StageStart(agent *AgentState, at, day time.Time, chapter, stage, attempt, teamPower int, heroIDs []string) {
	ids := append([]string(nil), heroIDs...)
	e.add("stage_start", at, agent, day, map[string]any{
		"chapter":        chapter,
		"stage":          stage,
		"stage_id":       stageID(chapter, stage),
		"attempt_number": attempt,
		"team_power":     teamPower,
		"team_size":      len(ids),
		"hero_ids":       ids,
	})
}

func (e *Emitter) StageComplete(agent *AgentState, at, day time.Time, chapter, stage, durationSec, stars int, firstClear bool, goldReward, expReward int, loot []LootItem) {
	e.add("stage_complete", at, agent, day, map[string]any{
		"chapter":        chapter,
		"stage":          stage,
		"stage_id":       stageID(chapter, stage),
		"duration_sec":   durationSec,
		"stars":          stars,
		"is_first_clear": firstClear,
		"gold_reward":    goldReward,
		"exp_reward":     expReward,
		"loot_items":     loot,
	})
}

func (e *Emitter) StageFail(agent *AgentState, at, day time.Time, chapter, stage, durationSec int, reason string, teamPower, requiredPower int) {
	e.add("stage_fail", at, agent, day, map[string]any{
		"chapter":        chapter,
		"stage":          stage,
		"stage_id":       stageID(chapter, stage),
		"duration_sec":   durationSec,
		"fail_reason":    reason,
		"team_power":     teamPower,
		"required_power": requiredPower,
	})
}

func (e *Emitter) IdleRewardClaim(agent *AgentState, at, day time.Time, idleDurationSec, goldEarned, expEarned int, maxStageID string) {
	e.add("idle_reward_claim", at, agent, day, map[string]any{
		"idle_duration_sec": idleDurationSec,
		"gold_earned":       goldEarned,
		"exp_earned":        expEarned,
		"max_stage_id":      maxStageID,
	})
}

func (e *Emitter) PlayerLevelup(agent *AgentState, at, day time.Time, oldLevel, newLevel int, unlocked []string) {
	if unlocked == nil {
		unlocked = []string{}
	}
	e.add("player_levelup", at, agent, day, map[string]any{
		"old_level":         oldLevel,
		"new_level":         newLevel,
		"unlocked_features": unlocked,
	})
}

// --- gacha ---

func (e *Emitter) GachaBannerView(agent *AgentState, at, day time.Time, banner *GachaBanner, gems, tickets int, canSingle, canMulti bool) {
	e.add("gacha_banner_view", at, agent, day, map[string]any{
		"banner_id":         banner.ID,
		"banner_type":       banner.Kind,
		"featured_hero_id":  nullable(banner.FeaturedHero),
		"player_gems":       gems,
		"player_tickets":    tickets,
		"can_afford_single": canSingle,
		"can_afford_multi":  canMulti,
	})
}

func (e *Emitter) GachaSummon(agent *AgentState, at, day time.Time, banner *GachaBanner, summonType string, index int,
	costCurrency string, costAmount int, hero *HeroTemplate, isNew bool, pityBefore, pityAfter int, pityTriggered bool) {
	e.add("gacha_summon", at, agent, day, map[string]any{
		"banner_id":           banner.ID,
		"banner_type":         banner.Kind,
		"summon_type":         summonType,
		"summon_index":        index,
		"summon_cost_currency": costCurrency,
		"summon_cost_amount":  costAmount,
		"hero_id":             hero.ID,
		"hero_name":           hero.Name,
		"hero_rarity":         string(hero.Rarity),
		"hero_class":          string(hero.Class),
		"is_new":              isNew,
		"is_duplicate":        !isNew,
		"is_featured":         hero.ID == banner.FeaturedHero && banner.FeaturedHero != "",
		"pity_counter_before": pityBefore,
		"pity_counter_after":  pityAfter,
		"pity_triggered":      pityTriggered,
	})
}

// --- heroes ---

func (e *Emitter) HeroLevelup(agent *AgentState, at, day time.Time, hero *HeroInstance, oldLevel, newLevel, goldSpent, powerBefore, powerAfter int) {
	e.add("hero_levelup", at, agent, day, map[string]any{
		"hero_id":      hero.Template.ID,
		"hero_name":    hero.Template.Name,
		"hero_rarity":  string(hero.Template.Rarity),
		"old_level":    oldLevel,
		"new_level":    newLevel,
		"gold_spent":   goldSpent,
		"power_before": powerBefore,
		"power_after":  powerAfter,
	})
}

func (e *Emitter) HeroAscend(agent *AgentState, at, day time.Time, hero *HeroInstance, oldStars, newStars, duplicatesUsed, powerBefore, powerAfter int) {
	e.add("hero_ascend", at, agent, day, map[string]any{
		"hero_id":         hero.Template.ID,
		"hero_name":       hero.Template.Name,
		"hero_rarity":     string(hero.Template.Rarity),
		"old_stars":       oldStars,
		"new_stars":       newStars,
		"duplicates_used": duplicatesUsed,
		"power_before":    powerBefore,
		"power_after":     powerAfter,
	})
}

func (e *Emitter) HeroTeamChange(agent *AgentState, at, day time.Time, oldTeam, newTeam []string, powerBefore, powerAfter int, reason string) {
	e.add("hero_team_change", at, agent, day, map[string]any{
		"old_team":          append([]string(nil), oldTeam...),
		"new_team":          append([]string(nil), newTeam...),
		"team_power_before": powerBefore,
		"team_power_after":  powerAfter,
		"change_reason":     reason,
	})
}

// --- shop ---

func (e *Emitter) ShopView(agent *AgentState, at, day time.Time, tab string, gems int) {
	e.add("shop_view", at, agent, day, map[string]any{
		"shop_tab":    tab,
		"player_gems": gems,
	})
}

func (e *Emitter) IAPInitiated(agent *AgentState, at, day time.Time, productID, productName string, priceUSD float64) {
	e.add("iap_initiated", at, agent, day, map[string]any{
		"product_id":   productID,
		"product_name": productName,
		"price_usd":    priceUSD,
	})
}

func (e *Emitter) IAPPurchase(agent *AgentState, at, day time.Time, productID, productName string, priceUSD float64,
	gemsReceived int, items []GrantedItem, firstPurchase bool, purchaseNumber, vipPoints int) {
	if items == nil {
		items = []GrantedItem{}
	}
	e.add("iap_purchase", at, agent, day, map[string]any{
		"product_id":        productID,
		"product_name":      productName,
		"price_usd":         priceUSD,
		"gems_received":     gemsReceived,
		"items_received":    items,
		"is_first_purchase": firstPurchase,
		"purchase_number":   purchaseNumber,
		"transaction_id":    newTransactionID(at),
		"vip_points_earned": vipPoints,
	})
}

func (e *Emitter) IAPFailed(agent *AgentState, at, day time.Time, productID string, priceUSD float64, reason string) {
	e.add("iap_failed", at, agent, day, map[string]any{
		"product_id":  productID,
		"price_usd":   priceUSD,
		"fail_reason": reason,
	})
}

// --- ads ---

func (e *Emitter) AdOpportunity(agent *AgentState, at, day time.Time, placement string, watchedToday, available int) {
	e.add("ad_opportunity", at, agent, day, map[string]any{
		"placement":         placement,
		"ads_watched_today": watchedToday,
		"ads_available":     available,
	})
}

func (e *Emitter) AdStarted(agent *AgentState, at, day time.Time, placement, network string) {
	e.add("ad_started", at, agent, day, map[string]any{
		"placement":  placement,
		"ad_network": network,
	})
}

func (e *Emitter) AdCompleted(agent *AgentState, at, day time.Time, placement, network, rewardCurrency string, rewardAmount, watchDurationSec int) {
	e.add("ad_completed", at, agent, day, map[string]any{
		"placement":          placement,
		"ad_network":         network,
		"reward_currency":    rewardCurrency,
		"reward_amount":      rewardAmount,
		"watch_duration_sec": watchDurationSec,
	})
}

func (e *Emitter) AdSkipped(agent *AgentState, at, day time.Time, placement, network string, skipAfterSec int, reason string) {
	e.add("ad_skipped", at, agent, day, map[string]any{
		"placement":     placement,
		"ad_network":    network,
		"skip_after_sec": skipAfterSec,
		"skip_reason":   reason,
	})
}

// --- social ---

func (e *Emitter) ArenaBattleStart(agent *AgentState, at, day time.Time, opponentID string, opponentPower, opponentRank, playerPower, playerRank, attempt int, paid bool) {
	e.add("arena_battle_start", at, agent, day, map[string]any{
		"opponent_user_id": opponentID,
		"opponent_power":   opponentPower,
		"opponent_rank":    opponentRank,
		"player_power":     playerPower,
		"player_rank":      playerRank,
		"attempt_number":   attempt,
		"is_paid_attempt":  paid,
	})
}

func (e *Emitter) ArenaBattleEnd(agent *AgentState, at, day time.Time, opponentID, result string, durationSec, rankBefore, rankAfter, ratingChange int, rewardCurrency string, rewardAmount int) {
	props := map[string]any{
		"opponent_user_id": opponentID,
		"result":           result,
		"duration_sec":     durationSec,
		"rank_before":      rankBefore,
		"rank_after":       rankAfter,
		"rating_change":    ratingChange,
	}
	if rewardCurrency != "" {
		props["reward_currency"] = rewardCurrency
		props["reward_amount"] = rewardAmount
	}
	e.add("arena_battle_end", at, agent, day, props)
}

func (e *Emitter) GuildJoin(agent *AgentState, at, day time.Time, guild *Guild, method string) {
	e.add("guild_join", at, agent, day, map[string]any{
		"guild_id":           guild.ID,
		"guild_name":         guild.Name,
		"guild_member_count": guild.MemberCount,
		"join_method":        method,
	})
}

func (e *Emitter) GuildLeave(agent *AgentState, at, day time.Time, guild *Guild, reason string, daysInGuild int) {
	e.add("guild_leave", at, agent, day, map[string]any{
		"guild_id":      guild.ID,
		"guild_name":    guild.Name,
		"reason":        reason,
		"days_in_guild": daysInGuild,
	})
}

func (e *Emitter) GuildBossAttack(agent *AgentState, at, day time.Time, guildID, bossID string, bossLevel, damage, teamPower, attempt int, hpRemainingPct float64) {
	e.add("guild_boss_attack", at, agent, day, map[string]any{
		"guild_id":              guildID,
		"boss_id":               bossID,
		"boss_level":            bossLevel,
		"damage_dealt":          damage,
		"team_power":            teamPower,
		"attempt_number":        attempt,
		"boss_hp_remaining_pct": hpRemainingPct,
	})
}

// --- quests ---

func (e *Emitter) QuestComplete(agent *AgentState, at, day time.Time, questID, questType, questName, rewardCurrency string, rewardAmount int) {
	e.add("quest_complete", at, agent, day, map[string]any{
		"quest_id":        questID,
		"quest_type":      questType,
		"quest_name":      questName,
		"reward_currency": rewardCurrency,
		"reward_amount":   rewardAmount,
	})
}

func (e *Emitter) DailyLogin(agent *AgentState, at, day time.Time, streak, rewardDay int, rewardCurrency string, rewardAmount int, streakBonus bool) {
	e.add("daily_login", at, agent, day, map[string]any{
		"login_streak":    streak,
		"reward_day":      rewardDay,
		"reward_currency": rewardCurrency,
		"reward_amount":   rewardAmount,
		"is_streak_bonus": streakBonus,
	})
}

// --- live-ops events ---

func (e *Emitter) EventStart(agent *AgentState, at, day time.Time, ge *GameEvent) {
	e.add("event_start", at, agent, day, map[string]any{
		"event_id":         ge.ID,
		"event_type":       ge.Kind,
		"event_name":       ge.Name,
		"event_start_date": ge.Start.Format("2006-01-02"),
		"event_end_date":   ge.End.Format("2006-01-02"),
		"days_remaining":   ge.DaysRemaining(day),
	})
}

func (e *Emitter) EventProgress(agent *AgentState, at, day time.Time, ge *GameEvent, milestone, target, progress int, claimed bool, rewardCurrency string, rewardAmount int) {
	props := map[string]any{
		"event_id":          ge.ID,
		"event_type":        ge.Kind,
		"milestone_reached": milestone,
		"milestone_target":  target,
		"progress_value":    progress,
		"reward_claimed":    claimed,
	}
	if rewardCurrency != "" {
		props["reward_currency"] = rewardCurrency
		props["reward_amount"] = rewardAmount
	}
	e.add("event_progress", at, agent, day, props)
}

func (e *Emitter) EventComplete(agent *AgentState, at, day time.Time, ge *GameEvent, totalProgress, milestones int, rewardCurrency string, rewardAmount int) {
	e.add("event_complete", at, agent, day, map[string]any{
		"event_id":               ge.ID,
		"event_type":             ge.Kind,
		"total_progress":         totalProgress,
		"milestones_completed":   milestones,
		"total_rewards_currency": rewardCurrency,
		"total_rewards_amount":   rewardAmount,
	})
}

// --- system ---

func (e *Emitter) PlayerStateSnapshot(agent *AgentState, at, day time.Time) {
	var arenaRank, arenaRating any
	if agent.ArenaRank > 0 {
		arenaRank = agent.ArenaRank
		arenaRating = agent.ArenaRating
	}
	e.records = append(e.records, newRecord("player_state_snapshot", at, agent, day, map[string]any{
		"snapshot_date":          day.Format("2006-01-02"),
		"player_level":           agent.PlayerLevel,
		"vip_level":              agent.VIPLevel,
		"total_spent_usd":        round2(agent.TotalSpentUSD),
		"gold_balance":           agent.Gold,
		"gems_balance":           agent.Gems,
		"energy_balance":         agent.Energy,
		"summon_tickets_balance": agent.SummonTickets,
		"heroes_count":           len(agent.Heroes),
		"heroes_by_rarity":       agent.HeroesByRarity(),
		"max_hero_level":         agent.MaxHeroLevel(),
		"max_hero_stars":         agent.MaxHeroStars(),
		"team_power":             agent.TeamPower,
		"max_chapter":            agent.MaxChapter,
		"max_stage":              agent.MaxStage,
		"total_stages_cleared":   agent.TotalStagesCleared,
		"arena_rank":             arenaRank,
		"arena_rating":           arenaRating,
		"guild_id":               nullable(agent.GuildID),
		"total_sessions":         agent.TotalSessions,
		"total_playtime_sec":     agent.TotalPlaytimeSec,
		"total_gacha_pulls":      agent.TotalGachaPulls,
		"pity_counter":           agent.PityCounter,
		"last_active_date":       day.Format("2006-01-02"),
	}))
}

func (e *Emitter) TutorialStep(agent *AgentState, at, day time.Time, stepID string, stepNumber int, stepName string, durationSec int, skipped bool) {
	e.add("tutorial_step", at, agent, day, map[string]any{
		"step_id":      stepID,
		"step_number":  stepNumber,
		"step_name":    stepName,
		"duration_sec": durationSec,
		"is_skipped":   skipped,
	})
}

func (e *Emitter) TutorialComplete(agent *AgentState, at, day time.Time, totalDurationSec, completed, skipped int) {
	e.add("tutorial_complete", at, agent, day, map[string]any{
		"total_duration_sec": totalDurationSec,
		"steps_completed":    completed,
		"steps_skipped":      skipped,
	})
}

func (e *Emitter) Error(agent *AgentState, at, day time.Time, errType string, code int, message, context string) {
	props := map[string]any{
		"error_type":    errType,
		"error_code":    code,
		"error_message": message,
	}
	if context != "" {
		props["error_context"] = context
	}
	e.add("error", at, agent, day, props)
}

// nullable renders an empty string as JSON null.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
