package sim

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlayerType is a spending/engagement archetype assigned at install time.
type PlayerType string

const (
	PlayerWhale       PlayerType = "whale"
	PlayerDolphin     PlayerType = "dolphin"
	PlayerMinnow      PlayerType = "minnow"
	PlayerFreeEngaged PlayerType = "free_engaged"
	PlayerFreeCasual  PlayerType = "free_casual"
	PlayerFreeChurner PlayerType = "free_churner"
)

// IsPayer reports whether the archetype ever spends real money.
func (p PlayerType) IsPayer() bool {
	switch p {
	case PlayerWhale, PlayerDolphin, PlayerMinnow:
		return true
	}
	return false
}

// HeroRarity ranks heroes from common to legendary.
type HeroRarity string

const (
	RarityCommon    HeroRarity = "common"
	RarityRare      HeroRarity = "rare"
	RarityEpic      HeroRarity = "epic"
	RarityLegendary HeroRarity = "legendary"
)

// rarityRollOrder is the order gacha rolls are resolved in.
var rarityRollOrder = []HeroRarity{RarityLegendary, RarityEpic, RarityRare, RarityCommon}

// HeroClass is the combat role of a hero template.
type HeroClass string

const (
	ClassWarrior HeroClass = "warrior"
	ClassMage    HeroClass = "mage"
	ClassArcher  HeroClass = "archer"
	ClassHealer  HeroClass = "healer"
	ClassTank    HeroClass = "tank"
)

var heroClasses = []HeroClass{ClassWarrior, ClassMage, ClassArcher, ClassHealer, ClassTank}

// Platform is a mobile OS family.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// HeroTemplate is one entry of the static world hero catalog.
type HeroTemplate struct {
	ID        string
	Name      string
	Rarity    HeroRarity
	Class     HeroClass
	BasePower int
}

// HeroInstance is a hero owned by a single agent.
type HeroInstance struct {
	Template   *HeroTemplate
	Level      int
	Stars      int
	Duplicates int
}

const (
	heroPowerPerLevel  = 10
	heroStarMultiplier = 1.2
)

// Power computes the instance's combat power from base power, level and stars.
func (h *HeroInstance) Power() int {
	base := float64(h.Template.BasePower + (h.Level-1)*heroPowerPerLevel)
	return int(base * math.Pow(heroStarMultiplier, float64(h.Stars-1)))
}

// Guild is a shared social group agents join and fight the boss in.
// The boss resets to full HP every day and levels up when killed.
type Guild struct {
	ID                 string
	Name               string
	MemberCount        int
	MaxMembers         int
	BossLevel          int
	BossHPRemainingPct float64
}

// IsFull reports whether the guild is at member capacity.
func (g *Guild) IsFull() bool {
	return g.MemberCount >= g.MaxMembers
}

// GachaBanner is a pull pool active during a date window. The standard
// banner spans the whole run; limited banners rotate in 14-day windows.
type GachaBanner struct {
	ID           string
	Kind         string // "standard" or "limited"
	FeaturedHero string // hero template id, empty on the standard banner
	Start        time.Time
	End          time.Time // inclusive
}

// IsActive reports whether the banner is live on the given calendar day.
func (b *GachaBanner) IsActive(day time.Time) bool {
	if b.Kind == "standard" {
		return true
	}
	return !day.Before(b.Start) && !day.After(b.End)
}

// EventMilestone is one rung of a game event's reward ladder. Which of the
// requirement fields is set depends on the event kind.
type EventMilestone struct {
	Day            int
	PullsRequired  int
	SpendUSD       int
	TokensRequired int
	RewardCurrency string
	RewardAmount   int
}

// GameEvent is a scheduled live-ops activity with a milestone ladder.
type GameEvent struct {
	ID         string
	Kind       string // login_event, summon_event, spending_event, collection_event
	Name       string
	Start      time.Time
	End        time.Time // inclusive
	Milestones []EventMilestone
}

// IsActive reports whether the event runs on the given calendar day.
func (e *GameEvent) IsActive(day time.Time) bool {
	return !day.Before(e.Start) && !day.After(e.End)
}

// DaysRemaining is the number of days until the event ends.
func (e *GameEvent) DaysRemaining(day time.Time) int {
	return int(e.End.Sub(day).Hours() / 24)
}

// DailyQuestProgress tracks one daily quest slot for an agent.
type DailyQuestProgress struct {
	ID            string
	Name          string
	Target        int
	Current       int
	Completed     bool
	RewardClaimed bool
}

// newEventID returns a globally unique analytics event id. Record ids are the
// one place randomness outside the simulation stream is allowed; they carry
// no simulation state.
func newEventID() string {
	return "evt_" + uuid.NewString()
}

// newUserID formats the sequential per-run user id.
func newUserID(seq int) string {
	return fmt.Sprintf("u_%06d", seq)
}

// newDeviceID formats the sequential per-run device id.
func newDeviceID(seq int) string {
	return fmt.Sprintf("d_%06d", seq)
}

// newSessionID derives a session id from a fresh UUID's first 12 hex chars.
func newSessionID() string {
	return "s_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// newTransactionID formats an IAP transaction id from the purchase timestamp.
func newTransactionID(at time.Time) string {
	return fmt.Sprintf("txn_%d", at.UnixMilli())
}

// stageID formats the canonical ch/st stage identifier.
func stageID(chapter, stage int) string {
	return fmt.Sprintf("ch%02d_st%02d", chapter, stage)
}
