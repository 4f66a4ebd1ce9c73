package sim

import (
	"crypto/md5"
	"fmt"
	"time"
)

// countryLanguages maps store country to device language.
var countryLanguages = map[string]string{
	"RU":    "ru",
	"US":    "en",
	"DE":    "de",
	"BR":    "pt",
	"JP":    "ja",
	"KR":    "ko",
	"other": "en",
}

// ABGroup deterministically assigns a variant for (seed, test, user). The
// assignment hashes the identity triple instead of drawing from the run
// stream, so a user keeps the same variant no matter when during the run the
// test activates for them. The bucket is the full 128-bit digest reduced
// mod 10000, folded byte by byte.
func ABGroup(userID, testName string, variants []string, weights []float64, key SimulationKey) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%d:%s:%s", int64(key), testName, userID)))
	bucket := 0
	for _, b := range sum {
		bucket = (bucket<<8 | int(b)) % 10000
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	v := float64(bucket) / 10000.0
	cum := 0.0
	for i, w := range weights {
		cum += w / total
		if v < cum {
			return variants[i]
		}
	}
	return variants[len(variants)-1]
}

// AgentFactory mints agents with sequential ids and config-driven attributes.
type AgentFactory struct {
	cfg     *Config
	key     SimulationKey
	counter int
}

// NewAgentFactory creates a factory bound to one run.
func NewAgentFactory(cfg *Config, key SimulationKey) *AgentFactory {
	return &AgentFactory{cfg: cfg, key: key}
}

// CreateAgent mints a new agent installed on the given day via the given
// source. Bots are forced into the free_churner archetype.
func (f *AgentFactory) CreateAgent(installDate time.Time, source string, s *Stream, isBot bool) *AgentState {
	f.counter++

	playerType := f.selectPlayerType(s, isBot)
	platform, model, osVersion := f.selectDevice(s)
	country := f.selectCountry(s)

	agent := &AgentState{
		UserID:        newUserID(f.counter),
		DeviceID:      newDeviceID(f.counter),
		AgentType:     playerType,
		InstallDate:   installDate,
		InstallSource: source,
		Country:       country,
		Platform:      platform,
		DeviceModel:   model,
		OSVersion:     osVersion,
		AppVersion:    f.selectAppVersion(s),
		Language:      languageFor(country),
		ABTests:       map[string]string{},

		PlayerLevel:    1,
		CurrentChapter: 1,
		CurrentStage:   1,
		MaxChapter:     1,
		MaxStage:       1,

		Gold:          f.cfg.Economy.Initial.Gold,
		Gems:          f.cfg.Economy.Initial.Gems,
		SummonTickets: f.cfg.Economy.Initial.SummonTickets,
		Energy:        f.cfg.Economy.Initial.Energy,
		MaxEnergy:     f.cfg.Economy.Energy.Max,

		Heroes:        map[string]*HeroInstance{},
		EventProgress: map[string]*AgentEventProgress{},

		ArenaRating:        f.cfg.Social.Arena.RatingStart,
		ArenaAttemptsToday: f.cfg.Social.Arena.DailyAttempts,

		SourceRetentionMod:    1.0,
		SourceMonetizationMod: 1.0,
		IsBot:                 isBot,
	}

	if src, ok := f.cfg.Installs.Sources[source]; ok {
		if src.RetentionModifier != 0 {
			agent.SourceRetentionMod = src.RetentionModifier
		}
		if src.MonetizationModifier != 0 {
			agent.SourceMonetizationMod = src.MonetizationModifier
		}
	}

	f.assignABTests(agent)

	return agent
}

func (f *AgentFactory) selectPlayerType(s *Stream, isBot bool) PlayerType {
	if isBot {
		return PlayerFreeChurner
	}
	names := f.cfg.PlayerTypeNames()
	v := s.Float64()
	cum := 0.0
	for _, name := range names {
		cum += f.cfg.PlayerTypes[name].Share
		if v < cum {
			return PlayerType(name)
		}
	}
	return PlayerType(names[len(names)-1])
}

func (f *AgentFactory) selectDevice(s *Stream) (Platform, string, string) {
	iosShare := 0.45
	if share, ok := f.cfg.Devices.Platforms["ios"]; ok {
		iosShare = share
	}
	if s.Float64() < iosShare {
		osVersion := fmt.Sprintf("%d.%d", s.IntBetween(15, 17), s.IntBetween(0, 5))
		return PlatformIOS, Pick(s, f.cfg.Devices.IOSModels), osVersion
	}
	osVersion := fmt.Sprintf("%d", s.IntBetween(11, 14))
	return PlatformAndroid, Pick(s, f.cfg.Devices.AndroidModels), osVersion
}

func (f *AgentFactory) selectCountry(s *Stream) string {
	v := s.Float64()
	cum := 0.0
	for _, country := range f.cfg.CountryNames() {
		cum += f.cfg.Devices.Countries[country]
		if v < cum {
			return country
		}
	}
	return "other"
}

func (f *AgentFactory) selectAppVersion(s *Stream) string {
	versions := f.cfg.Devices.AppVersions
	idx := s.WeightedIndex(f.cfg.Devices.AppVersionWeights)
	if idx >= len(versions) {
		idx = len(versions) - 1
	}
	return versions[idx]
}

// assignABTests assigns every enabled test whose activation is immediate.
// Tests gated on days_since_install are assigned later by the simulator.
func (f *AgentFactory) assignABTests(agent *AgentState) {
	for _, name := range f.cfg.ABTestNames() {
		t := f.cfg.ABTests[name]
		if !t.Enabled || t.DeferredByInstallAge() {
			continue
		}
		if len(t.Variants) > 0 && len(t.Weights) > 0 {
			agent.ABTests[name] = ABGroup(agent.UserID, name, t.Variants, t.Weights, f.key)
		}
	}
}

func languageFor(country string) string {
	if lang, ok := countryLanguages[country]; ok {
		return lang
	}
	return "en"
}
