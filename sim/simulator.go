package sim

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// RecordSink receives the generated records and install counts. Implemented
// by the sink package; the engine never knows what format it writes.
type RecordSink interface {
	WriteRecords(records []*Record) error
	RecordInstall(source, playerType string)
}

// Simulator drives the day-by-day simulation: it creates installs, decides
// which agents return, plays out their sessions and streams the resulting
// records into the sink.
//
// All randomness flows through one Stream in a fixed draw order, so a given
// (config, seed) pair always produces the same simulation.
type Simulator struct {
	cfg      *Config
	sink     RecordSink
	stream   *Stream
	world    *WorldState
	factory  *AgentFactory
	behavior *Behavior
	emitter  *Emitter
	stats    *RunStats

	agents         []*AgentState
	installsPerDay []int

	currentDate time.Time
	dayNumber   int
}

// NewSimulator wires up a simulator for a validated config.
func NewSimulator(cfg *Config, sink RecordSink) *Simulator {
	key := NewSimulationKey(cfg.Simulation.Seed)
	stream := NewStream(key)
	return &Simulator{
		cfg:      cfg,
		sink:     sink,
		stream:   stream,
		world:    NewWorldState(cfg, stream),
		factory:  NewAgentFactory(cfg, key),
		behavior: NewBehavior(cfg),
		emitter:  NewEmitter(),
		stats:    NewRunStats(),
	}
}

// Run executes the full simulation window.
func (sim *Simulator) Run() error {
	sim.calculateInstallDistribution()

	start := sim.cfg.StartDate()
	duration := sim.cfg.Simulation.DurationDays

	for day := 0; day < duration; day++ {
		sim.dayNumber = day + 1
		sim.currentDate = start.AddDate(0, 0, day)
		sim.world.CurrentDate = sim.currentDate
		sim.world.DayNumber = sim.dayNumber

		if err := sim.simulateDay(); err != nil {
			return err
		}

		logrus.Infof("day %d/%d: %d agents, %d active, %d events so far",
			sim.dayNumber, duration, len(sim.agents), sim.stats.ActiveToday, sim.stats.TotalEvents)
		sim.stats.CloseDay()

		sim.world.AdvanceDay()
	}

	return nil
}

// Stats exposes the run counters after (or during) a run.
func (sim *Simulator) Stats() *RunStats {
	return sim.stats
}

// calculateInstallDistribution splits the configured install total across the
// run's days, either uniformly or with exponential decay, then stacks the
// bad-traffic spike on top of its day.
func (sim *Simulator) calculateInstallDistribution() {
	total := sim.cfg.Installs.Total
	duration := sim.cfg.Simulation.DurationDays
	perDay := make([]int, duration)

	switch sim.cfg.Installs.Distribution {
	case "decay":
		decay := sim.cfg.Installs.DecayRate
		if decay == 0 {
			decay = 0.02
		}
		weights := make([]float64, duration)
		totalWeight := 0.0
		for d := 0; d < duration; d++ {
			weights[d] = math.Exp(-decay * float64(d))
			totalWeight += weights[d]
		}
		assigned := 0
		for d := 0; d < duration; d++ {
			perDay[d] = int(float64(total) * weights[d] / totalWeight)
			assigned += perDay[d]
		}
		// Rounding drift goes to the earliest days.
		for i := 0; i < total-assigned; i++ {
			perDay[i%duration]++
		}
	default:
		daily := total / duration
		for d := range perDay {
			perDay[d] = daily
		}
		for i := 0; i < total-daily*duration; i++ {
			perDay[i]++
		}
	}

	if bad := sim.cfg.BadTraffic(); bad != nil {
		if idx := bad.Day - 1; idx >= 0 && idx < duration {
			perDay[idx] += bad.Volume
		}
	}

	sim.installsPerDay = perDay
}

func (sim *Simulator) simulateDay() error {
	sim.stats.ActiveToday = 0

	if err := sim.createDailyInstalls(); err != nil {
		return err
	}

	for _, agent := range sim.agents {
		if agent.IsChurned {
			continue
		}

		if sim.behavior.WillReturnToday(agent, sim.currentDate, sim.stream) {
			if err := sim.simulateAgentDay(agent); err != nil {
				return err
			}
			continue
		}

		daysSince := int(sim.currentDate.Sub(agent.InstallDate).Hours() / 24)
		if sim.stream.Chance(permanentChurnProbability(daysSince)) {
			agent.IsChurned = true
			agent.ChurnDate = sim.currentDate
			sim.stats.ChurnedAgents++
		}
	}

	return nil
}

// permanentChurnProbability is the chance a lapsed day becomes a permanent
// exit, rising with time since install.
func permanentChurnProbability(daysSince int) float64 {
	switch {
	case daysSince <= 7:
		return 0.1
	case daysSince <= 30:
		return 0.3
	case daysSince <= 60:
		return 0.5
	default:
		return 0.7
	}
}

func (sim *Simulator) createDailyInstalls() error {
	total := sim.installsPerDay[sim.dayNumber-1]

	normal := total
	badInstalls := 0
	bad := sim.cfg.BadTraffic()
	if bad != nil && bad.Day == sim.dayNumber {
		badInstalls = bad.Volume
		normal = total - badInstalls
	}

	for i := 0; i < normal; i++ {
		source := sim.selectInstallSource()
		agent := sim.factory.CreateAgent(sim.currentDate, source, sim.stream, false)
		sim.agents = append(sim.agents, agent)
		sim.sink.RecordInstall(source, string(agent.AgentType))
		sim.stats.TotalInstalls++

		if err := sim.simulateFirstSession(agent); err != nil {
			return err
		}
	}

	for i := 0; i < badInstalls; i++ {
		isBot := sim.stream.Chance(bad.BotRatio)
		agent := sim.factory.CreateAgent(sim.currentDate, bad.SourceName, sim.stream, isBot)
		agent.SourceRetentionMod = bad.RetentionModifier
		agent.SourceMonetizationMod = bad.MonetizationModifier

		sim.agents = append(sim.agents, agent)
		sim.sink.RecordInstall(bad.SourceName, string(agent.AgentType))
		sim.stats.TotalInstalls++

		if err := sim.simulateFirstSession(agent); err != nil {
			return err
		}
	}

	return nil
}

func (sim *Simulator) selectInstallSource() string {
	names := sim.cfg.InstallSourceNames()
	v := sim.stream.Float64()
	cum := 0.0
	for _, name := range names {
		cum += sim.cfg.Installs.Sources[name].Share
		if v < cum {
			return name
		}
	}
	return names[len(names)-1]
}

// flush drains the emitter into the sink.
func (sim *Simulator) flush() error {
	records := sim.emitter.Drain()
	sim.stats.TotalEvents += len(records)
	return sim.sink.WriteRecords(records)
}
