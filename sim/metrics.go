package sim

import (
	"gonum.org/v1/gonum/stat"
)

// RunStats accumulates run-level counters and the per-day activity series.
type RunStats struct {
	TotalEvents   int
	TotalInstalls int
	ChurnedAgents int

	// ActiveToday is reset by the simulator at the start of each day.
	ActiveToday int

	DailyActives []float64
	DailyEvents  []float64

	lastEventTotal int
}

// NewRunStats creates an empty stats accumulator.
func NewRunStats() *RunStats {
	return &RunStats{}
}

// CloseDay folds the current day's counters into the per-day series.
func (r *RunStats) CloseDay() {
	r.DailyActives = append(r.DailyActives, float64(r.ActiveToday))
	r.DailyEvents = append(r.DailyEvents, float64(r.TotalEvents-r.lastEventTotal))
	r.lastEventTotal = r.TotalEvents
}

// RunSummary is the end-of-run digest logged by the CLI.
type RunSummary struct {
	TotalEvents   int
	TotalInstalls int
	ChurnedAgents int
	Days          int

	MeanDailyActives   float64
	StddevDailyActives float64
	MeanDailyEvents    float64
	StddevDailyEvents  float64
}

// Summary computes the end-of-run digest from the per-day series.
func (r *RunStats) Summary() RunSummary {
	s := RunSummary{
		TotalEvents:   r.TotalEvents,
		TotalInstalls: r.TotalInstalls,
		ChurnedAgents: r.ChurnedAgents,
		Days:          len(r.DailyActives),
	}
	if len(r.DailyActives) > 0 {
		s.MeanDailyActives = stat.Mean(r.DailyActives, nil)
		s.StddevDailyActives = stat.StdDev(r.DailyActives, nil)
	}
	if len(r.DailyEvents) > 0 {
		s.MeanDailyEvents = stat.Mean(r.DailyEvents, nil)
		s.StddevDailyEvents = stat.StdDev(r.DailyEvents, nil)
	}
	return s
}
