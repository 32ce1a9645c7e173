package model

import "time"

// Mode tags which tier of the fallback chain (spec §4.E) produced a
// result.
type Mode string

const (
	ModeFull       Mode = "FULL"
	ModeSimplified Mode = "SIMPLIFIED"
	ModeRuleBased  Mode = "RULE_BASED"
)

// ScheduleEntry is one (pump, time_step) decision in a solved horizon.
type ScheduleEntry struct {
	PumpID      string
	TimeStep    int
	IsOn        bool
	FrequencyHz float64
	FlowM3S     float64
	PowerKW     float64
}

// Validate enforces invariants 1 and 2 of spec §8 for a single entry,
// given the pump's frequency band.
func (e ScheduleEntry) Validate(spec PumpSpec) error {
	if !e.IsOn {
		if e.FrequencyHz != 0 || e.FlowM3S != 0 || e.PowerKW != 0 {
			return errInvalid("pump %q step %d: is_on=false requires freq=flow=power=0", e.PumpID, e.TimeStep)
		}
		return nil
	}
	if e.FrequencyHz < spec.MinFrequencyHz || e.FrequencyHz > spec.MaxFrequencyHz {
		return errInvalid("pump %q step %d: frequency %v out of band [%v,%v]",
			e.PumpID, e.TimeStep, e.FrequencyHz, spec.MinFrequencyHz, spec.MaxFrequencyHz)
	}
	return nil
}

// ObjectiveBreakdown reports each weighted term of §4.C's objective, for
// explainability and for the SimulationRecord stream.
type ObjectiveBreakdown struct {
	Cost            float64
	Smoothness      float64
	Fairness        float64
	Safety          float64
	SpecificEnergy  float64
	Violation       float64
	Total           float64
}

// OptimizationResult is the value returned by a solve attempt at any tier
// of the fallback chain (spec §3).
type OptimizationResult struct {
	RequestID string
	Success   bool
	Mode      Mode

	Schedule     []ScheduleEntry
	L1Trajectory []float64 // length Horizon+1, starts at current L1

	TotalEnergyKWh float64
	TotalCostEUR   float64

	ViolationCount int
	MaxViolationM  float64

	SolveWallTime time.Duration

	Objective ObjectiveBreakdown

	// Explanation is populated only when an advisor/explainer is wired in;
	// the optimizer must function with this left empty.
	Explanation string
}

// HorizonSteps returns the number of time steps represented, derived from
// L1Trajectory's length (Horizon+1 samples).
func (r OptimizationResult) HorizonSteps() int {
	if len(r.L1Trajectory) == 0 {
		return 0
	}
	return len(r.L1Trajectory) - 1
}
