package model

import "time"

// PumpDurations tracks how long a pump has continuously held its current
// on/off state.
type PumpDurations struct {
	OnStreak  time.Duration
	OffStreak time.Duration
}

// ForecastErrorSample is one entry in the forecast-quality ring buffer
// (spec §3, §4.G): a (forecast, actual, error%) triple recorded for
// inflow, price and L1 at a single step.
type ForecastErrorSample struct {
	At time.Time

	InflowForecastM3S float64
	InflowActualM3S   float64

	PriceForecastCPerKWh float64
	PriceActualCPerKWh   float64

	L1PredictedM float64
	L1ActualM    float64
}

// InflowErrorPct is the absolute percentage error of the inflow forecast.
func (s ForecastErrorSample) InflowErrorPct() float64 {
	return absPct(s.InflowForecastM3S, s.InflowActualM3S)
}

// PriceErrorPct is the absolute percentage error of the price forecast.
func (s ForecastErrorSample) PriceErrorPct() float64 {
	return absPct(s.PriceForecastCPerKWh, s.PriceActualCPerKWh)
}

// L1ErrorM is the absolute error (meters) of the L1 prediction.
func (s ForecastErrorSample) L1ErrorM() float64 {
	d := s.L1PredictedM - s.L1ActualM
	if d < 0 {
		return -d
	}
	return d
}

func absPct(forecast, actual float64) float64 {
	if actual == 0 {
		if forecast == 0 {
			return 0
		}
		return 100
	}
	d := (forecast - actual) / actual * 100
	if d < 0 {
		return -d
	}
	return d
}

// RollingState is owned exclusively by the rolling driver (internal/rolling)
// and mutated only between steps. The optimizer never sees this type
// directly — it receives immutable snapshots derived from it.
type RollingState struct {
	PumpDurations map[string]PumpDurations
	PumpUsageHours map[string]float64
	LastFlushTime  time.Time
	CurrentlyRunning map[string]bool
	// CurrentFrequencyHz is the frequency each pump was committed to run
	// at in the last applied time_step=0 schedule entry (0 when off).
	// Together with CurrentlyRunning it lets the rolling driver
	// reconstruct the closed-loop CurrentState.Pumps it feeds into the
	// next solve, instead of re-reading a historical replay's pump state.
	CurrentFrequencyHz map[string]float64

	// ForecastErrorWindow is a slot for forecast-error samples alongside
	// the rest of RollingState. The rolling driver does not fill it: it
	// records samples in the internal/quality tracker, which keeps its own
	// bounded window.
	ForecastErrorWindow []ForecastErrorSample
}

// NewRollingState allocates a RollingState for the given pump fleet.
func NewRollingState(pumpIDs []string) *RollingState {
	rs := &RollingState{
		PumpDurations:      make(map[string]PumpDurations, len(pumpIDs)),
		PumpUsageHours:     make(map[string]float64, len(pumpIDs)),
		CurrentlyRunning:   make(map[string]bool, len(pumpIDs)),
		CurrentFrequencyHz: make(map[string]float64, len(pumpIDs)),
	}
	for _, id := range pumpIDs {
		rs.PumpDurations[id] = PumpDurations{}
		rs.PumpUsageHours[id] = 0
		rs.CurrentlyRunning[id] = false
		rs.CurrentFrequencyHz[id] = 0
	}
	return rs
}

// SimulationRecord is emitted once per rolling-driver step (spec §6).
type SimulationRecord struct {
	RequestID string
	StepIndex int
	WallTime  time.Time

	State        CurrentState
	Schedule     []ScheduleEntry
	StepDuration time.Duration

	L1Trajectory []float64
	Mode         Mode

	Objective  ObjectiveBreakdown
	Violations int

	Plan      *StrategicPlan
	Emergency bool
}

// ComparisonReport is produced once at the end of a rolling simulation by
// internal/comparator (spec §4.I).
type ComparisonReport struct {
	Metrics []MetricComparison
}

// MetricComparison is one row of ComparisonReport: optimized vs baseline,
// plus the percent delta.
type MetricComparison struct {
	Name      string
	Optimized float64
	Baseline  float64
	DeltaPct  float64
}
