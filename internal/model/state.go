package model

import "time"

// PumpState is the observed on/off/frequency tuple for one pump, as part
// of CurrentState.
type PumpState struct {
	ID            string
	IsOn          bool
	FrequencyHz   float64
}

// CurrentState is the per-step snapshot pulled from a HistoricalDataSource
// (or carried forward by the rolling driver — see internal/rolling).
type CurrentState struct {
	Timestamp  time.Time
	L1M        float64
	InflowM3S  float64
	OutflowM3S float64
	PriceCPerKWh float64
	Pumps      []PumpState
}

// CountOn returns how many pumps report IsOn=true.
func (s CurrentState) CountOn() int {
	n := 0
	for _, p := range s.Pumps {
		if p.IsOn {
			n++
		}
	}
	return n
}

// ForecastData holds aligned sequences of length Horizon. All three slices
// must have identical length and constant Δt between timestamps — see
// Validate.
type ForecastData struct {
	Timestamps      []time.Time
	InflowM3S       []float64
	PriceCPerKWh    []float64
}

// Validate enforces the alignment invariant of spec §3.
func (f ForecastData) Validate() error {
	n := len(f.Timestamps)
	if n == 0 {
		return errInvalid("forecast must have at least one step")
	}
	if len(f.InflowM3S) != n || len(f.PriceCPerKWh) != n {
		return errInvalid("forecast sequences must have identical length: timestamps=%d inflow=%d price=%d",
			n, len(f.InflowM3S), len(f.PriceCPerKWh))
	}
	if n < 2 {
		return nil
	}
	dt := f.Timestamps[1].Sub(f.Timestamps[0])
	if dt <= 0 {
		return errInvalid("forecast timestamps must be strictly increasing")
	}
	for i := 2; i < n; i++ {
		got := f.Timestamps[i].Sub(f.Timestamps[i-1])
		if got != dt {
			return errInvalid("forecast timestep must be constant: step %d is %v, expected %v", i, got, dt)
		}
	}
	return nil
}

// Horizon is the number of steps in the forecast.
func (f ForecastData) Horizon() int {
	return len(f.Timestamps)
}

// StepDuration returns the constant Δt between forecast samples.
func (f ForecastData) StepDuration() time.Duration {
	if len(f.Timestamps) < 2 {
		return 0
	}
	return f.Timestamps[1].Sub(f.Timestamps[0])
}
