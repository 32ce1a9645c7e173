package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

func testPumps() []model.PumpSpec {
	return []model.PumpSpec{
		{ID: "P1", MaxFlowM3S: 2, MaxPowerKW: 100, MinFrequencyHz: 30, MaxFrequencyHz: 50,
			PreferredFreqMinHz: 35, PreferredFreqMaxHz: 48},
		{ID: "P2", MaxFlowM3S: 2, MaxPowerKW: 100, MinFrequencyHz: 30, MaxFrequencyHz: 50,
			PreferredFreqMinHz: 35, PreferredFreqMaxHz: 48},
	}
}

func testProblem() Problem {
	pumps := testPumps()
	forecast := model.ForecastData{
		Timestamps:   []time.Time{time.Unix(0, 0), time.Unix(900, 0)},
		InflowM3S:    []float64{1.0, 1.0},
		PriceCPerKWh: []float64{10, 10},
	}
	bounds := []StepBounds{{L1MinM: 1, L1MaxM: 5}, {L1MinM: 1, L1MaxM: 5}}
	return BuildProblem(pumps, testBounds(), bounds,
		model.CurrentState{Timestamp: time.Unix(0, 0), L1M: 3.0}, forecast, nil, model.NewRollingState([]string{"P1", "P2"}))
}

func TestEvaluateZeroScheduleHasNoCost(t *testing.T) {
	problem := testProblem()
	schedule := []model.ScheduleEntry{
		{PumpID: "P1", TimeStep: 0, IsOn: false},
		{PumpID: "P2", TimeStep: 0, IsOn: false},
	}
	l1 := []float64{3.0, 3.0 + 1.0*900/100000}
	breakdown := Evaluate(problem, schedule, l1)
	require.Zero(t, breakdown.Cost)
	require.Zero(t, breakdown.Violation)
}

func TestEvaluatePenalizesL1NearBound(t *testing.T) {
	problem := testProblem()
	schedule := []model.ScheduleEntry{
		{PumpID: "P1", TimeStep: 0, IsOn: false},
		{PumpID: "P2", TimeStep: 0, IsOn: false},
	}
	safeL1 := []float64{3.0, 3.0}
	nearBoundL1 := []float64{3.0, 4.9}
	safe := Evaluate(problem, schedule, safeL1)
	risky := Evaluate(problem, schedule, nearBoundL1)
	require.Greater(t, risky.Safety, safe.Safety)
}

func TestEvaluatePenalizesHardViolation(t *testing.T) {
	problem := testProblem()
	schedule := []model.ScheduleEntry{
		{PumpID: "P1", TimeStep: 0, IsOn: false},
		{PumpID: "P2", TimeStep: 0, IsOn: false},
	}
	l1 := []float64{3.0, 5.3}
	breakdown := Evaluate(problem, schedule, l1)
	require.Greater(t, breakdown.Violation, 0.0)
}
