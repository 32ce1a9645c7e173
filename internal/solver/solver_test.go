package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexha11/tunnel-mpc/internal/constraints"
	"github.com/alexha11/tunnel-mpc/internal/model"
)

func testPumps() []model.PumpSpec {
	return []model.PumpSpec{
		{ID: "P1", MaxFlowM3S: 1.5, MaxPowerKW: 90, MinFrequencyHz: 25, MaxFrequencyHz: 50,
			PreferredFreqMinHz: 30, PreferredFreqMaxHz: 45},
		{ID: "P2", MaxFlowM3S: 1.5, MaxPowerKW: 90, MinFrequencyHz: 25, MaxFrequencyHz: 50,
			PreferredFreqMinHz: 30, PreferredFreqMaxHz: 45},
	}
}

func testBase() model.SystemConstraints {
	return model.SystemConstraints{
		L1MinM: 1, L1MaxM: 6, TunnelVolumeM3: 120000, MinPumpsOn: 0,
		MinOnDuration: 0, MinOffDuration: 0,
	}
}

func steadyForecast(steps int, inflow, price float64) model.ForecastData {
	ts := make([]time.Time, steps)
	inflows := make([]float64, steps)
	prices := make([]float64, steps)
	base := time.Unix(0, 0)
	for i := 0; i < steps; i++ {
		ts[i] = base.Add(time.Duration(i) * 15 * time.Minute)
		inflows[i] = inflow
		prices[i] = price
	}
	return model.ForecastData{Timestamps: ts, InflowM3S: inflows, PriceCPerKWh: prices}
}

func stepBoundsFor(base model.SystemConstraints, steps int) []constraints.StepBounds {
	out := make([]constraints.StepBounds, steps)
	for i := range out {
		out[i] = constraints.StepBounds{L1MinM: base.L1MinM, L1MaxM: base.L1MaxM}
	}
	return out
}

func TestSolveSteadyStateStaysWithinBounds(t *testing.T) {
	pumps := testPumps()
	base := testBase()
	forecast := steadyForecast(4, 1.0, 10)
	problem := constraints.BuildProblem(pumps, base, stepBoundsFor(base, 4),
		model.CurrentState{Timestamp: forecast.Timestamps[0], L1M: 3.0, Pumps: []model.PumpState{
			{ID: "P1"}, {ID: "P2"},
		}}, forecast, nil, model.NewRollingState([]string{"P1", "P2"}))

	result := Solve(context.Background(), problem, model.ModeFull, 5*time.Second)
	require.True(t, result.Success)
	require.Equal(t, model.ModeFull, result.Mode)
	require.Len(t, result.L1Trajectory, 5)
	for _, l1 := range result.L1Trajectory {
		require.GreaterOrEqual(t, l1, base.L1MinM-0.3)
		require.LessOrEqual(t, l1, base.L1MaxM+0.3)
	}
}

func TestSolveHigherInflowNeverLowersEnergy(t *testing.T) {
	pumps := testPumps()
	base := testBase()

	low := steadyForecast(4, 0.3, 10)
	high := steadyForecast(4, 1.8, 10)

	lowProblem := constraints.BuildProblem(pumps, base, stepBoundsFor(base, 4),
		model.CurrentState{Timestamp: low.Timestamps[0], L1M: 3.0}, low, nil, model.NewRollingState([]string{"P1", "P2"}))
	highProblem := constraints.BuildProblem(pumps, base, stepBoundsFor(base, 4),
		model.CurrentState{Timestamp: high.Timestamps[0], L1M: 3.0}, high, nil, model.NewRollingState([]string{"P1", "P2"}))

	lowResult := Solve(context.Background(), lowProblem, model.ModeFull, 5*time.Second)
	highResult := Solve(context.Background(), highProblem, model.ModeFull, 5*time.Second)

	require.True(t, lowResult.Success)
	require.True(t, highResult.Success)
	require.GreaterOrEqual(t, highResult.TotalEnergyKWh, lowResult.TotalEnergyKWh)
}

func TestSolveSimplifiedModeSucceeds(t *testing.T) {
	pumps := testPumps()
	base := testBase()
	forecast := steadyForecast(4, 1.0, 10)
	problem := constraints.BuildProblem(pumps, base, stepBoundsFor(base, 4),
		model.CurrentState{Timestamp: forecast.Timestamps[0], L1M: 3.0}, forecast, nil, model.NewRollingState([]string{"P1", "P2"}))

	result := Solve(context.Background(), problem, model.ModeSimplified, 5*time.Second)
	require.True(t, result.Success)
	require.Equal(t, model.ModeSimplified, result.Mode)
}

func TestSolveReturnsFailureWhenMinPumpsOnUnreachable(t *testing.T) {
	pumps := testPumps()
	base := testBase()
	base.MinPumpsOn = 5 // more pumps than the fleet has
	forecast := steadyForecast(2, 1.0, 10)
	problem := constraints.BuildProblem(pumps, base, stepBoundsFor(base, 2),
		model.CurrentState{Timestamp: forecast.Timestamps[0], L1M: 3.0}, forecast, nil, model.NewRollingState([]string{"P1", "P2"}))

	result := Solve(context.Background(), problem, model.ModeFull, 5*time.Second)
	require.False(t, result.Success)
}
