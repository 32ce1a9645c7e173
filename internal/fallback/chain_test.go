package fallback

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
		{ID: "P1", MaxFlowM3S: 1.5, MaxPowerKW: 90, MinFrequencyHz: 25, MaxFrequencyHz: 50},
		{ID: "P2", MaxFlowM3S: 1.5, MaxPowerKW: 90, MinFrequencyHz: 25, MaxFrequencyHz: 50},
	}
}

func testForecast(steps int) model.ForecastData {
	ts := make([]time.Time, steps)
	inflow := make([]float64, steps)
	price := make([]float64, steps)
	base := time.Unix(0, 0)
	for i := 0; i < steps; i++ {
		ts[i] = base.Add(time.Duration(i) * 15 * time.Minute)
		inflow[i] = 1.0
		price[i] = 10
	}
	return model.ForecastData{Timestamps: ts, InflowM3S: inflow, PriceCPerKWh: price}
}

func TestRuleBasedAlwaysSucceeds(t *testing.T) {
	pumps := testPumps()
	base := model.SystemConstraints{L1MinM: 1, L1MaxM: 6, TunnelVolumeM3: 100000}
	forecast := testForecast(4)
	bounds := make([]constraints.StepBounds, 4)
	for i := range bounds {
		bounds[i] = constraints.StepBounds{L1MinM: base.L1MinM, L1MaxM: base.L1MaxM}
	}
	problem := constraints.BuildProblem(pumps, base, bounds,
		model.CurrentState{Timestamp: forecast.Timestamps[0], L1M: 5.5}, forecast, nil, model.NewRollingState([]string{"P1", "P2"}))

	result := RuleBased(problem)
	require.True(t, result.Success)
	require.Equal(t, model.ModeRuleBased, result.Mode)
	require.Len(t, result.L1Trajectory, 5)
}

func TestSolveFallsBackWhenMinPumpsOnUnreachable(t *testing.T) {
	pumps := testPumps()
	base := model.SystemConstraints{L1MinM: 1, L1MaxM: 6, TunnelVolumeM3: 100000, MinPumpsOn: 5}
	forecast := testForecast(2)
	bounds := make([]constraints.StepBounds, 2)
	for i := range bounds {
		bounds[i] = constraints.StepBounds{L1MinM: base.L1MinM, L1MaxM: base.L1MaxM}
	}
	problem := constraints.BuildProblem(pumps, base, bounds,
		model.CurrentState{Timestamp: forecast.Timestamps[0], L1M: 3.0}, forecast, nil, model.NewRollingState([]string{"P1", "P2"}))

	result := Solve(context.Background(), problem, DefaultTimeouts, nil)
	require.True(t, result.Success)
	require.Equal(t, model.ModeRuleBased, result.Mode)
	require.NotEmpty(t, result.RequestID)
}
