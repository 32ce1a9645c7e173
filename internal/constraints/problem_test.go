package constraints

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// TestNoOpAdvisorIdempotence is the property-based law: omitting a
// StrategicPlan entirely must produce the same objective weights as
// passing a plan whose every band is labeled NORMAL.
func TestNoOpAdvisorIdempotence(t *testing.T) {
	pumps := []model.PumpSpec{{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 25, MaxFrequencyHz: 50}}
	base := model.SystemConstraints{L1MinM: 1, L1MaxM: 6, TunnelVolumeM3: 100000, MinPumpsOn: 1}
	now := time.Unix(0, 0)
	current := model.CurrentState{Timestamp: now, L1M: 3.0}
	forecast := model.ForecastData{
		Timestamps:   []time.Time{now.Add(15 * time.Minute)},
		InflowM3S:    []float64{0.5},
		PriceCPerKWh: []float64{10},
	}
	bounds := []StepBounds{{L1MinM: base.L1MinM, L1MaxM: base.L1MaxM}}
	rs := model.NewRollingState([]string{"P1"})

	withoutPlan := BuildProblem(pumps, base, bounds, current, forecast, nil, rs)

	normalPlan := &model.StrategicPlan{
		Type: model.PlanBalance,
		Bands: []model.PlanBand{
			{Start: now, End: now.Add(time.Hour), Strategy: model.LabelNormal},
		},
	}
	withNormalPlan := BuildProblem(pumps, base, bounds, current, forecast, normalPlan, rs)

	require.Equal(t, withoutPlan.Weights, withNormalPlan.Weights)
	require.Equal(t, withoutPlan.Risk, withNormalPlan.Risk)
}
