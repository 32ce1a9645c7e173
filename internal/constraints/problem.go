// Package constraints assembles the per-step decision problem the solver
// searches over: pump specs, tunnel bounds (tightened by forecast
// quality), the current state/forecast snapshot, the carried-over pump
// durations and usage hours used for fairness/duty-cycling, the risk
// tier, and the resulting objective weights. Nothing here searches for a
// schedule — that is internal/solver's job; this package only describes
// the problem and scores a candidate schedule against it.
package constraints

import (
	"time"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// StepBounds is the admissible L1 band for one horizon step. The
// rolling driver narrows or widens these per internal/quality's safety
// margin policy before building a Problem.
type StepBounds struct {
	L1MinM float64
	L1MaxM float64
}

// Problem is the fully-resolved input to one solve call (spec §4.C,
// §4.D). It is immutable once built.
type Problem struct {
	Pumps      []model.PumpSpec
	Base       model.SystemConstraints
	StepBounds []StepBounds

	Current  model.CurrentState
	Forecast model.ForecastData

	Plan *model.StrategicPlan

	Durations  map[string]model.PumpDurations
	UsageHours map[string]float64

	StepDuration time.Duration

	Risk    RiskLevel
	Weights ObjectiveWeights
}

// Horizon is the number of steps this problem spans.
func (p Problem) Horizon() int {
	return len(p.StepBounds)
}

// BuildProblem resolves risk, weights and plan bias and assembles a
// Problem ready to hand to the solver.
func BuildProblem(
	pumps []model.PumpSpec,
	base model.SystemConstraints,
	stepBounds []StepBounds,
	current model.CurrentState,
	forecast model.ForecastData,
	plan *model.StrategicPlan,
	rs *model.RollingState,
) Problem {
	risk := AssessRisk(current.L1M, base, forecast.InflowM3S)
	weights := WeightsFor(risk)
	if plan != nil {
		weights = ApplyPlanBias(weights, plan.BandAt(current.Timestamp))
	}
	// W_viol (spec §4.C point 6) is not risk-tiered: violation_penalty in
	// soft mode, 0 in hard mode, so a hard-mode solve can never buy its
	// way past the bound with a cheap penalty instead of actually
	// satisfying it.
	if base.AllowViolations {
		weights.Violation = base.ViolationPenalty
	} else {
		weights.Violation = 0
	}

	durations := make(map[string]model.PumpDurations, len(pumps))
	usage := make(map[string]float64, len(pumps))
	for _, p := range pumps {
		if rs != nil {
			durations[p.ID] = rs.PumpDurations[p.ID]
			usage[p.ID] = rs.PumpUsageHours[p.ID]
		}
	}

	return Problem{
		Pumps:        pumps,
		Base:         base,
		StepBounds:   stepBounds,
		Current:      current,
		Forecast:     forecast,
		Plan:         plan,
		Durations:    durations,
		UsageHours:   usage,
		StepDuration: forecast.StepDuration(),
		Risk:         risk,
		Weights:      weights,
	}
}
