package constraints

import "github.com/alexha11/tunnel-mpc/internal/model"

// ObjectiveWeights holds the per-term multipliers of the weighted
// objective from spec §4.C:
//
//	J = w_cost*J_cost + w_smooth*J_smooth + w_fair*J_fair +
//	    w_safety*J_safety + w_se*J_specific_energy + w_viol*J_viol
type ObjectiveWeights struct {
	Cost           float64
	Smoothness     float64
	Fairness       float64
	Safety         float64
	SpecificEnergy float64
	Violation      float64
}

// presets maps each risk tier to its base objective weights (spec
// §4.C.2). Safety weight dominates as risk climbs; cost weight recedes.
// Violation is deliberately absent here: W_viol is not risk-tiered, it's
// violation_penalty in soft mode or 0 in hard mode, set by BuildProblem
// from SystemConstraints once the risk-tier preset has been resolved.
var presets = map[RiskLevel]ObjectiveWeights{
	RiskLow: {
		Cost: 1.0, Smoothness: 0.3, Fairness: 0.2,
		Safety: 0.5, SpecificEnergy: 0.2,
	},
	RiskNormal: {
		Cost: 0.8, Smoothness: 0.3, Fairness: 0.2,
		Safety: 1.0, SpecificEnergy: 0.2,
	},
	RiskHigh: {
		Cost: 0.4, Smoothness: 0.2, Fairness: 0.1,
		Safety: 2.5, SpecificEnergy: 0.1,
	},
	RiskCritical: {
		Cost: 0.1, Smoothness: 0.1, Fairness: 0.05,
		Safety: 5.0, SpecificEnergy: 0.05,
	},
}

// WeightsFor returns the base weight preset for a risk tier.
func WeightsFor(risk RiskLevel) ObjectiveWeights {
	w, ok := presets[risk]
	if !ok {
		return presets[RiskNormal]
	}
	return w
}

// ApplyPlanBias nudges a preset per the active strategic band label (spec
// §4.C.1). A PRE-DRAIN band favors safety/cost trade toward draining
// ahead of a forecast surge; RIDE-OUT raises the safety weight; HOLD
// raises the smoothness weight; NORMAL leaves the risk-tier preset
// untouched. No band ever relaxes the violation weight.
func ApplyPlanBias(w ObjectiveWeights, label model.StrategyLabel) ObjectiveWeights {
	switch label {
	case "PRE-DRAIN":
		w.Safety *= 1.3
		w.Cost *= 0.8
	case "RIDE-OUT":
		w.Safety *= 1.3
	case "HOLD":
		w.Smoothness *= 1.3
	}
	return w
}
