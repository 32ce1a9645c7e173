package solver

import (
	"context"
	"time"

	"github.com/alexha11/tunnel-mpc/internal/constraints"
	"github.com/alexha11/tunnel-mpc/internal/model"
)

// Solve runs the solver at the given mode (FULL or SIMPLIFIED; RULE_BASED
// is handled entirely by internal/fallback, which never calls here).
// Solve always recomputes cost, energy and violation counts from the
// reconstructed schedule rather than trusting the search's internal value
// function — the DP's incremental scoring is a steering heuristic only.
func Solve(ctx context.Context, problem constraints.Problem, mode model.Mode, timeout time.Duration) model.OptimizationResult {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := fullConfig
	if mode == model.ModeSimplified {
		cfg = simplifiedConfig
	}

	schedule, l1Trajectory, ok := solveDP(cctx, problem, cfg)
	elapsed := time.Since(start)
	if !ok {
		return model.OptimizationResult{Success: false, Mode: mode, SolveWallTime: elapsed}
	}

	breakdown := constraints.Evaluate(problem, schedule, l1Trajectory)
	energyKWh, costEUR := totals(problem, schedule)
	violCount, maxViol := violations(problem, l1Trajectory)

	return model.OptimizationResult{
		Success:        true,
		Mode:           mode,
		Schedule:       schedule,
		L1Trajectory:   l1Trajectory,
		TotalEnergyKWh: energyKWh,
		TotalCostEUR:   costEUR,
		ViolationCount: violCount,
		MaxViolationM:  maxViol,
		SolveWallTime:  elapsed,
		Objective:      breakdown,
	}
}

func totals(problem constraints.Problem, schedule []model.ScheduleEntry) (energyKWh, costEUR float64) {
	dtHours := problem.StepDuration.Hours()
	for _, e := range schedule {
		if !e.IsOn {
			continue
		}
		energyKWh += e.PowerKW * dtHours
		if e.TimeStep >= 0 && e.TimeStep < len(problem.Forecast.PriceCPerKWh) {
			costEUR += e.PowerKW * dtHours * problem.Forecast.PriceCPerKWh[e.TimeStep] / 100.0
		}
	}
	return energyKWh, costEUR
}

func violations(problem constraints.Problem, l1Trajectory []float64) (count int, maxViolation float64) {
	for i, l1 := range l1Trajectory {
		if i == 0 {
			continue
		}
		bounds := problem.StepBounds[i-1]
		var d float64
		switch {
		case l1 < bounds.L1MinM:
			d = bounds.L1MinM - l1
		case l1 > bounds.L1MaxM:
			d = l1 - bounds.L1MaxM
		}
		if d > 0 {
			count++
			if d > maxViolation {
				maxViolation = d
			}
		}
	}
	return count, maxViolation
}
