package solver

import (
	"context"
	"math"

	"github.com/alexha11/tunnel-mpc/internal/constraints"
	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/tunnel"
)

// dpConfig tunes the search's fidelity/cost trade-off. FULL mode uses a
// finer grid and more frequency levels than SIMPLIFIED.
type dpConfig struct {
	L1Buckets       int
	FrequencyLevels int
}

var fullConfig = dpConfig{L1Buckets: 60, FrequencyLevels: 5}
var simplifiedConfig = dpConfig{L1Buckets: 20, FrequencyLevels: 2}

const negInf = -1e100

// l1Grid discretizes [lo, hi] into n+1 buckets.
type l1Grid struct {
	lo, hi float64
	n      int
}

// newL1Grid discretizes [lo, hi]. A degenerate or inverted range (hard
// mode with l1_min == l1_max, or a quality-tracker squeeze that closes
// the window entirely) collapses to a single-point grid rather than
// silently widening hi past lo — widening here would let the DP treat a
// truly infeasible window as solvable. The degenerate case still relies
// on solveDP pruning transitions against effectiveBounds to actually
// reject those states; the grid alone no longer papers over it.
func newL1Grid(lo, hi float64, n int) l1Grid {
	if hi <= lo {
		return l1Grid{lo: lo, hi: lo, n: 0}
	}
	if n < 2 {
		n = 2
	}
	return l1Grid{lo: lo, hi: hi, n: n}
}

func (g l1Grid) toIdx(l1 float64) int {
	if g.n == 0 {
		return 0
	}
	if l1 <= g.lo {
		return 0
	}
	if l1 >= g.hi {
		return g.n
	}
	f := (l1 - g.lo) / (g.hi - g.lo)
	return int(math.Round(f * float64(g.n)))
}

func (g l1Grid) toL1(idx int) float64 {
	if g.n == 0 {
		return g.lo
	}
	if idx <= 0 {
		return g.lo
	}
	if idx >= g.n {
		return g.hi
	}
	f := float64(idx) / float64(g.n)
	return g.lo + f*(g.hi-g.lo)
}

// solveDP runs the discretized dynamic program and returns the reconstructed
// schedule/trajectory, or ok=false if no feasible path exists across the
// horizon.
func solveDP(ctx context.Context, problem constraints.Problem, cfg dpConfig) (schedule []model.ScheduleEntry, l1Trajectory []float64, ok bool) {
	horizon := problem.Horizon()
	if horizon == 0 {
		return nil, []float64{problem.Current.L1M}, true
	}

	lo, hi := gridRange(problem)
	grid := newL1Grid(lo, hi, cfg.L1Buckets)
	nStates := grid.n + 1

	currentlyOn := make(map[string]bool, len(problem.Pumps))
	for _, ps := range problem.Current.Pumps {
		currentlyOn[ps.ID] = ps.IsOn
	}

	dp := make([]float64, nStates)
	next := make([]float64, nStates)
	for i := range dp {
		dp[i] = negInf
	}
	initIdx := grid.toIdx(problem.Current.L1M)
	dp[initIdx] = 0

	choice := make([][]int, horizon)
	chosen := make([][]action, horizon)
	for t := 0; t < horizon; t++ {
		choice[t] = make([]int, nStates)
		chosen[t] = make([]action, nStates)
		for s := range choice[t] {
			choice[t][s] = -1
		}
	}

	stepSeconds := problem.StepDuration.Seconds()

	for t := 0; t < horizon; t++ {
		select {
		case <-ctx.Done():
			return nil, nil, false
		default:
		}

		var locks []pumpLock
		if t == 0 {
			locks = locksFromState(problem.Pumps, currentlyOn, problem.Durations, problem.Base)
		} else {
			locks = make([]pumpLock, len(problem.Pumps))
		}
		actions := generateActions(problem.Pumps, locks, problem.Base.MinPumpsOn, cfg.FrequencyLevels)
		if len(actions) == 0 {
			return nil, nil, false
		}

		bounds := problem.StepBounds[t]
		loEff, hiEff := effectiveBounds(problem.Base, bounds)
		inflow := problem.Forecast.InflowM3S[t]
		price := problem.Forecast.PriceCPerKWh[t]

		for i := range next {
			next[i] = negInf
		}

		for s := 0; s < nStates; s++ {
			if dp[s] <= negInf/2 {
				continue
			}
			l1 := grid.toL1(s)

			bestValue := negInf
			bestNext := -1
			var bestAction action

			for _, a := range actions {
				totalFlow := 0.0
				power := 0.0
				for i, p := range problem.Pumps {
					if !a.isOn(i) {
						continue
					}
					totalFlow += tunnel.NominalFlowM3S(p, a.frequencyHz)
					power += tunnel.NominalPowerKW(p, a.frequencyHz, l1)
				}
				nextL1 := tunnel.NextLevelM(l1, inflow, totalFlow, stepSeconds, problem.Base.TunnelVolumeM3)
				if nextL1 < loEff || nextL1 > hiEff {
					// Outside even the soft-mode tolerance window: this
					// transition is infeasible, not merely penalized, so
					// prune it instead of letting stepValue's penalty buy
					// a way past the bound.
					continue
				}
				ns := grid.toIdx(nextL1)

				incremental := -stepValue(problem, bounds, power, price, nextL1)
				v := dp[s] + incremental
				if v > next[ns] {
					next[ns] = v
				}
				if v > bestValue {
					bestValue = v
					bestNext = ns
					bestAction = a
				}
			}
			if bestNext >= 0 {
				choice[t][s] = bestNext
				chosen[t][s] = bestAction
			}
		}
		dp, next = next, dp
	}

	bestVal := negInf
	bestState := -1
	for i, v := range dp {
		if v > bestVal {
			bestVal = v
			bestState = i
		}
	}
	if bestState < 0 {
		return nil, nil, false
	}

	cur := initIdx
	l1Trajectory = make([]float64, 0, horizon+1)
	l1Trajectory = append(l1Trajectory, problem.Current.L1M)
	schedule = make([]model.ScheduleEntry, 0, horizon*len(problem.Pumps))

	l1 := problem.Current.L1M
	for t := 0; t < horizon; t++ {
		ns := choice[t][cur]
		if ns < 0 {
			return nil, nil, false
		}
		a := chosen[t][cur]
		inflow := problem.Forecast.InflowM3S[t]
		totalFlow := 0.0
		for i, p := range problem.Pumps {
			on := a.isOn(i)
			var flow, power float64
			if on {
				flow = tunnel.NominalFlowM3S(p, a.frequencyHz)
				power = tunnel.NominalPowerKW(p, a.frequencyHz, l1)
				totalFlow += flow
			}
			schedule = append(schedule, model.ScheduleEntry{
				PumpID: p.ID, TimeStep: t, IsOn: on,
				FrequencyHz: boolFreq(on, a.frequencyHz),
				FlowM3S:     flow, PowerKW: power,
			})
		}
		l1 = tunnel.NextLevelM(l1, inflow, totalFlow, stepSeconds, problem.Base.TunnelVolumeM3)
		l1Trajectory = append(l1Trajectory, l1)
		cur = ns
	}
	return schedule, l1Trajectory, true
}

func boolFreq(on bool, freq float64) float64 {
	if !on {
		return 0
	}
	return freq
}

// stepValue is the DP's per-step cost estimate (cost + safety + violation),
// used only to steer the search. The solver's returned ObjectiveBreakdown is
// always recomputed exactly from the reconstructed path via
// constraints.Evaluate, never trusted from this estimate. The safety and
// violation terms mirror constraints.safetyTerm/violationTerm's formulas
// (J_safety, J_viol) so the heuristic the DP searches against doesn't
// diverge from what it's ultimately scored on.
func stepValue(problem constraints.Problem, bounds constraints.StepBounds, powerKW, priceCPerKWh, nextL1 float64) float64 {
	dtHours := problem.StepDuration.Hours()
	cost := powerKW * dtHours * priceCPerKWh / 100.0

	center := (bounds.L1MaxM + bounds.L1MinM) / 2
	d := nextL1 - center
	safety := d*d - 50*(nextL1-bounds.L1MinM) - 50*(bounds.L1MaxM-nextL1)

	tolerance := problem.Base.ViolationToleranceM
	viol := capExcess(bounds.L1MinM-nextL1, tolerance) + capExcess(nextL1-bounds.L1MaxM, tolerance)

	w := problem.Weights
	return w.Cost*cost + w.Safety*safety + w.Violation*viol
}

// capExcess returns excess clamped to [0, tolerance] when tolerance is
// positive (a non-positive tolerance leaves the excess unclamped); mirrors
// constraints.capExcess (unexported there, so not shared directly — the
// DP's scoring is a heuristic copy, never the source of truth).
func capExcess(excess, tolerance float64) float64 {
	if excess <= 0 {
		return 0
	}
	if tolerance > 0 && excess > tolerance {
		return tolerance
	}
	return excess
}

// effectiveBounds is the L1 window a transition must land inside to be
// considered feasible at all: the step's hard bounds in hard mode, or
// those bounds expanded by violation_tolerance_m in soft mode (spec
// §4.C point 6). Transitions landing outside this window are pruned in
// solveDP, not merely penalized — violation_penalty only prices how much
// of the allowed slack inside this window gets used.
func effectiveBounds(base model.SystemConstraints, bounds constraints.StepBounds) (lo, hi float64) {
	if base.AllowViolations {
		return bounds.L1MinM - base.ViolationToleranceM, bounds.L1MaxM + base.ViolationToleranceM
	}
	return bounds.L1MinM, bounds.L1MaxM
}

// gridRange spans the widest feasible L1 window across the horizon: at
// least the full hard window, expanded further by violation_tolerance_m
// wherever soft mode allows it. Unlike the old unconditional 20% pad,
// this never widens a hard, degenerate window (l1_min == l1_max) — that
// case is meant to fail, and solveDP's effectiveBounds pruning is what
// actually enforces it.
func gridRange(problem constraints.Problem) (lo, hi float64) {
	lo, hi = problem.Base.L1MinM, problem.Base.L1MaxM
	for _, b := range problem.StepBounds {
		l, h := effectiveBounds(problem.Base, b)
		if l < lo {
			lo = l
		}
		if h > hi {
			hi = h
		}
	}
	return lo, hi
}
