package fallback

import (
	"sort"

	"github.com/alexha11/tunnel-mpc/internal/constraints"
	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/tunnel"
)

// RuleBased implements the last-resort tier of spec §4.E: a simple
// reactive threshold policy that is always feasible, clipping every pump
// to conservative flow/power caps rather than trusting a linearized
// optimum. It never returns Success=false.
//
// Policy, evaluated forward one step at a time:
//   - L1 at or above 80% of the max bound: bring the next least-used idle
//     pump online.
//   - L1 at or below 120% of the min bound: take the most-used running
//     pump offline, down to MinPumpsOn.
//   - otherwise hold the current pump count.
//
// Every running pump is driven at MinFrequencyHz, capped so its flow
// never exceeds 80% of MaxFlowM3S and its power never exceeds 75% of
// MaxPowerKW.
func RuleBased(problem constraints.Problem) model.OptimizationResult {
	horizon := problem.Horizon()
	pumps := problem.Pumps

	onCount := 0
	currentlyOn := make(map[string]bool, len(pumps))
	for _, ps := range problem.Current.Pumps {
		currentlyOn[ps.ID] = ps.IsOn
		if ps.IsOn {
			onCount++
		}
	}
	if onCount < problem.Base.MinPumpsOn {
		onCount = problem.Base.MinPumpsOn
	}

	usage := make(map[string]float64, len(pumps))
	for id, h := range problem.UsageHours {
		usage[id] = h
	}

	order := rotationOrder(pumps, usage)

	l1 := problem.Current.L1M
	l1Trajectory := make([]float64, 0, horizon+1)
	l1Trajectory = append(l1Trajectory, l1)
	schedule := make([]model.ScheduleEntry, 0, horizon*len(pumps))

	stepSeconds := problem.StepDuration.Seconds()

	for t := 0; t < horizon; t++ {
		bounds := problem.Base
		switch {
		case l1 >= 0.8*bounds.L1MaxM && onCount < len(pumps):
			onCount++
		case l1 <= 1.2*bounds.L1MinM && onCount > bounds.MinPumpsOn:
			onCount--
		}
		if onCount < 0 {
			onCount = 0
		}
		if onCount > len(pumps) {
			onCount = len(pumps)
		}

		onSet := make(map[string]bool, onCount)
		for i := 0; i < onCount && i < len(order); i++ {
			onSet[order[i].ID] = true
		}

		totalFlow := 0.0
		for _, p := range pumps {
			on := onSet[p.ID]
			var flow, power float64
			if on {
				flow = clippedFlow(p)
				power = clippedPower(p, l1)
				totalFlow += flow
				usage[p.ID] += problem.StepDuration.Hours()
			}
			schedule = append(schedule, model.ScheduleEntry{
				PumpID: p.ID, TimeStep: t, IsOn: on,
				FrequencyHz: boolFreq(on, p.MinFrequencyHz),
				FlowM3S:     flow, PowerKW: power,
			})
		}

		inflow := problem.Forecast.InflowM3S[t]
		l1 = tunnel.NextLevelM(l1, inflow, totalFlow, stepSeconds, problem.Base.TunnelVolumeM3)
		l1Trajectory = append(l1Trajectory, l1)
		order = rotationOrder(pumps, usage)
	}

	breakdown := constraints.Evaluate(problem, schedule, l1Trajectory)
	energyKWh, costEUR := energyAndCost(problem, schedule)
	violCount, maxViol := violationStats(problem, l1Trajectory)

	return model.OptimizationResult{
		Success:        true,
		Mode:           model.ModeRuleBased,
		Schedule:       schedule,
		L1Trajectory:   l1Trajectory,
		TotalEnergyKWh: energyKWh,
		TotalCostEUR:   costEUR,
		ViolationCount: violCount,
		MaxViolationM:  maxViol,
		Objective:      breakdown,
	}
}

func boolFreq(on bool, freq float64) float64 {
	if !on {
		return 0
	}
	return freq
}

// clippedFlow caps a pump's minimum-frequency flow estimate at 80% of its
// rated maximum, a conservative margin for the last-resort tier.
func clippedFlow(p model.PumpSpec) float64 {
	nominal := tunnel.NominalFlowM3S(p, p.MinFrequencyHz)
	limit := 0.8 * p.MaxFlowM3S
	if nominal > limit {
		return limit
	}
	return nominal
}

// clippedPower caps a pump's minimum-frequency power estimate at 75% of
// its rated maximum.
func clippedPower(p model.PumpSpec, l1M float64) float64 {
	nominal := tunnel.NominalPowerKW(p, p.MinFrequencyHz, l1M)
	limit := 0.75 * p.MaxPowerKW
	if nominal > limit {
		return limit
	}
	return nominal
}

// rotationOrder lists pumps least-used first, so the reactive policy
// brings the least-worn pump online and retires the most-worn one.
func rotationOrder(pumps []model.PumpSpec, usage map[string]float64) []model.PumpSpec {
	out := append([]model.PumpSpec(nil), pumps...)
	sort.Slice(out, func(i, j int) bool { return usage[out[i].ID] < usage[out[j].ID] })
	return out
}

func energyAndCost(problem constraints.Problem, schedule []model.ScheduleEntry) (energyKWh, costEUR float64) {
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

func violationStats(problem constraints.Problem, l1Trajectory []float64) (count int, maxViolation float64) {
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
