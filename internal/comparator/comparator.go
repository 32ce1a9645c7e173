// Package comparator produces the baseline-vs-optimized comparison
// report of spec §4.I: per-metric deltas between a run driven by the
// solver chain and the historical plant's own recorded dispatch over the
// same series (rolling.Driver.BaselineRecords). Grounded on the teacher's
// internal/analysis package, which ranks locations by oracle-vs-actual
// profit potential; here the same "compare two runs of the same series"
// shape is repurposed to compare dispatch policies instead of sites.
package comparator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// runMetrics is the set of scalar aggregates compared between runs.
type runMetrics struct {
	totalEnergyKWh float64
	totalCostEUR   float64
	violationCount float64
	l1Variance     float64
	specificEnergy float64
	pumpHours      map[string]float64
}

// Compare builds a ComparisonReport from two simulation-record streams
// covering the same horizon: optimized (solver-chain driven) and
// baseline (the recorded historical dispatch).
func Compare(optimized, baseline []model.SimulationRecord) model.ComparisonReport {
	opt := aggregate(optimized)
	base := aggregate(baseline)

	metrics := []model.MetricComparison{
		metric("total_energy_kwh", opt.totalEnergyKWh, base.totalEnergyKWh),
		metric("total_cost_eur", opt.totalCostEUR, base.totalCostEUR),
		metric("violation_count", opt.violationCount, base.violationCount),
		metric("l1_variance_m2", opt.l1Variance, base.l1Variance),
		metric("specific_energy_kwh_per_m3", opt.specificEnergy, base.specificEnergy),
	}
	for id := range union(opt.pumpHours, base.pumpHours) {
		metrics = append(metrics, metric("pump_hours_"+id, opt.pumpHours[id], base.pumpHours[id]))
	}

	return model.ComparisonReport{Metrics: metrics}
}

func metric(name string, optimized, baseline float64) model.MetricComparison {
	return model.MetricComparison{
		Name:      name,
		Optimized: optimized,
		Baseline:  baseline,
		DeltaPct:  deltaPct(optimized, baseline),
	}
}

func deltaPct(optimized, baseline float64) float64 {
	if baseline == 0 {
		if optimized == 0 {
			return 0
		}
		return 100
	}
	return (optimized - baseline) / baseline * 100
}

func union(a, b map[string]float64) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

func aggregate(records []model.SimulationRecord) runMetrics {
	m := runMetrics{pumpHours: map[string]float64{}}

	var l1Samples []float64
	var energyKWh, volumeM3, costEUR float64

	for _, r := range records {
		m.violationCount += float64(r.Violations)
		l1Samples = append(l1Samples, r.L1Trajectory...)
		costEUR += r.Objective.Cost

		dtHours := r.StepDuration.Hours()
		for _, e := range r.Schedule {
			if !e.IsOn {
				continue
			}
			energyKWh += e.PowerKW * dtHours
			volumeM3 += e.FlowM3S * dtHours * 3600
			m.pumpHours[e.PumpID] += dtHours
		}
	}

	m.totalEnergyKWh = energyKWh
	m.totalCostEUR = costEUR
	if volumeM3 > 0 {
		m.specificEnergy = energyKWh / volumeM3
	}
	if len(l1Samples) > 1 {
		m.l1Variance = stat.Variance(l1Samples, nil)
	}
	return m
}
