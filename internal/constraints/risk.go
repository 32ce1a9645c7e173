package constraints

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// RiskLevel classifies how close the tunnel is to a safety bound, per
// spec §4.C.2.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskNormal   RiskLevel = "NORMAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// AssessRisk computes the risk tier from L1's distance to the closer
// bound and the expected inflow trend over the first four forecast
// steps, per the thresholds in spec §4.C.2.
func AssessRisk(l1M float64, bounds model.SystemConstraints, forecastInflow []float64) RiskLevel {
	rangeM := bounds.RangeM()
	if rangeM <= 0 {
		return RiskCritical
	}
	distToMin := (l1M - bounds.L1MinM) / rangeM
	distToMax := (bounds.L1MaxM - l1M) / rangeM
	dist := math.Min(distToMin, distToMax)

	trend := expectedInflowGrowth(forecastInflow)
	unfavorable := (distToMin < distToMax && trend < -0.1) || (distToMax <= distToMin && trend > 0.1)

	switch {
	case dist < 0.10:
		return RiskCritical
	case dist < 0.20:
		return RiskHigh
	case dist < 0.30 && unfavorable:
		return RiskHigh
	case dist < 0.40:
		return RiskNormal
	default:
		return RiskLow
	}
}

// expectedInflowGrowth is the mean of the first four forward differences
// of the inflow forecast, matching spec §4.C.2's "expected inflow growth".
func expectedInflowGrowth(inflow []float64) float64 {
	n := len(inflow)
	if n < 2 {
		return 0
	}
	limit := n - 1
	if limit > 4 {
		limit = 4
	}
	diffs := make([]float64, 0, limit)
	for i := 1; i <= limit; i++ {
		diffs = append(diffs, inflow[i]-inflow[i-1])
	}
	if len(diffs) == 0 {
		return 0
	}
	return stat.Mean(diffs, nil)
}
