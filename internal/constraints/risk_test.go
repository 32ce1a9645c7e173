package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

func testBounds() model.SystemConstraints {
	return model.SystemConstraints{
		L1MinM: 1.0, L1MaxM: 5.0,
		TunnelVolumeM3: 100000,
		MinPumpsOn:     1,
	}
}

func TestAssessRiskCenterIsLow(t *testing.T) {
	risk := AssessRisk(3.0, testBounds(), []float64{1, 1, 1, 1})
	assert.Equal(t, RiskLow, risk)
}

func TestAssessRiskNearMaxIsCritical(t *testing.T) {
	risk := AssessRisk(4.85, testBounds(), []float64{1, 1, 1, 1})
	assert.Equal(t, RiskCritical, risk)
}

func TestAssessRiskUnfavorableTrendEscalates(t *testing.T) {
	risk := AssessRisk(4.15, testBounds(), []float64{1, 2, 3, 4})
	assert.Equal(t, RiskHigh, risk)
}

func TestWeightsForUnknownFallsBackToNormal(t *testing.T) {
	assert.Equal(t, presets[RiskNormal], WeightsFor("bogus"))
}

func TestApplyPlanBiasPreDrainFavorsSafety(t *testing.T) {
	base := WeightsFor(RiskNormal)
	biased := ApplyPlanBias(base, "PRE-DRAIN")
	assert.Greater(t, biased.Safety, base.Safety)
	assert.Less(t, biased.Cost, base.Cost)
}
