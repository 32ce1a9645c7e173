package tunnel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

func TestNextLevelMRisesWhenInflowExceedsPumping(t *testing.T) {
	l1 := NextLevelM(3.0, 1.0, 0.5, 900, 100000)
	assert.Greater(t, l1, 3.0)
}

func TestNextLevelMFallsWhenPumpingExceedsInflow(t *testing.T) {
	l1 := NextLevelM(3.0, 0.5, 1.0, 900, 100000)
	assert.Less(t, l1, 3.0)
}

func testPump() model.PumpSpec {
	return model.PumpSpec{ID: "P1", MaxFlowM3S: 1.0, MaxPowerKW: 60, MinFrequencyHz: 25, MaxFrequencyHz: 50}
}

func TestNominalFlowM3SScalesLinearlyWithFrequency(t *testing.T) {
	p := testPump()
	assert.InDelta(t, p.MaxFlowM3S, NominalFlowM3S(p, p.MaxFrequencyHz), 1e-9)
	assert.InDelta(t, p.MaxFlowM3S/2, NominalFlowM3S(p, p.MaxFrequencyHz/2), 1e-9)
}

func TestFlowBandWidensWithToleranceFraction(t *testing.T) {
	p := testPump()
	lo, hi := FlowBand(p, p.MaxFrequencyHz)
	nominal := NominalFlowM3S(p, p.MaxFrequencyHz)
	assert.InDelta(t, nominal*(1-FlowToleranceFraction), lo, 1e-9)
	assert.InDelta(t, nominal*(1+FlowToleranceFraction), hi, 1e-9)
}

func TestNominalPowerKWIsMonotonicInFrequency(t *testing.T) {
	p := testPump()
	low := NominalPowerKW(p, p.MinFrequencyHz, p.ReferenceL1M)
	high := NominalPowerKW(p, p.MaxFrequencyHz, p.ReferenceL1M)
	assert.Less(t, low, high)
	assert.InDelta(t, p.MaxPowerKW, high, 1e-6)
}

func TestNominalPowerKWNeverExceedsMaxPower(t *testing.T) {
	p := testPump()
	got := NominalPowerKW(p, p.MaxFrequencyHz, p.ReferenceL1M)
	assert.LessOrEqual(t, got, p.MaxPowerKW+1e-9)
}

func TestNominalPowerKWAppliesHeadCorrection(t *testing.T) {
	p := testPump()
	p.PowerVsL1SlopeKWPerM = 2.0
	p.ReferenceL1M = 3.0

	atReference := NominalPowerKW(p, p.MaxFrequencyHz, 3.0)
	aboveReference := NominalPowerKW(p, p.MaxFrequencyHz, 5.0)
	assert.Less(t, aboveReference, atReference, "power draw should fall as head rises above the reference level")
}

func TestVolumeLevelCurveRoundTrips(t *testing.T) {
	curve := NewVolumeLevelCurve()
	for _, level := range []float64{0.2, 1.0, 3.5, 6.0, 9.0, 12.0} {
		volume := curve.VolumeFromLevel(level)
		back := curve.LevelFromVolume(volume)
		assert.InDelta(t, level, back, 0.05, "level %v should round-trip through volume %v", level, volume)
	}
}

func TestVolumeLevelCurveIsMonotonicallyIncreasing(t *testing.T) {
	curve := NewVolumeLevelCurve()
	prev := math.Inf(-1)
	for _, level := range []float64{0, 0.2, 0.5, 1, 3, 5.9, 6, 8, 8.6, 10, 14.1} {
		v := curve.VolumeFromLevel(level)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}
