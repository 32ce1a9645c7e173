package tunnel

import "github.com/alexha11/tunnel-mpc/internal/model"

// FlowToleranceFraction is the ±10% slack band on the linearized flow law
// (spec §4.B). Left as a named constant per the spec's flagged open
// question on whether this is tuned per-pump or global — this
// implementation treats it as global.
const FlowToleranceFraction = 0.10

// PowerToleranceFraction is the ±15% slack band on the linearized power
// law (spec §4.B), same open-question caveat as FlowToleranceFraction.
const PowerToleranceFraction = 0.15

// NominalFlowM3S is the linearized flow law's point estimate: flow scales
// linearly with frequency up to MaxFlowM3S at MaxFrequencyHz.
func NominalFlowM3S(spec model.PumpSpec, frequencyHz float64) float64 {
	return (frequencyHz / spec.MaxFrequencyHz) * spec.MaxFlowM3S
}

// FlowBand returns the [min,max] flow (m3/s) admissible for a pump running
// at the given frequency, per the linearized flow law with its ±10%
// tolerance band.
func FlowBand(spec model.PumpSpec, frequencyHz float64) (minFlow, maxFlow float64) {
	nominal := NominalFlowM3S(spec, frequencyHz)
	return nominal * (1 - FlowToleranceFraction), nominal * (1 + FlowToleranceFraction)
}

// PowerBand returns the [min,max] power (kW) admissible for a pump running
// at the given frequency and tunnel level, including the optional head
// correction and the ±15% tolerance band.
func PowerBand(spec model.PumpSpec, frequencyHz, l1M float64) (minPower, maxPower float64) {
	nominal := NominalPowerKW(spec, frequencyHz, l1M)
	lo := nominal * (1 - PowerToleranceFraction)
	hi := nominal * (1 + PowerToleranceFraction)
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

// NominalPowerKW implements the piecewise-affine power law: base power at
// MinFrequencyHz, then a corrected slope above base, minus the optional
// head correction.
func NominalPowerKW(spec model.PumpSpec, frequencyHz, l1M float64) float64 {
	if frequencyHz <= spec.MinFrequencyHz {
		return headCorrected(spec, spec.BasePowerKW(), l1M)
	}
	above := frequencyHz - spec.MinFrequencyHz
	p := spec.BasePowerKW() + above*spec.PowerSlopeKWPerHz()
	if p > spec.MaxPowerKW {
		p = spec.MaxPowerKW
	}
	return headCorrected(spec, p, l1M)
}

func headCorrected(spec model.PumpSpec, powerKW, l1M float64) float64 {
	if spec.PowerVsL1SlopeKWPerM == 0 {
		return powerKW
	}
	corrected := powerKW - spec.PowerVsL1SlopeKWPerM*(l1M-spec.ReferenceL1M)
	if corrected < 0 {
		return 0
	}
	return corrected
}
