package model

import "time"

// SystemConstraints is immutable for the life of a run.
type SystemConstraints struct {
	L1MinM          float64
	L1MaxM          float64
	TunnelVolumeM3  float64
	MinPumpsOn      int
	MinOnDuration   time.Duration
	MinOffDuration  time.Duration
	FlushInterval   time.Duration
	FlushTargetL1M  float64

	AllowViolations     bool
	ViolationToleranceM float64
	ViolationPenalty    float64

	// SpecificEnergyTargetKWhPerM3 is the desired energy-per-cubic-meter
	// efficiency point J_specific_energy penalizes deviation from. Left at
	// the spec's open question (no derivation given for any fixed value):
	// zero means "no target", and the objective falls back to minimizing
	// raw specific energy directly.
	SpecificEnergyTargetKWhPerM3 float64
}

// Validate enforces the invariants spec §3 requires of SystemConstraints.
func (c SystemConstraints) Validate() error {
	if c.L1MinM >= c.L1MaxM {
		return errInvalid("l1_min_m (%v) must be < l1_max_m (%v)", c.L1MinM, c.L1MaxM)
	}
	if c.TunnelVolumeM3 <= 0 {
		return errInvalid("tunnel_volume_m3 must be > 0")
	}
	if c.MinPumpsOn < 1 {
		return errInvalid("min_pumps_on must be >= 1")
	}
	if c.AllowViolations && c.ViolationToleranceM < 0 {
		return errInvalid("violation_tolerance_m must be >= 0")
	}
	return nil
}

// RangeM is the configured hard window, l1_max - l1_min.
func (c SystemConstraints) RangeM() float64 {
	return c.L1MaxM - c.L1MinM
}

// CenterM is the midpoint of the hard window. J_safety does not call it:
// it centers on each step's (margin-adjusted) bounds instead.
func (c SystemConstraints) CenterM() float64 {
	return (c.L1MinM + c.L1MaxM) / 2
}
