package tunnel

import "math"

// Dimensions describes the physical tunnel cross-section used by
// VolumeLevelCurve. Grounded on
// original_source/simulation/constants.py's TunnelDimensions, kept as a
// supplemental feature: it never participates in the solver's linear
// dynamics (Non-goal: no CFD engine) and is used only by
// internal/datasource, to translate historical volume readings into
// levels.
type Dimensions struct {
	WidthM             float64
	HeightM            float64
	LengthM            float64
	LevelThreshold1M   float64
	LevelThreshold2M   float64
	LevelThreshold3M   float64
	LevelThreshold4M   float64
}

// DefaultDimensions mirrors the HSY documentation constants used by the
// original implementation.
var DefaultDimensions = Dimensions{
	WidthM:           5.0,
	HeightM:          5.5,
	LengthM:          8200.0,
	LevelThreshold1M: 0.4,
	LevelThreshold2M: 5.9,
	LevelThreshold3M: 8.6,
	LevelThreshold4M: 14.1,
}

// VolumeLevelCurve implements the piecewise V=f(L1) relation. It is an
// auxiliary reconciliation tool, not part of the optimizer's dynamics.
type VolumeLevelCurve struct {
	Dims        Dimensions
	BaseVolumeM3 float64
}

// NewVolumeLevelCurve builds a curve with the default dimensions and a
// 350 m3 base volume, matching the original documentation's constant.
func NewVolumeLevelCurve() VolumeLevelCurve {
	return VolumeLevelCurve{Dims: DefaultDimensions, BaseVolumeM3: 350.0}
}

// VolumeFromLevel converts a level (m) to a stored volume (m3).
func (c VolumeLevelCurve) VolumeFromLevel(levelM float64) float64 {
	level := clampf(levelM, 0, c.Dims.LevelThreshold4M)
	d := c.Dims
	switch {
	case level < d.LevelThreshold1M:
		if d.LevelThreshold1M == 0 {
			return 0
		}
		return c.BaseVolumeM3 * (level / d.LevelThreshold1M)
	case level < d.LevelThreshold2M:
		delta := level - d.LevelThreshold1M
		return c.BaseVolumeM3 + 0.5*1000*delta*delta*d.WidthM
	case level < d.LevelThreshold3M:
		delta := level - d.LevelThreshold2M
		return 75975.0 + 5500.0*delta*d.WidthM
	default:
		delta := level - d.LevelThreshold3M
		height := d.HeightM
		rem := height - delta
		if rem < 0 {
			rem = 0
		}
		term := (height*5500.0/2.0) - (rem*rem)*1000.0/2.0
		return 150225.0 + term*d.WidthM
	}
}

// LevelFromVolume inverts VolumeFromLevel.
func (c VolumeLevelCurve) LevelFromVolume(volumeM3 float64) float64 {
	volume := math.Max(0, volumeM3)
	d := c.Dims
	switch {
	case volume <= c.BaseVolumeM3:
		if c.BaseVolumeM3 == 0 {
			return 0
		}
		return (volume / c.BaseVolumeM3) * d.LevelThreshold1M
	case volume <= 75975.0:
		numerator := volume - c.BaseVolumeM3
		denominator := 0.5 * 1000.0 * d.WidthM
		delta := math.Sqrt(math.Max(numerator/denominator, 0))
		return d.LevelThreshold1M + delta
	case volume <= 150225.0:
		delta := (volume - 75975.0) / (5500.0 * d.WidthM)
		return d.LevelThreshold2M + delta
	default:
		a := d.WidthM * 1000.0 / 2.0
		b := d.WidthM * d.HeightM * 5500.0 / 2.0
		remainder := volume - 150225.0
		inside := math.Max((b-remainder)/a, 0)
		delta := d.HeightM - math.Sqrt(inside)
		return d.LevelThreshold3M + delta
	}
}

func clampf(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
