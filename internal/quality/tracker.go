// Package quality implements the forecast-quality tracker of spec §4.G:
// a bounded ring buffer of recent forecast errors, a good/fair/poor tier
// derived from their recent mean absolute error, and the safety-margin
// policy that tightens or loosens the tunnel's effective L1 bounds as
// that tier changes. Grounded on the teacher's rolling-backtest metrics
// (internal/analysis), adapted from a post-hoc accuracy report into a
// live, mutating tracker the rolling driver consults every step.
package quality

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// Tier is the forecast-quality classification driving the safety-margin
// policy.
type Tier string

const (
	TierGood Tier = "good"
	TierFair Tier = "fair"
	TierPoor Tier = "poor"
)

// DefaultWindowSize is the ring buffer's capacity (spec §4.G default N).
const DefaultWindowSize = 10

// recentSampleCount is how many of the most recent window entries feed
// the MAE used for tiering.
const recentSampleCount = 5

// Tracker owns the forecast-error ring buffer, the consecutive-good
// counter, and the effective (hysteresis-gated) tier actually used to
// size safety margins.
type Tracker struct {
	windowSize int
	samples    []model.ForecastErrorSample

	consecutiveGood int
	effectiveTier   Tier
}

// NewTracker builds a Tracker with the given ring-buffer capacity. A
// non-positive size falls back to DefaultWindowSize.
func NewTracker(windowSize int) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{windowSize: windowSize, effectiveTier: TierGood}
}

// Record appends a new error sample, evicting the oldest once the
// window is full, and updates the effective tier. A worsening
// instantaneous tier tightens margins immediately; a recovery to good
// only takes effect after two consecutive good steps.
func (t *Tracker) Record(sample model.ForecastErrorSample) {
	t.samples = append(t.samples, sample)
	if len(t.samples) > t.windowSize {
		t.samples = t.samples[len(t.samples)-t.windowSize:]
	}

	instant := t.instantTier()
	if instant == TierGood {
		t.consecutiveGood++
	} else {
		t.consecutiveGood = 0
	}

	switch {
	case tierRank(instant) > tierRank(t.effectiveTier):
		t.effectiveTier = instant
	case instant == TierGood && t.consecutiveGood >= 2:
		t.effectiveTier = TierGood
	}
}

// tierRank orders tiers from loosest to strictest, for hysteresis
// comparisons.
func tierRank(t Tier) int {
	switch t {
	case TierGood:
		return 0
	case TierFair:
		return 1
	default:
		return 2
	}
}

// recent returns up to recentSampleCount of the most recently recorded
// samples.
func (t *Tracker) recent() []model.ForecastErrorSample {
	n := recentSampleCount
	if n > len(t.samples) {
		n = len(t.samples)
	}
	return t.samples[len(t.samples)-n:]
}

// InflowMAE is the mean absolute inflow forecast error percentage over
// the recent window.
func (t *Tracker) InflowMAE() float64 {
	return meanOfSamples(t.recent(), model.ForecastErrorSample.InflowErrorPct)
}

// PriceMAE is the mean absolute price forecast error percentage over the
// recent window.
func (t *Tracker) PriceMAE() float64 {
	return meanOfSamples(t.recent(), model.ForecastErrorSample.PriceErrorPct)
}

// L1MAE is the mean absolute L1 prediction error, in meters, over the
// recent window.
func (t *Tracker) L1MAE() float64 {
	return meanOfSamples(t.recent(), model.ForecastErrorSample.L1ErrorM)
}

func meanOfSamples(samples []model.ForecastErrorSample, f func(model.ForecastErrorSample) float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	errs := make([]float64, len(samples))
	for i, s := range samples {
		errs[i] = f(s)
	}
	return stat.Mean(errs, nil)
}

// instantTier classifies the current window's accuracy per spec §4.G's
// thresholds: good requires max(inflow MAE, price MAE) < 10% and L1 MAE
// < 0.3 m; fair requires < 25% and < 0.5 m; anything worse is poor.
// Fewer than recentSampleCount samples are treated as good (insufficient
// evidence to tighten margins).
func (t *Tracker) instantTier() Tier {
	if len(t.samples) < recentSampleCount {
		return TierGood
	}
	pctMAE := math.Max(t.InflowMAE(), t.PriceMAE())
	l1MAE := t.L1MAE()
	switch {
	case pctMAE < 10 && l1MAE < 0.3:
		return TierGood
	case pctMAE < 25 && l1MAE < 0.5:
		return TierFair
	default:
		return TierPoor
	}
}

// CurrentTier is the effective, hysteresis-gated tier used to size
// safety margins — it tightens immediately but only loosens after two
// consecutive good steps.
func (t *Tracker) CurrentTier() Tier {
	return t.effectiveTier
}

// SafetyMargin returns the (lower, upper) L1 margin in meters to add to
// the lower hard bound / subtract from the upper hard bound before
// handing them to the solver, per
// spec §4.G: fair tightens by 0.2m beyond the base 0.8m operating
// margin, poor tightens by 0.3m beyond a 1.5m base margin. The
// hysteresis that delays release to the looser tier lives in Record,
// via effectiveTier.
func (t *Tracker) SafetyMargin() (lowerM, upperM float64) {
	switch t.CurrentTier() {
	case TierFair:
		return 0.8 + 0.2, 0.8 + 0.2
	case TierPoor:
		return 1.5 + 0.3, 1.5 + 0.3
	default:
		return 0.8, 0.8
	}
}

// AdjustedBounds narrows a hard [L1MinM, L1MaxM] window by the current
// safety margin.
func (t *Tracker) AdjustedBounds(base model.SystemConstraints) (minM, maxM float64) {
	lower, upper := t.SafetyMargin()
	minM = base.L1MinM + lower
	maxM = base.L1MaxM - upper
	if minM > maxM {
		mid := (base.L1MinM + base.L1MaxM) / 2
		return mid, mid
	}
	return minM, maxM
}
