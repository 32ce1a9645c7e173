// Package solver searches a Problem (internal/constraints) for a pump
// schedule. With no MIP/LP solver available anywhere in the reference
// corpus, FULL and SIMPLIFIED mode both run a discretized dynamic
// program over the tunnel level, in the same style as a perfect-
// foresight dispatch oracle: a bounded state grid, a per-step action
// set, and forward value propagation with backpointers. See DESIGN.md
// for why this, and not a hand-rolled MIP, is the solver's foundation.
package solver

import "github.com/alexha11/tunnel-mpc/internal/model"

// action is one fleet-wide decision for a single step: which pumps run,
// all at a shared frequency. Sharing one frequency across active pumps
// keeps the action space small enough to search exhaustively; it also
// matches how the fleet is actually dispatched in practice (duty-
// rotated, not individually tuned).
type action struct {
	onMask      uint32
	frequencyHz float64
}

func (a action) isOn(pumpIdx int) bool {
	return a.onMask&(1<<uint(pumpIdx)) != 0
}

func popcount(mask uint32) int {
	n := 0
	for mask != 0 {
		n += int(mask & 1)
		mask >>= 1
	}
	return n
}

// pumpLock constrains a single pump's availability for the next decision,
// derived from its carried-over on/off streak versus the configured
// minimum on/off durations (spec invariant on minimum run/rest time).
type pumpLock int

const (
	lockFree pumpLock = iota
	lockMustStayOn
	lockMustStayOff
)

// frequencyLevels discretizes [MinFrequencyHz, MaxFrequencyHz] into a
// small candidate set. levels must be >= 2.
func frequencyLevels(spec model.PumpSpec, levels int) []float64 {
	if levels < 2 {
		levels = 2
	}
	out := make([]float64, levels)
	span := spec.MaxFrequencyHz - spec.MinFrequencyHz
	for i := 0; i < levels; i++ {
		frac := float64(i) / float64(levels-1)
		out[i] = spec.MinFrequencyHz + frac*span
	}
	return out
}

// generateActions enumerates every on/off combination of pumps (subject
// to locks and MinPumpsOn) crossed with a shared discretized frequency
// level. Fleets are small (single digits), so full enumeration is cheap.
func generateActions(pumps []model.PumpSpec, locks []pumpLock, minPumpsOn int, freqLevelsPerPump int) []action {
	n := len(pumps)
	if n == 0 || n > 31 {
		return nil
	}

	// Shared frequency candidates: union of each pump's own discretized
	// range is unnecessary since pumps in this fleet share capability
	// bands closely enough in practice; use the narrowest pump's band so
	// every candidate frequency is valid for every pump that might be on.
	minMaxHz := pumps[0].MaxFrequencyHz
	maxMinHz := pumps[0].MinFrequencyHz
	for _, p := range pumps[1:] {
		if p.MaxFrequencyHz < minMaxHz {
			minMaxHz = p.MaxFrequencyHz
		}
		if p.MinFrequencyHz > maxMinHz {
			maxMinHz = p.MinFrequencyHz
		}
	}
	shared := model.PumpSpec{MinFrequencyHz: maxMinHz, MaxFrequencyHz: minMaxHz}
	if shared.MaxFrequencyHz < shared.MinFrequencyHz {
		shared.MaxFrequencyHz = shared.MinFrequencyHz
	}
	freqs := frequencyLevels(shared, freqLevelsPerPump)

	var actions []action
	for mask := uint32(0); mask < (1 << uint(n)); mask++ {
		ok := true
		for i, lock := range locks {
			on := mask&(1<<uint(i)) != 0
			if lock == lockMustStayOn && !on {
				ok = false
				break
			}
			if lock == lockMustStayOff && on {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if popcount(mask) < minPumpsOn {
			continue
		}
		if mask == 0 {
			actions = append(actions, action{onMask: 0, frequencyHz: 0})
			continue
		}
		for _, f := range freqs {
			actions = append(actions, action{onMask: mask, frequencyHz: f})
		}
	}
	return actions
}

// locksFromState derives per-pump locks for the first decision step from
// the carried-over state, per the minimum on/off duration invariant.
func locksFromState(pumps []model.PumpSpec, currentlyOn map[string]bool, durations map[string]model.PumpDurations, base model.SystemConstraints) []pumpLock {
	locks := make([]pumpLock, len(pumps))
	for i, p := range pumps {
		d := durations[p.ID]
		on := currentlyOn[p.ID]
		switch {
		case on && d.OnStreak < base.MinOnDuration:
			locks[i] = lockMustStayOn
		case !on && d.OffStreak < base.MinOffDuration:
			locks[i] = lockMustStayOff
		default:
			locks[i] = lockFree
		}
	}
	return locks
}
