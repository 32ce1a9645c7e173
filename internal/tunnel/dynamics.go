// Package tunnel implements the lumped mass-balance tunnel dynamics and
// the linearized pump flow/power laws of spec §4.B. It is deliberately not
// a CFD engine (Non-goal): the dynamics the solver sees are always the
// linear mass balance below, grounded on
// original_source/simulation/tunnel.py's step loop but simplified to the
// closed-form spec's solver requires.
package tunnel

// NextLevelM advances the tunnel level by one step of durationSeconds,
// given the net inflow and the sum of all pump flows, per spec §4.B:
//
//	L1[t+1] = L1[t] + (inflow[t] - Σ pump_flow[t]) * Δt / tunnel_volume_m3
func NextLevelM(currentL1M, inflowM3S, totalPumpFlowM3S, durationSeconds, tunnelVolumeM3 float64) float64 {
	return currentL1M + (inflowM3S-totalPumpFlowM3S)*durationSeconds/tunnelVolumeM3
}
