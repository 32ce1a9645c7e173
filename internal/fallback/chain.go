// Package fallback implements the three-tier solve chain of spec §4.E:
// FULL MIP-equivalent search, then a coarser SIMPLIFIED search, then a
// RULE_BASED heuristic that is always feasible. Grounded on the teacher's
// internal/strategy package, which dispatches between multiple named
// Strategy implementations behind one Decide call; here the dispatch is
// a fixed escalation order instead of a pluggable strategy selection.
package fallback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexha11/tunnel-mpc/internal/constraints"
	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/solver"
)

// Timeouts bounds how long each tier of the chain is allowed to run.
type Timeouts struct {
	Full       time.Duration
	Simplified time.Duration
}

// DefaultTimeouts mirrors the spec's suggested tactical-horizon budget.
var DefaultTimeouts = Timeouts{Full: 20 * time.Second, Simplified: 5 * time.Second}

// Solve runs FULL, then SIMPLIFIED, then RULE_BASED, returning the first
// tier that succeeds. RULE_BASED never fails: it always clips to a
// feasible fleet action.
func Solve(ctx context.Context, problem constraints.Problem, timeouts Timeouts, log *zap.Logger) model.OptimizationResult {
	if log == nil {
		log = zap.NewNop()
	}
	requestID := uuid.New().String()

	full := solver.Solve(ctx, problem, model.ModeFull, timeouts.Full)
	if full.Success {
		full.RequestID = requestID
		return full
	}
	log.Warn("full solve failed, falling back to simplified",
		zap.String("request_id", requestID), zap.Duration("wall_time", full.SolveWallTime))

	simplified := solver.Solve(ctx, problem, model.ModeSimplified, timeouts.Simplified)
	if simplified.Success {
		simplified.RequestID = requestID
		return simplified
	}
	log.Warn("simplified solve failed, falling back to rule-based",
		zap.String("request_id", requestID), zap.Duration("wall_time", simplified.SolveWallTime))

	start := time.Now()
	result := RuleBased(problem)
	result.SolveWallTime = time.Since(start)
	result.RequestID = requestID
	return result
}
