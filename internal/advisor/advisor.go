// Package advisor adapts a ports.StrategicAdvisor into a bounded, never-
// failing call the rolling driver can join alongside data fetch and
// baseline lookup. Grounded on the teacher's internal/strategy dispatch
// pattern (multiple strategies behind one Decide call), generalized here
// to a single external advisor whose output perturbs the objective
// weights rather than choosing the dispatch outright.
package advisor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/ports"
)

// DefaultTimeout bounds how long a strategic-plan request may run before
// the rolling driver proceeds without one (spec §4.H).
const DefaultTimeout = 10 * time.Second

// Adapter wraps a ports.StrategicAdvisor, translating failures and
// timeouts into a nil plan instead of propagating an error: the rolling
// loop must always be able to proceed without strategic guidance.
type Adapter struct {
	advisor ports.StrategicAdvisor
	timeout time.Duration
	log     *zap.Logger
}

// NewAdapter builds an Adapter. A nil advisor makes every call a no-op
// that returns a nil plan, so callers can wire the rolling driver up
// before a real advisor implementation exists.
func NewAdapter(strategicAdvisor ports.StrategicAdvisor, timeout time.Duration, log *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{advisor: strategicAdvisor, timeout: timeout, log: log}
}

// StrategicPlan requests a 24h plan, returning nil on any failure
// or timeout rather than an error — the caller treats that exactly like
// "no strategic opinion this step".
func (a *Adapter) StrategicPlan(ctx context.Context, current model.CurrentState, forecast model.ForecastData) *model.StrategicPlan {
	if a.advisor == nil {
		return nil
	}
	requestID := uuid.New().String()
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	plan, err := a.advisor.GenerateStrategicPlan(cctx, current, forecast)
	if err != nil {
		a.log.Warn("strategic advisor call failed, proceeding without a plan", zap.String("request_id", requestID), zap.Error(err))
		return nil
	}
	if plan != nil {
		if verr := plan.Validate(); verr != nil {
			a.log.Warn("strategic advisor returned an invalid plan, discarding", zap.String("request_id", requestID), zap.Error(verr))
			return nil
		}
		plan.RequestID = requestID
	}
	return plan
}

// EmergencyResponse requests an emergency override plan, with the same
// fail-safe-to-nil behavior as StrategicPlan.
func (a *Adapter) EmergencyResponse(ctx context.Context, current model.CurrentState) *model.StrategicPlan {
	if a.advisor == nil {
		return nil
	}
	requestID := uuid.New().String()
	cctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	plan, err := a.advisor.GenerateEmergencyResponse(cctx, current)
	if err != nil {
		a.log.Warn("emergency response call failed", zap.String("request_id", requestID), zap.Error(err))
		return nil
	}
	if plan != nil {
		plan.RequestID = requestID
	}
	return plan
}
