// Package ports declares the external collaborators the rolling driver
// depends on as interfaces, so internal/rolling never imports a concrete
// data source, advisor or quality-tracker implementation directly.
// Grounded on the teacher's internal/data.Source interface, which lets
// internal/backtest swap in different market-data providers the same
// way.
package ports

import (
	"context"
	"time"

	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/quality"
)

// HistoricalDataSource supplies the observed state, forward-looking
// forecast, and ground-truth baseline dispatch for a simulation step
// (spec §4.A, §4.I). A source that only ever drives the optimized run
// and never a ComparisonReport may leave BaselineScheduleAt/DataRange
// unused, but must still implement them to satisfy the interface.
type HistoricalDataSource interface {
	StateAt(ctx context.Context, t time.Time) (model.CurrentState, error)
	ForecastFrom(ctx context.Context, t time.Time, horizonSteps int) (model.ForecastData, error)

	// BaselineScheduleAt returns what the historical plant actually ran
	// at or before t, keyed by pump ID (get_baseline_schedule_at). This
	// is ground truth, distinct from any schedule the solver chain
	// produces, and is what internal/comparator diffs against.
	BaselineScheduleAt(ctx context.Context, t time.Time) (map[string]model.ScheduleEntry, error)

	// DataRange reports the inclusive span of timestamps this source can
	// answer for (get_data_range).
	DataRange(ctx context.Context) (start, end time.Time, err error)
}

// StrategicAdvisor supplies a 24-hour strategic plan and an emergency
// response, both best-effort and bounded by the caller's context (spec
// §4.H). A nil plan with a nil error is a valid "no opinion" response.
type StrategicAdvisor interface {
	GenerateStrategicPlan(ctx context.Context, current model.CurrentState, forecast model.ForecastData) (*model.StrategicPlan, error)
	GenerateEmergencyResponse(ctx context.Context, current model.CurrentState) (*model.StrategicPlan, error)
}

// ForecastQualityTracker is the subset of internal/quality.Tracker the
// rolling driver depends on, kept as an interface so drivers under test
// can substitute a fixed-tier stub.
type ForecastQualityTracker interface {
	Record(sample model.ForecastErrorSample)
	CurrentTier() quality.Tier
	AdjustedBounds(base model.SystemConstraints) (minM, maxM float64)
}
