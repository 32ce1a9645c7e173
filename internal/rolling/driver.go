// Package rolling implements the receding-horizon driver of spec §4.F:
// one step at a time, it fetches the observed inflow/price and the real
// L1 reading (used only to detect forecast divergence), overrides the
// plant state it actually hands to the solver with its own previous
// prediction and previously committed pump schedule, asks the strategic
// advisor for an opinion, hands both to the solver chain, applies only
// the first step of the returned schedule, and carries state (pump
// durations, usage hours, forecast-error history, simulated L1) forward
// to the next step. This closed loop is what makes it an MPC simulation
// rather than a replay of a historical log. Grounded on the teacher's
// internal/backtest runner, which drives a Strategy across a time
// series the same shape; the additions here are the errgroup-based
// join-before-solve fan-out, the closed-loop state carryover, and the
// forecast-divergence/quality-tracker feedback loop the backtest runner
// never needed (its data is never wrong mid-run).
package rolling

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexha11/tunnel-mpc/internal/advisor"
	"github.com/alexha11/tunnel-mpc/internal/constraints"
	"github.com/alexha11/tunnel-mpc/internal/fallback"
	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/ports"
)

// Divergence thresholds (spec §4.F): a step-ahead prediction missing
// actuals by more than these fractions/margins triggers an emergency
// re-seed; the routine strategic plan is still requested, and a non-nil
// emergency response replaces it for that step.
const (
	DivergenceL1M       = 0.5
	DivergenceInflowPct = 20.0
	DivergencePricePct  = 30.0
)

// Driver owns one rolling simulation run.
type Driver struct {
	Pumps        []model.PumpSpec
	Base         model.SystemConstraints
	HorizonSteps int

	DataSource ports.HistoricalDataSource
	Advisor    *advisor.Adapter
	Quality    ports.ForecastQualityTracker
	Timeouts   fallback.Timeouts
	Baseline   ports.HistoricalDataSource // optional: ground-truth source for ComparisonReport inputs

	Log *zap.Logger

	state            *model.RollingState
	lastForecast     *model.ForecastData
	simulatedL1      float64
	haveLastForecast bool

	baselineRecords []model.SimulationRecord
}

// BaselineRecords returns the ground-truth SimulationRecords assembled
// from Baseline.BaselineScheduleAt across every Step call so far, in
// order. internal/comparator diffs these against the optimized run's
// own records to build a ComparisonReport.
func (d *Driver) BaselineRecords() []model.SimulationRecord {
	return d.baselineRecords
}

// NewDriver builds a Driver, seeding RollingState for the given fleet.
func NewDriver(pumps []model.PumpSpec, base model.SystemConstraints, horizonSteps int,
	dataSource ports.HistoricalDataSource, strategicAdvisor *advisor.Adapter, tracker ports.ForecastQualityTracker,
	timeouts fallback.Timeouts, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	ids := make([]string, len(pumps))
	for i, p := range pumps {
		ids[i] = p.ID
	}
	state := model.NewRollingState(ids)
	seedSmallestPumpOn(state, pumps)
	return &Driver{
		Pumps: pumps, Base: base, HorizonSteps: horizonSteps,
		DataSource: dataSource, Advisor: strategicAdvisor, Quality: tracker,
		Timeouts: timeouts, Log: log,
		state: state,
	}
}

// seedSmallestPumpOn applies the closed-loop MPC's step-0 pump seed
// policy (spec §4.F): before any schedule has been committed, the
// smallest pump in the fleet is running at its minimum frequency and
// every other pump is off. This only matters for the very first Step
// call; every step after that reconstructs pump state from the
// previously committed schedule instead.
func seedSmallestPumpOn(state *model.RollingState, pumps []model.PumpSpec) {
	if len(pumps) == 0 {
		return
	}
	smallest := pumps[0]
	for _, p := range pumps[1:] {
		if p.MaxFlowM3S < smallest.MaxFlowM3S {
			smallest = p
		}
	}
	state.CurrentlyRunning[smallest.ID] = true
	state.CurrentFrequencyHz[smallest.ID] = smallest.MinFrequencyHz
}

// Run drives Step repeatedly starting at t for up to steps iterations,
// streaming each SimulationRecord on the returned channel. This realizes
// the "SimulationRecord stream" external interface (spec §6): the send
// on the unbuffered channel blocks until the consumer receives, so a
// slow consumer throttles the driver instead of the driver buffering
// unboundedly ahead of it. Closing done stops the stream at the next
// step boundary, and the channel itself is always closed when Run
// returns, however it returns.
func (d *Driver) Run(ctx context.Context, t time.Time, steps int, done <-chan struct{}) <-chan model.SimulationRecord {
	out := make(chan model.SimulationRecord)
	go func() {
		defer close(out)
		stepDuration := 15 * time.Minute
		for i := 0; i < steps; i++ {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			default:
			}

			rec, err := d.Step(ctx, t)
			if err != nil {
				d.Log.Sugar().Warnf("step %d failed: %v", i, err)
				return
			}

			select {
			case out <- rec:
			case <-done:
				return
			case <-ctx.Done():
				return
			}

			if rec.StepDuration > 0 {
				stepDuration = rec.StepDuration
			}
			t = t.Add(stepDuration)
		}
	}()
	return out
}

// fanOutResult collects the three join-before-solve fetches.
type fanOutResult struct {
	current  model.CurrentState
	forecast model.ForecastData
	plan     *model.StrategicPlan

	baselineState    *model.CurrentState
	baselineSchedule map[string]model.ScheduleEntry
}

// Step advances the simulation by one step at timestamp t, applying only
// the first step of the resulting schedule and carrying state forward.
func (d *Driver) Step(ctx context.Context, t time.Time) (model.SimulationRecord, error) {
	fanOut, err := d.fetch(ctx, t)
	if err != nil {
		return model.SimulationRecord{}, err
	}

	// checkDivergence compares the MPC's own prior prediction against the
	// real reading just fetched, before that reading is overridden below —
	// this is the only place the real historical L1 is consulted.
	emergency := d.checkDivergence(fanOut.current, t)
	if emergency && d.Advisor != nil {
		if resp := d.Advisor.EmergencyResponse(ctx, fanOut.current); resp != nil {
			fanOut.plan = resp
		}
	}

	current := d.closedLoopState(fanOut.current)

	stepBounds := d.stepBounds(fanOut.forecast.Horizon())
	problem := constraints.BuildProblem(d.Pumps, d.Base, stepBounds, current, fanOut.forecast, fanOut.plan, d.state)

	result := fallback.Solve(ctx, problem, d.Timeouts, d.Log)
	d.applyFirstStep(result, t, problem.StepDuration)
	if fanOut.baselineState != nil {
		d.baselineRecords = append(d.baselineRecords,
			buildBaselineRecord(t, *fanOut.baselineState, fanOut.baselineSchedule, problem.StepDuration, d.Base))
	}

	d.lastForecast = &fanOut.forecast
	d.haveLastForecast = true
	if len(result.L1Trajectory) > 1 {
		d.simulatedL1 = result.L1Trajectory[1]
	} else {
		d.simulatedL1 = current.L1M
	}

	return model.SimulationRecord{
		RequestID:    result.RequestID,
		WallTime:     t,
		State:        current,
		Schedule:     result.Schedule,
		StepDuration: problem.StepDuration,
		L1Trajectory: result.L1Trajectory,
		Mode:         result.Mode,
		Objective:    result.Objective,
		Violations:   result.ViolationCount,
		Plan:         fanOut.plan,
		Emergency:    emergency,
	}, nil
}

// closedLoopState overrides the historical reading's L1 and pump states
// with the MPC's own carried-forward simulation state (spec §4.F): L1
// comes from the previous step's solved trajectory, seeded from the
// first real reading this driver ever saw, and pump on/off/frequency
// come from the previous step's committed time_step=0 schedule. Inflow
// and price stay the real observed values driving the forecast — only
// the plant state the MPC believes it is controlling is closed-loop,
// which is what makes this a simulation and not a replay.
func (d *Driver) closedLoopState(observed model.CurrentState) model.CurrentState {
	if !d.haveLastForecast {
		d.simulatedL1 = observed.L1M
	}
	observed.L1M = d.simulatedL1
	observed.Pumps = d.committedPumpStates()
	return observed
}

// committedPumpStates reconstructs CurrentState.Pumps from RollingState,
// i.e. from the driver's own last committed decision rather than from
// whatever a historical replay happens to report.
func (d *Driver) committedPumpStates() []model.PumpState {
	pumps := make([]model.PumpState, len(d.Pumps))
	for i, p := range d.Pumps {
		pumps[i] = model.PumpState{
			ID:          p.ID,
			IsOn:        d.state.CurrentlyRunning[p.ID],
			FrequencyHz: d.state.CurrentFrequencyHz[p.ID],
		}
	}
	return pumps
}

// fetch joins the data fetch, advisor call and baseline lookup
// concurrently: none of the three depends on another's result, and the
// solver cannot start until all three have returned.
func (d *Driver) fetch(ctx context.Context, t time.Time) (fanOutResult, error) {
	var out fanOutResult
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		current, err := d.DataSource.StateAt(gctx, t)
		if err != nil {
			return fmt.Errorf("fetch current state: %w", err)
		}
		forecast, err := d.DataSource.ForecastFrom(gctx, t, d.HorizonSteps)
		if err != nil {
			return fmt.Errorf("fetch forecast: %w", err)
		}
		if err := forecast.Validate(); err != nil {
			return fmt.Errorf("forecast invalid: %w", err)
		}
		out.current = current
		out.forecast = forecast
		return nil
	})

	g.Go(func() error {
		if d.Advisor == nil {
			return nil
		}
		// The advisor's own context timeout bounds this call; a failure
		// here is swallowed by the adapter and must never fail the group.
		current, err := d.DataSource.StateAt(gctx, t)
		if err != nil {
			return nil
		}
		forecast, err := d.DataSource.ForecastFrom(gctx, t, d.HorizonSteps)
		if err != nil {
			return nil
		}
		out.plan = d.Advisor.StrategicPlan(gctx, current, forecast)
		return nil
	})

	g.Go(func() error {
		if d.Baseline == nil {
			return nil
		}
		// Ground-truth dispatch lookup failures must never fail the whole
		// step: a run with no baseline configured or a gap in its history
		// simply skips that step's ComparisonReport contribution.
		baseline, err := d.Baseline.StateAt(gctx, t)
		if err != nil {
			return nil
		}
		schedule, err := d.Baseline.BaselineScheduleAt(gctx, t)
		if err != nil {
			return nil
		}
		out.baselineState = &baseline
		out.baselineSchedule = schedule
		return nil
	})

	if err := g.Wait(); err != nil {
		return fanOutResult{}, err
	}
	return out, nil
}

// checkDivergence compares the prior step's one-step-ahead prediction
// against what was actually observed, recording the sample into the
// quality tracker and reporting whether any threshold was breached.
func (d *Driver) checkDivergence(current model.CurrentState, t time.Time) bool {
	if !d.haveLastForecast || d.lastForecast == nil || d.lastForecast.Horizon() == 0 {
		return false
	}

	sample := model.ForecastErrorSample{
		At:                   t,
		InflowForecastM3S:    d.lastForecast.InflowM3S[0],
		InflowActualM3S:      current.InflowM3S,
		PriceForecastCPerKWh: d.lastForecast.PriceCPerKWh[0],
		PriceActualCPerKWh:   current.PriceCPerKWh,
		L1PredictedM:         d.simulatedL1,
		L1ActualM:            current.L1M,
	}
	if d.Quality != nil {
		d.Quality.Record(sample)
	}

	return sample.L1ErrorM() > DivergenceL1M ||
		sample.InflowErrorPct() > DivergenceInflowPct ||
		sample.PriceErrorPct() > DivergencePricePct
}

// stepBounds builds per-step L1 bounds for the given horizon, narrowed by
// the quality tracker's current safety margin.
func (d *Driver) stepBounds(horizon int) []constraints.StepBounds {
	minM, maxM := d.Base.L1MinM, d.Base.L1MaxM
	if d.Quality != nil {
		minM, maxM = d.Quality.AdjustedBounds(d.Base)
	}
	bounds := make([]constraints.StepBounds, horizon)
	for i := range bounds {
		bounds[i] = constraints.StepBounds{L1MinM: minM, L1MaxM: maxM}
	}
	return bounds
}

// buildBaselineRecord assembles a SimulationRecord from the historical
// plant's own recorded dispatch, so internal/comparator can diff it
// against the optimized run's records using the exact same shape. It is
// tagged ModeRuleBased and its Objective carries only the energy cost
// (Cost and Total), since the historical plant never ran this MPC's
// objective; a violation is counted when the recorded L1 lies outside
// the base hard bounds (no safety margin, no risk weighting).
func buildBaselineRecord(t time.Time, state model.CurrentState, schedule map[string]model.ScheduleEntry, dt time.Duration, base model.SystemConstraints) model.SimulationRecord {
	entries := make([]model.ScheduleEntry, 0, len(schedule))
	for _, e := range schedule {
		entries = append(entries, e)
	}
	violations := 0
	if state.L1M < base.L1MinM || state.L1M > base.L1MaxM {
		violations = 1
	}
	dtHours := dt.Hours()
	cost := 0.0
	for _, e := range entries {
		if e.IsOn {
			cost += e.PowerKW * dtHours * state.PriceCPerKWh / 100.0
		}
	}
	return model.SimulationRecord{
		WallTime:     t,
		State:        state,
		Schedule:     entries,
		StepDuration: dt,
		L1Trajectory: []float64{state.L1M},
		Mode:         model.ModeRuleBased,
		Objective:    model.ObjectiveBreakdown{Cost: cost, Total: cost},
		Violations:   violations,
	}
}

// applyFirstStep mutates RollingState with only the schedule's t=0
// entries, matching the MPC receding-horizon principle: later steps in
// the returned plan are never executed, only replanned next step.
func (d *Driver) applyFirstStep(result model.OptimizationResult, t time.Time, dt time.Duration) {
	for _, e := range result.Schedule {
		if e.TimeStep != 0 {
			continue
		}
		durations := d.state.PumpDurations[e.PumpID]
		wasOn := d.state.CurrentlyRunning[e.PumpID]
		if e.IsOn == wasOn {
			if e.IsOn {
				durations.OnStreak += dt
			} else {
				durations.OffStreak += dt
			}
		} else {
			if e.IsOn {
				durations.OnStreak = dt
				durations.OffStreak = 0
			} else {
				durations.OffStreak = dt
				durations.OnStreak = 0
			}
		}
		d.state.PumpDurations[e.PumpID] = durations
		d.state.CurrentlyRunning[e.PumpID] = e.IsOn
		d.state.CurrentFrequencyHz[e.PumpID] = e.FrequencyHz
		if e.IsOn {
			d.state.PumpUsageHours[e.PumpID] += dt.Hours()
		}
	}

	if d.Base.FlushInterval > 0 && t.Sub(d.state.LastFlushTime) >= d.Base.FlushInterval {
		d.state.LastFlushTime = t
	}
}
