// Package datasource implements the HistoricalDataSource port (spec
// §4.A) by replaying a JSON-encoded series of observed tunnel states.
// Grounded on the teacher's internal/data package (json.go's
// LoadGridStatusJSON + cache.go's on-disk caching idiom), adapted from
// LMP price intervals to tunnel level/inflow/price records. This stays
// inside the spec's Non-goal on HTTP/REST bridges: it never makes a
// network call, only replays a file already on disk.
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/alexha11/tunnel-mpc/internal/model"
	"github.com/alexha11/tunnel-mpc/internal/tunnel"
)

// Record is one entry of the on-disk historical series. Some historical
// loggers record stored volume rather than level; VolumeM3 is consulted
// only when L1M is absent (zero).
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	L1M          float64   `json:"l1_m"`
	VolumeM3     float64   `json:"volume_m3"`
	InflowM3S    float64   `json:"inflow_m3s"`
	OutflowM3S   float64   `json:"outflow_m3s"`
	PriceCPerKWh float64   `json:"price_c_per_kwh"`
	Pumps        []struct {
		ID          string  `json:"id"`
		IsOn        bool    `json:"is_on"`
		FrequencyHz float64 `json:"frequency_hz"`
	} `json:"pumps"`
}

// JSONSource serves StateAt/ForecastFrom/BaselineScheduleAt from a
// chronologically sorted in-memory slice loaded from disk once at
// construction.
type JSONSource struct {
	records []Record
	curve   tunnel.VolumeLevelCurve
	pumps   map[string]model.PumpSpec
}

// LoadJSONSource reads and sorts a historical series from path. pumps is
// used only to derive flow/power for BaselineScheduleAt from the
// recorded frequency; it may be nil if the baseline dispatch is never
// consulted.
func LoadJSONSource(path string, pumps []model.PumpSpec) (*JSONSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read historical series %q: %w", path, err)
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse historical series %q: %w", path, err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })

	pumpByID := make(map[string]model.PumpSpec, len(pumps))
	for _, p := range pumps {
		pumpByID[p.ID] = p
	}
	return &JSONSource{records: records, curve: tunnel.NewVolumeLevelCurve(), pumps: pumpByID}, nil
}

// FirstTimestamp returns the timestamp of the earliest loaded record, so
// a rolling driver knows where to start stepping from.
func (s *JSONSource) FirstTimestamp() (time.Time, error) {
	if len(s.records) == 0 {
		return time.Time{}, fmt.Errorf("historical series is empty")
	}
	return s.records[0].Timestamp, nil
}

// StateAt returns the last recorded state at or before t.
func (s *JSONSource) StateAt(_ context.Context, t time.Time) (model.CurrentState, error) {
	idx := s.indexAtOrBefore(t)
	if idx < 0 {
		return model.CurrentState{}, fmt.Errorf("no historical record at or before %s", t)
	}
	return s.toCurrentState(s.records[idx]), nil
}

// ForecastFrom returns horizonSteps records strictly after t, in order.
// It returns an error if fewer than horizonSteps records remain.
func (s *JSONSource) ForecastFrom(_ context.Context, t time.Time, horizonSteps int) (model.ForecastData, error) {
	start := s.indexAfter(t)
	if start < 0 || start+horizonSteps > len(s.records) {
		return model.ForecastData{}, fmt.Errorf("insufficient historical records for a %d-step forecast from %s", horizonSteps, t)
	}

	forecast := model.ForecastData{
		Timestamps:   make([]time.Time, horizonSteps),
		InflowM3S:    make([]float64, horizonSteps),
		PriceCPerKWh: make([]float64, horizonSteps),
	}
	for i := 0; i < horizonSteps; i++ {
		r := s.records[start+i]
		forecast.Timestamps[i] = r.Timestamp
		forecast.InflowM3S[i] = r.InflowM3S
		forecast.PriceCPerKWh[i] = r.PriceCPerKWh
	}
	return forecast, nil
}

// BaselineScheduleAt returns the ground-truth per-pump dispatch recorded
// at or before t, keyed by pump ID. Flow and power are derived from the
// recorded frequency via the same nominal curves the solver uses, since
// this kind of historical logger records on/off and frequency but not
// flow/power directly.
func (s *JSONSource) BaselineScheduleAt(_ context.Context, t time.Time) (map[string]model.ScheduleEntry, error) {
	idx := s.indexAtOrBefore(t)
	if idx < 0 {
		return nil, fmt.Errorf("no historical record at or before %s", t)
	}
	r := s.records[idx]
	l1 := r.L1M
	if l1 == 0 && r.VolumeM3 > 0 {
		l1 = s.curve.LevelFromVolume(r.VolumeM3)
	}

	out := make(map[string]model.ScheduleEntry, len(r.Pumps))
	for _, p := range r.Pumps {
		entry := model.ScheduleEntry{PumpID: p.ID, IsOn: p.IsOn, FrequencyHz: p.FrequencyHz}
		if p.IsOn {
			if spec, ok := s.pumps[p.ID]; ok {
				entry.FlowM3S = tunnel.NominalFlowM3S(spec, p.FrequencyHz)
				entry.PowerKW = tunnel.NominalPowerKW(spec, p.FrequencyHz, l1)
			}
		}
		out[p.ID] = entry
	}
	return out, nil
}

// DataRange returns the inclusive span of timestamps this source can
// answer StateAt/ForecastFrom/BaselineScheduleAt for.
func (s *JSONSource) DataRange(_ context.Context) (start, end time.Time, err error) {
	if len(s.records) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("historical series is empty")
	}
	return s.records[0].Timestamp, s.records[len(s.records)-1].Timestamp, nil
}

func (s *JSONSource) indexAtOrBefore(t time.Time) int {
	idx := sort.Search(len(s.records), func(i int) bool { return s.records[i].Timestamp.After(t) })
	return idx - 1
}

func (s *JSONSource) indexAfter(t time.Time) int {
	idx := sort.Search(len(s.records), func(i int) bool { return s.records[i].Timestamp.After(t) })
	if idx >= len(s.records) {
		return -1
	}
	return idx
}

func (s *JSONSource) toCurrentState(r Record) model.CurrentState {
	pumps := make([]model.PumpState, len(r.Pumps))
	for i, p := range r.Pumps {
		pumps[i] = model.PumpState{ID: p.ID, IsOn: p.IsOn, FrequencyHz: p.FrequencyHz}
	}
	l1 := r.L1M
	if l1 == 0 && r.VolumeM3 > 0 {
		l1 = s.curve.LevelFromVolume(r.VolumeM3)
	}
	return model.CurrentState{
		Timestamp:    r.Timestamp,
		L1M:          l1,
		InflowM3S:    r.InflowM3S,
		OutflowM3S:   r.OutflowM3S,
		PriceCPerKWh: r.PriceCPerKWh,
		Pumps:        pumps,
	}
}
