package datasource

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := make([]Record, 6)
	for i := range records {
		records[i] = Record{
			Timestamp:    base.Add(time.Duration(i) * 15 * time.Minute),
			L1M:          3.0 + float64(i)*0.1,
			InflowM3S:    1.0,
			PriceCPerKWh: 10 + float64(i),
		}
	}
	raw, err := json.Marshal(records)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "series.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func TestJSONSourceStateAtReturnsLastAtOrBefore(t *testing.T) {
	src, err := LoadJSONSource(writeFixture(t), nil)
	require.NoError(t, err)

	at := time.Date(2026, 1, 1, 0, 20, 0, 0, time.UTC)
	state, err := src.StateAt(context.Background(), at)
	require.NoError(t, err)
	require.InDelta(t, 3.1, state.L1M, 1e-9)
}

func TestJSONSourceForecastFromReturnsOrderedSteps(t *testing.T) {
	src, err := LoadJSONSource(writeFixture(t), nil)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	forecast, err := src.ForecastFrom(context.Background(), start, 3)
	require.NoError(t, err)
	require.Len(t, forecast.InflowM3S, 3)
	require.InDelta(t, 11, forecast.PriceCPerKWh[0], 1e-9)
}

func TestJSONSourceForecastFromErrorsWhenInsufficient(t *testing.T) {
	src, err := LoadJSONSource(writeFixture(t), nil)
	require.NoError(t, err)

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = src.ForecastFrom(context.Background(), start, 50)
	require.Error(t, err)
}

func TestJSONSourceDerivesLevelFromVolumeWhenLevelAbsent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Timestamp: base, VolumeM3: 350, InflowM3S: 1.0, PriceCPerKWh: 10},
	}
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "volume-only.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	src, err := LoadJSONSource(path, nil)
	require.NoError(t, err)

	state, err := src.StateAt(context.Background(), base)
	require.NoError(t, err)
	require.Greater(t, state.L1M, 0.0, "a record with only VolumeM3 must still yield a usable L1M")
}

func TestJSONSourceBaselineScheduleAtDerivesFlowAndPower(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{
			Timestamp: base, L1M: 3.0, InflowM3S: 1.0, PriceCPerKWh: 10,
			Pumps: []struct {
				ID          string  `json:"id"`
				IsOn        bool    `json:"is_on"`
				FrequencyHz float64 `json:"frequency_hz"`
			}{{ID: "P1", IsOn: true, FrequencyHz: 45}},
		},
	}
	raw, err := json.Marshal(records)
	require.NoError(t, err)
	dir := t.TempDir()
	path := filepath.Join(dir, "with-pumps.json")
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	pumps := []model.PumpSpec{{ID: "P1", MinFrequencyHz: 30, MaxFrequencyHz: 60, MaxFlowM3S: 2.0}}
	src, err := LoadJSONSource(path, pumps)
	require.NoError(t, err)

	schedule, err := src.BaselineScheduleAt(context.Background(), base)
	require.NoError(t, err)
	require.True(t, schedule["P1"].IsOn)
	require.Greater(t, schedule["P1"].FlowM3S, 0.0)
}

func TestJSONSourceDataRangeSpansFirstToLastRecord(t *testing.T) {
	src, err := LoadJSONSource(writeFixture(t), nil)
	require.NoError(t, err)

	start, end, err := src.DataRange(context.Background())
	require.NoError(t, err)
	require.True(t, end.After(start))
}
