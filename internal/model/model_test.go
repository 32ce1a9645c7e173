package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPumpSpecValidateRejectsMalformedFrequencyBand(t *testing.T) {
	p := PumpSpec{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 40, MaxFrequencyHz: 30}
	require.Error(t, p.Validate())
}

func TestPumpSpecValidateAcceptsWellFormedSpec(t *testing.T) {
	p := PumpSpec{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 25, MaxFrequencyHz: 50}
	require.NoError(t, p.Validate())
}

func TestPumpSpecBasePowerKWIsBelowMaxPower(t *testing.T) {
	p := PumpSpec{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 25, MaxFrequencyHz: 50}
	assert.Less(t, p.BasePowerKW(), p.MaxPowerKW)
	assert.Greater(t, p.BasePowerKW(), 0.0)
}

func TestScheduleEntryValidateRejectsNonZeroWhenOff(t *testing.T) {
	spec := PumpSpec{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 25, MaxFrequencyHz: 50}
	e := ScheduleEntry{PumpID: "P1", IsOn: false, FrequencyHz: 30}
	require.Error(t, e.Validate(spec))
}

func TestScheduleEntryValidateRejectsFrequencyOutOfBand(t *testing.T) {
	spec := PumpSpec{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 25, MaxFrequencyHz: 50}
	e := ScheduleEntry{PumpID: "P1", IsOn: true, FrequencyHz: 60}
	require.Error(t, e.Validate(spec))
}

func TestScheduleEntryValidateAcceptsInBandEntry(t *testing.T) {
	spec := PumpSpec{ID: "P1", MaxFlowM3S: 1, MaxPowerKW: 50, MinFrequencyHz: 25, MaxFrequencyHz: 50}
	e := ScheduleEntry{PumpID: "P1", IsOn: true, FrequencyHz: 40}
	require.NoError(t, e.Validate(spec))
}

func TestSystemConstraintsValidateRejectsInvertedLevelWindow(t *testing.T) {
	c := SystemConstraints{L1MinM: 5, L1MaxM: 1, TunnelVolumeM3: 1000, MinPumpsOn: 1}
	require.Error(t, c.Validate())
}

func TestSystemConstraintsValidateRejectsZeroMinPumpsOn(t *testing.T) {
	c := SystemConstraints{L1MinM: 1, L1MaxM: 5, TunnelVolumeM3: 1000, MinPumpsOn: 0}
	require.Error(t, c.Validate())
}

func TestForecastDataValidateRejectsMismatchedLengths(t *testing.T) {
	f := ForecastData{
		Timestamps:   []time.Time{time.Unix(0, 0), time.Unix(900, 0)},
		InflowM3S:    []float64{1.0},
		PriceCPerKWh: []float64{10, 10},
	}
	require.Error(t, f.Validate())
}

func TestForecastDataValidateRejectsIrregularTimestep(t *testing.T) {
	base := time.Unix(0, 0)
	f := ForecastData{
		Timestamps:   []time.Time{base, base.Add(15 * time.Minute), base.Add(45 * time.Minute)},
		InflowM3S:    []float64{1, 1, 1},
		PriceCPerKWh: []float64{10, 10, 10},
	}
	require.Error(t, f.Validate())
}

func TestForecastDataValidateAcceptsRegularSeries(t *testing.T) {
	base := time.Unix(0, 0)
	f := ForecastData{
		Timestamps:   []time.Time{base, base.Add(15 * time.Minute), base.Add(30 * time.Minute)},
		InflowM3S:    []float64{1, 1, 1},
		PriceCPerKWh: []float64{10, 10, 10},
	}
	require.NoError(t, f.Validate())
	assert.Equal(t, 3, f.Horizon())
	assert.Equal(t, 15*time.Minute, f.StepDuration())
}

func TestCurrentStateCountOn(t *testing.T) {
	s := CurrentState{Pumps: []PumpState{{IsOn: true}, {IsOn: false}, {IsOn: true}}}
	assert.Equal(t, 2, s.CountOn())
}

func TestStrategicPlanValidateRejectsOverlappingBands(t *testing.T) {
	base := time.Unix(0, 0)
	p := StrategicPlan{Bands: []PlanBand{
		{Start: base, End: base.Add(2 * time.Hour), Strategy: LabelNormal},
		{Start: base.Add(time.Hour), End: base.Add(3 * time.Hour), Strategy: StrategyLabel(PlanHold)},
	}}
	require.Error(t, p.Validate())
}

func TestStrategicPlanBandAtFallsBackToNormalOutsideAnyBand(t *testing.T) {
	base := time.Unix(0, 0)
	p := &StrategicPlan{Bands: []PlanBand{
		{Start: base, End: base.Add(time.Hour), Strategy: LabelNormal},
	}}
	assert.Equal(t, LabelNormal, p.BandAt(base.Add(2*time.Hour)))
}

func TestStrategicPlanBandAtNilPlanIsNormal(t *testing.T) {
	var p *StrategicPlan
	assert.Equal(t, LabelNormal, p.BandAt(base()))
}

func base() time.Time { return time.Unix(0, 0) }
