// Package config loads the YAML run configuration: the pump fleet, the
// tunnel's system constraints, and the solver/advisor/quality-tracker
// tuning knobs. Grounded on the teacher's internal/config package
// (Config/Load/Validate shape, gopkg.in/yaml.v3 unmarshaling), adapted
// from a single-battery config to a pump fleet plus tunnel constraints.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexha11/tunnel-mpc/internal/model"
)

// Config is the on-disk configuration shape.
type Config struct {
	Pumps       []PumpConfig       `yaml:"pumps"`
	Constraints ConstraintsConfig  `yaml:"constraints"`
	Solver      SolverConfig       `yaml:"solver"`
	Advisor     AdvisorConfig      `yaml:"advisor"`
	Quality     QualityConfig      `yaml:"quality"`
	DataSource  DataSourceConfig   `yaml:"data_source"`
}

// PumpConfig mirrors model.PumpSpec for YAML unmarshaling.
type PumpConfig struct {
	ID                   string  `yaml:"id"`
	MaxFlowM3S           float64 `yaml:"max_flow_m3s"`
	MaxPowerKW           float64 `yaml:"max_power_kw"`
	MinFrequencyHz       float64 `yaml:"min_frequency_hz"`
	MaxFrequencyHz       float64 `yaml:"max_frequency_hz"`
	PreferredFreqMinHz   float64 `yaml:"preferred_freq_min_hz"`
	PreferredFreqMaxHz   float64 `yaml:"preferred_freq_max_hz"`
	PowerVsL1SlopeKWPerM float64 `yaml:"power_vs_l1_slope_kw_per_m"`
	ReferenceL1M         float64 `yaml:"reference_l1_m"`
}

// ToModel converts a PumpConfig into the domain type.
func (p PumpConfig) ToModel() model.PumpSpec {
	return model.PumpSpec{
		ID:                   p.ID,
		MaxFlowM3S:           p.MaxFlowM3S,
		MaxPowerKW:           p.MaxPowerKW,
		MinFrequencyHz:       p.MinFrequencyHz,
		MaxFrequencyHz:       p.MaxFrequencyHz,
		PreferredFreqMinHz:   p.PreferredFreqMinHz,
		PreferredFreqMaxHz:   p.PreferredFreqMaxHz,
		PowerVsL1SlopeKWPerM: p.PowerVsL1SlopeKWPerM,
		ReferenceL1M:         p.ReferenceL1M,
	}
}

// ConstraintsConfig mirrors model.SystemConstraints for YAML unmarshaling.
type ConstraintsConfig struct {
	L1MinM              float64 `yaml:"l1_min_m"`
	L1MaxM              float64 `yaml:"l1_max_m"`
	TunnelVolumeM3      float64 `yaml:"tunnel_volume_m3"`
	MinPumpsOn          int     `yaml:"min_pumps_on"`
	MinOnDurationSec    int     `yaml:"min_on_duration_sec"`
	MinOffDurationSec   int     `yaml:"min_off_duration_sec"`
	FlushIntervalSec    int     `yaml:"flush_interval_sec"`
	FlushTargetL1M      float64 `yaml:"flush_target_l1_m"`
	AllowViolations     bool    `yaml:"allow_violations"`
	ViolationToleranceM float64 `yaml:"violation_tolerance_m"`
	ViolationPenalty    float64 `yaml:"violation_penalty"`

	SpecificEnergyTargetKWhPerM3 float64 `yaml:"specific_energy_target_kwh_per_m3"`
}

// ToModel converts a ConstraintsConfig into the domain type.
func (c ConstraintsConfig) ToModel() model.SystemConstraints {
	return model.SystemConstraints{
		L1MinM:              c.L1MinM,
		L1MaxM:               c.L1MaxM,
		TunnelVolumeM3:       c.TunnelVolumeM3,
		MinPumpsOn:           c.MinPumpsOn,
		MinOnDuration:        time.Duration(c.MinOnDurationSec) * time.Second,
		MinOffDuration:       time.Duration(c.MinOffDurationSec) * time.Second,
		FlushInterval:        time.Duration(c.FlushIntervalSec) * time.Second,
		FlushTargetL1M:       c.FlushTargetL1M,
		AllowViolations:      c.AllowViolations,
		ViolationToleranceM:  c.ViolationToleranceM,
		ViolationPenalty:     c.ViolationPenalty,

		SpecificEnergyTargetKWhPerM3: c.SpecificEnergyTargetKWhPerM3,
	}
}

// SolverConfig tunes the fallback chain's timeouts.
type SolverConfig struct {
	FullTimeoutSeconds       int `yaml:"full_timeout_seconds"`
	SimplifiedTimeoutSeconds int `yaml:"simplified_timeout_seconds"`
}

// AdvisorConfig tunes the strategic advisor adapter.
type AdvisorConfig struct {
	Enabled        bool `yaml:"enabled"`
	TimeoutSeconds int  `yaml:"timeout_seconds"`
}

// QualityConfig tunes the forecast-quality tracker's ring-buffer size.
type QualityConfig struct {
	WindowSize int `yaml:"window_size"`
}

// DataSourceConfig points at the historical series to replay.
type DataSourceConfig struct {
	Path string `yaml:"path"`
}

// Load reads, parses and validates a Config from path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate constructs the domain types and runs their own Validate
// methods, so config errors surface with the same messages the solver
// path would produce.
func (c *Config) Validate() error {
	if len(c.Pumps) == 0 {
		return fmt.Errorf("config: at least one pump is required")
	}
	for _, p := range c.Pumps {
		if err := p.ToModel().Validate(); err != nil {
			return fmt.Errorf("config: pump %q: %w", p.ID, err)
		}
	}
	if err := c.Constraints.ToModel().Validate(); err != nil {
		return fmt.Errorf("config: constraints: %w", err)
	}
	if c.DataSource.Path == "" {
		return fmt.Errorf("config: data_source.path is required")
	}
	return nil
}
