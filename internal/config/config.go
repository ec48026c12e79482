// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"v2x-sim/internal/geo"
)

// Defaults for every tunable.
const (
	DefaultVehicleCount              = 25
	DefaultRSUCount                  = 8
	DefaultTickInterval              = 2 * time.Second
	DefaultThreatHistoryCap          = 100
	DefaultThreatProbability         = 0.3
	DefaultMaxSpeedKmh               = 120.0
	DefaultSuspiciousProbability     = 0.1
	DefaultCompromisedRSUProbability = 0.05
	DefaultStatusChangeProbability   = 0.02
)

// SimulationConfig is the root configuration of the V2X simulation.
type SimulationConfig struct {
	VehicleCount     int           `yaml:"vehicle_count"`
	RSUCount         int           `yaml:"rsu_count"`
	TickInterval     time.Duration `yaml:"tick_interval"`
	ThreatHistoryCap int           `yaml:"threat_history_cap"`
	// ThreatProbability is the chance of one new threat per tick.
	ThreatProbability         float64    `yaml:"threat_probability"`
	Bounds                    geo.Bounds `yaml:"bounds"`
	Seed                      int64      `yaml:"seed"`
	MaxSpeedKmh               float64    `yaml:"max_speed_kmh"`
	SuspiciousProbability     float64    `yaml:"suspicious_probability"`
	CompromisedRSUProbability float64    `yaml:"compromised_rsu_probability"`
	StatusChangeProbability   float64    `yaml:"status_change_probability"`
	// MutualRange requires vehicle and RSU to be in each other's range.
	MutualRange bool `yaml:"mutual_range"`
	// ResetResumes starts the clock again after a reset.
	ResetResumes bool `yaml:"reset_resumes"`
}

// Defaults returns a configuration with every field set to its default.
func Defaults() *SimulationConfig {
	cfg := &SimulationConfig{
		VehicleCount:              DefaultVehicleCount,
		RSUCount:                  DefaultRSUCount,
		SuspiciousProbability:     DefaultSuspiciousProbability,
		CompromisedRSUProbability: DefaultCompromisedRSUProbability,
		StatusChangeProbability:   DefaultStatusChangeProbability,
		ThreatProbability:         DefaultThreatProbability,
	}
	cfg.Normalize()
	return cfg
}

// Normalize fills unset durations, caps, speed and bounds with defaults.
// Zero counts and zero probabilities are kept.
func (c *SimulationConfig) Normalize() {
	if c.VehicleCount < 0 {
		c.VehicleCount = 0
	}
	if c.RSUCount < 0 {
		c.RSUCount = 0
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.ThreatHistoryCap <= 0 {
		c.ThreatHistoryCap = DefaultThreatHistoryCap
	}
	if c.MaxSpeedKmh <= 0 {
		c.MaxSpeedKmh = DefaultMaxSpeedKmh
	}
	if c.Bounds.IsZero() {
		c.Bounds = geo.DefaultBounds
	}
}

// Load loads YAML config and validates it against a CUE schema. Keys missing
// from the file keep their defaults.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}
