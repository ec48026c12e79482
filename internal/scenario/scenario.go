package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"v2x-sim/internal/config"
)

// Event types understood by triggers.
const (
	EventTicksElapsed    = "ticks_elapsed"
	EventThreatsDetected = "threats_detected"
)

// Scenario overrides the population and drives the threat rate through
// ordered phases.
type Scenario struct {
	Name         string  `yaml:"name,omitempty"`
	Description  string  `yaml:"description,omitempty"`
	VehicleCount *int    `yaml:"vehicle_count,omitempty"`
	RSUCount     *int    `yaml:"rsu_count,omitempty"`
	Phases       []Phase `yaml:"phases"`
}

// Phase is one stage of a scenario. A nil ThreatProbability keeps the
// configured rate.
type Phase struct {
	Name              string    `yaml:"name"`
	Description       string    `yaml:"description,omitempty"`
	ThreatProbability *float64  `yaml:"threat_probability,omitempty"`
	Triggers          []Trigger `yaml:"triggers,omitempty"`
}

// Trigger moves the scenario to another phase based on an event.
type Trigger struct {
	Event string `yaml:"event"`
	Value int    `yaml:"value"`
	Next  string `yaml:"next"`
}

// Event represents a runtime occurrence that may advance the scenario.
type Event struct {
	Type  string
	Value int
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Phases) == 0 {
		return nil, fmt.Errorf("scenario %q has no phases", s.Name)
	}
	if s.VehicleCount != nil && *s.VehicleCount < 0 {
		return nil, fmt.Errorf("scenario %q: vehicle_count must not be negative", s.Name)
	}
	if s.RSUCount != nil && *s.RSUCount < 0 {
		return nil, fmt.Errorf("scenario %q: rsu_count must not be negative", s.Name)
	}
	return &s, nil
}

// Resolve returns the built-in scenario called name or loads it from a file.
func Resolve(name string) (*Scenario, error) {
	if sc, ok := BuiltIn()[name]; ok {
		return &sc, nil
	}
	return Load(name)
}

// Apply copies the scenario's overrides into cfg.
func (s *Scenario) Apply(cfg *config.SimulationConfig) {
	if s.VehicleCount != nil {
		cfg.VehicleCount = *s.VehicleCount
	}
	if s.RSUCount != nil {
		cfg.RSUCount = *s.RSUCount
	}
	if len(s.Phases) > 0 && s.Phases[0].ThreatProbability != nil {
		cfg.ThreatProbability = *s.Phases[0].ThreatProbability
	}
}

// Phase returns the phase called name.
func (s *Scenario) Phase(name string) (Phase, bool) {
	for _, p := range s.Phases {
		if p.Name == name {
			return p, true
		}
	}
	return Phase{}, false
}

// NextPhase returns the name of the next phase given the current phase and event.
// If no trigger matches, ok will be false.
func (s *Scenario) NextPhase(current string, ev Event) (next string, ok bool) {
	for _, p := range s.Phases {
		if p.Name != current {
			continue
		}
		for _, tr := range p.Triggers {
			if tr.Event == ev.Type && ev.Value >= tr.Value {
				return tr.Next, true
			}
		}
	}
	return "", false
}
