package scenario

import (
	"testing"

	"v2x-sim/internal/config"
)

func TestScenarioTransition(t *testing.T) {
	s := Scenario{
		Phases: []Phase{{
			Name:     "quiet",
			Triggers: []Trigger{{Event: EventTicksElapsed, Value: 10, Next: "attack"}},
		}, {
			Name: "attack",
		}},
	}

	if _, ok := s.NextPhase("quiet", Event{Type: EventTicksElapsed, Value: 9}); ok {
		t.Fatalf("transition fired early")
	}
	next, ok := s.NextPhase("quiet", Event{Type: EventTicksElapsed, Value: 10})
	if !ok || next != "attack" {
		t.Fatalf("expected transition to attack, got %s", next)
	}
	if _, ok := s.NextPhase("attack", Event{Type: EventTicksElapsed, Value: 100}); ok {
		t.Fatalf("final phase should not transition")
	}
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if len(sc.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(sc.Phases))
	}
	if sc.VehicleCount == nil || *sc.VehicleCount != 5 {
		t.Fatalf("unexpected vehicle count %v", sc.VehicleCount)
	}
	if p := sc.Phases[1].ThreatProbability; p == nil || *p != 0.8 {
		t.Fatalf("unexpected threat probability %v", p)
	}
}

func TestLoadScenario_Missing(t *testing.T) {
	if _, err := Load("testdata/missing.yaml"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestApply(t *testing.T) {
	cfg := config.Defaults()
	sc, err := Resolve("rush-hour")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	sc.Apply(cfg)
	if cfg.VehicleCount != 80 || cfg.RSUCount != 12 || cfg.ThreatProbability != 0.2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	cfg = config.Defaults()
	base, _ := Resolve("baseline")
	base.Apply(cfg)
	if *cfg != *config.Defaults() {
		t.Fatalf("baseline should not change config")
	}
}

func TestBuiltInTriggersReachablePhases(t *testing.T) {
	for name, sc := range BuiltIn() {
		if len(sc.Phases) == 0 {
			t.Fatalf("%s has no phases", name)
		}
		for _, p := range sc.Phases {
			for _, tr := range p.Triggers {
				if _, ok := sc.Phase(tr.Next); !ok {
					t.Fatalf("%s: phase %s points at unknown phase %s", name, p.Name, tr.Next)
				}
			}
		}
	}
}

func TestLoadScenario_NegativeCount(t *testing.T) {
	if _, err := Load("testdata/negative.yaml"); err == nil {
		t.Fatalf("expected error for negative vehicle_count")
	}
}
