package scenario

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// BuiltIn returns the predefined scenarios keyed by name.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"baseline": {
			Name:        "Baseline",
			Description: "Default city traffic with background threat activity.",
			Phases: []Phase{
				{Name: "steady", Description: "Normal traffic, occasional anomalies."},
			},
		},
		"rush-hour": {
			Name:         "Rush Hour",
			Description:  "Dense traffic saturates roadside units before settling down.",
			VehicleCount: intPtr(80),
			RSUCount:     intPtr(12),
			Phases: []Phase{
				{
					Name:              "build-up",
					Description:       "Traffic volume climbs across the grid.",
					ThreatProbability: floatPtr(0.2),
					Triggers:          []Trigger{{Event: EventTicksElapsed, Value: 30, Next: "peak"}},
				},
				{
					Name:              "peak",
					Description:       "Congestion masks flooding and replay attempts.",
					ThreatProbability: floatPtr(0.45),
					Triggers:          []Trigger{{Event: EventTicksElapsed, Value: 90, Next: "easing"}},
				},
				{
					Name:              "easing",
					Description:       "Traffic thins out and anomaly rates drop.",
					ThreatProbability: floatPtr(0.25),
				},
			},
		},
		"under-attack": {
			Name:        "Under Attack",
			Description: "A coordinated campaign escalates until defenders contain it.",
			Phases: []Phase{
				{
					Name:              "reconnaissance",
					Description:       "Probing beacons and sporadic spoofing.",
					ThreatProbability: floatPtr(0.3),
					Triggers:          []Trigger{{Event: EventThreatsDetected, Value: 10, Next: "campaign"}},
				},
				{
					Name:              "campaign",
					Description:       "Threats arrive on almost every tick.",
					ThreatProbability: floatPtr(0.9),
					Triggers:          []Trigger{{Event: EventThreatsDetected, Value: 40, Next: "containment"}},
				},
				{
					Name:              "containment",
					Description:       "Operators isolate compromised nodes and activity subsides.",
					ThreatProbability: floatPtr(0.1),
				},
			},
		},
	}
}
