package telemetry

import (
	"fmt"
	"math/rand"

	"v2x-sim/internal/geo"
)

// DetectionCapabilities lists the threat categories every RSU claims to monitor.
var DetectionCapabilities = []string{
	"gps_spoofing",
	"message_flooding",
	"replay_attack",
	"position_falsification",
	"dos_attack",
}

// Factory creates the initial vehicle and RSU populations.
type Factory struct {
	Bounds                    geo.Bounds
	SuspiciousProbability     float64
	CompromisedRSUProbability float64
	rand                      *rand.Rand
}

// NewFactory returns a factory sampling from r.
func NewFactory(bounds geo.Bounds, suspiciousProb, compromisedRSUProb float64, r *rand.Rand) *Factory {
	return &Factory{
		Bounds:                    bounds,
		SuspiciousProbability:     suspiciousProb,
		CompromisedRSUProbability: compromisedRSUProb,
		rand:                      r,
	}
}

// NewVehicles returns n vehicles numbered V-001 onwards. Numbering restarts on
// every call, so the result replaces any previous population.
func (f *Factory) NewVehicles(n int) []Vehicle {
	vehicles := make([]Vehicle, 0, n)
	for i := 0; i < n; i++ {
		status := VehicleNormal
		if f.rand.Float64() < f.SuspiciousProbability {
			status = VehicleSuspicious
		}
		vehicles = append(vehicles, Vehicle{
			ID:                  fmt.Sprintf("V-%03d", i+1),
			Position:            f.Bounds.RandomPoint(f.rand),
			SpeedKmh:            20 + f.rand.Float64()*60,
			HeadingDeg:          f.rand.Float64() * 360,
			Status:              status,
			CommunicationRangeM: 300 + f.rand.Float64()*200,
			ThreatLevel:         f.randomThreatLevel(),
			ConnectedRSUs:       []string{},
		})
	}
	return vehicles
}

// NewRSUs returns m roadside units numbered RSU-01 onwards.
func (f *Factory) NewRSUs(m int) []RSU {
	rsus := make([]RSU, 0, m)
	for i := 0; i < m; i++ {
		status := RSUActive
		if f.rand.Float64() < f.CompromisedRSUProbability {
			status = RSUCompromised
		}
		caps := make([]string, len(DetectionCapabilities))
		copy(caps, DetectionCapabilities)
		rsus = append(rsus, RSU{
			ID:                    fmt.Sprintf("RSU-%02d", i+1),
			Position:              f.Bounds.RandomPoint(f.rand),
			RangeM:                800 + f.rand.Float64()*400,
			Status:                status,
			ConnectedVehicles:     []string{},
			DetectionCapabilities: caps,
			ThreatDetections:      []string{},
		})
	}
	return rsus
}

// randomThreatLevel: high is rarest, medium uncommon, low the rest.
func (f *Factory) randomThreatLevel() ThreatLevel {
	if f.rand.Float64() > 0.95 {
		return ThreatLevelHigh
	}
	if f.rand.Float64() > 0.85 {
		return ThreatLevelMedium
	}
	return ThreatLevelLow
}
