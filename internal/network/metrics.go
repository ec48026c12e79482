package network

import (
	"math"
	"math/rand"

	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

const (
	beaconsPerMinute = 60
	deliveryRate     = 0.95
	minLatencyMs     = 15.0
	maxLatencyMs     = 25.0
)

// Metrics summarizes one observation of the network.
type Metrics struct {
	TotalVehicles    int                     `json:"total_vehicles"`
	ActiveRSUs       int                     `json:"active_rsus"`
	ThreatsDetected  int                     `json:"threats_detected"`
	ThreatsByType    map[threat.Category]int `json:"threats_by_type"`
	NetworkHealth    int                     `json:"network_health"`
	MessagesSent     int                     `json:"messages_sent"`
	MessagesReceived int                     `json:"messages_received"`
	AverageLatencyMs float64                 `json:"average_latency_ms"`
	CompromisedNodes int                     `json:"compromised_nodes"`
}

// Aggregate derives Metrics from the three collections. Only the latency
// sample draws from r; a nil r yields the midpoint.
func Aggregate(vehicles []telemetry.Vehicle, rsus []telemetry.RSU, threats []threat.Threat, r *rand.Rand) Metrics {
	m := Metrics{
		TotalVehicles:   len(vehicles),
		ThreatsDetected: len(threats),
		ThreatsByType:   make(map[threat.Category]int),
	}
	for _, v := range vehicles {
		if v.Status == telemetry.VehicleCompromised {
			m.CompromisedNodes++
		}
	}
	for _, rsu := range rsus {
		switch rsu.Status {
		case telemetry.RSUCompromised:
			m.CompromisedNodes++
		case telemetry.RSUActive:
			m.ActiveRSUs++
		}
	}
	for _, t := range threats {
		m.ThreatsByType[t.Category]++
	}
	m.NetworkHealth = Health(m.CompromisedNodes, m.ThreatsDetected)
	m.MessagesSent = m.TotalVehicles * beaconsPerMinute
	m.MessagesReceived = int(math.Round(float64(m.MessagesSent) * deliveryRate))
	if r != nil {
		m.AverageLatencyMs = minLatencyMs + r.Float64()*(maxLatencyMs-minLatencyMs)
	} else {
		m.AverageLatencyMs = (minLatencyMs + maxLatencyMs) / 2
	}
	return m
}

// Health scores the network from 0 to 100.
func Health(compromisedNodes, threatCount int) int {
	h := 100 - 10*compromisedNodes - 2*threatCount
	if h < 0 {
		return 0
	}
	if h > 100 {
		return 100
	}
	return h
}

// Health bands.
const (
	BandHealthy  = "healthy"
	BandDegraded = "degraded"
	BandCritical = "critical"
)

// HealthBand buckets a health score for display.
func HealthBand(health int) string {
	switch {
	case health >= 80:
		return BandHealthy
	case health >= 60:
		return BandDegraded
	default:
		return BandCritical
	}
}
