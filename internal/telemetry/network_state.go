package telemetry

import "time"

// NetworkStateRow captures per-tick network metrics.
type NetworkStateRow struct {
	ClusterID        string    `json:"cluster_id"`
	Tick             uint64    `json:"tick"`
	Running          bool      `json:"running"`
	TotalVehicles    int       `json:"total_vehicles"`
	ActiveRSUs       int       `json:"active_rsus"`
	ThreatsDetected  int       `json:"threats_detected"`
	CompromisedNodes int       `json:"compromised_nodes"`
	NetworkHealth    int       `json:"network_health"`
	MessagesSent     int       `json:"messages_sent"`
	MessagesReceived int       `json:"messages_received"`
	AverageLatencyMs float64   `json:"average_latency_ms"`
	Timestamp        time.Time `json:"ts"`
}
