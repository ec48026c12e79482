// Vehicle and roadside unit state plus the rows written to sinks
package telemetry

import (
	"os"
	"time"

	"v2x-sim/internal/geo"
)

// VehicleStatus is the security posture of a vehicle.
type VehicleStatus string

// Vehicle status constants.
const (
	VehicleNormal      VehicleStatus = "normal"
	VehicleSuspicious  VehicleStatus = "suspicious"
	VehicleCompromised VehicleStatus = "compromised"
)

// ThreatLevel is a display-oriented classification of a vehicle.
type ThreatLevel string

// Threat level constants.
const (
	ThreatLevelLow    ThreatLevel = "low"
	ThreatLevelMedium ThreatLevel = "medium"
	ThreatLevelHigh   ThreatLevel = "high"
)

// RSUStatus is the operational state of a roadside unit.
type RSUStatus string

// RSU status constants.
const (
	RSUActive      RSUStatus = "active"
	RSUCompromised RSUStatus = "compromised"
	RSUOffline     RSUStatus = "offline"
)

// Vehicle holds runtime state for a simulated vehicle.
type Vehicle struct {
	ID                  string        `json:"id"`
	Position            geo.Point     `json:"position"`
	SpeedKmh            float64       `json:"speed_kmh"`
	HeadingDeg          float64       `json:"heading_deg"`
	Status              VehicleStatus `json:"status"`
	CommunicationRangeM float64       `json:"communication_range_m"`
	ThreatLevel         ThreatLevel   `json:"threat_level"`
	ConnectedRSUs       []string      `json:"connected_rsus"`
	LastBeacon          time.Time     `json:"last_beacon"`
}

// Clone returns a copy that shares no slices with v.
func (v Vehicle) Clone() Vehicle {
	v.ConnectedRSUs = cloneIDs(v.ConnectedRSUs)
	return v
}

// RSU holds runtime state for a fixed roadside unit.
type RSU struct {
	ID                    string    `json:"id"`
	Position              geo.Point `json:"position"`
	RangeM                float64   `json:"range_m"`
	Status                RSUStatus `json:"status"`
	ConnectedVehicles     []string  `json:"connected_vehicles"`
	DetectionCapabilities []string  `json:"detection_capabilities"`
	LastUpdate            time.Time `json:"last_update"`
	ThreatDetections      []string  `json:"threat_detections"`
}

// Clone returns a copy that shares no slices with r.
func (r RSU) Clone() RSU {
	r.ConnectedVehicles = cloneIDs(r.ConnectedVehicles)
	r.DetectionCapabilities = cloneIDs(r.DetectionCapabilities)
	r.ThreatDetections = cloneIDs(r.ThreatDetections)
	return r
}

// CloneVehicles deep-copies a vehicle slice.
func CloneVehicles(vs []Vehicle) []Vehicle {
	out := make([]Vehicle, len(vs))
	for i, v := range vs {
		out[i] = v.Clone()
	}
	return out
}

// CloneRSUs deep-copies an RSU slice.
func CloneRSUs(rs []RSU) []RSU {
	out := make([]RSU, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// TelemetryRow represents one vehicle beacon record for GreptimeDB.
type TelemetryRow struct {
	ClusterID     string        `json:"cluster_id"` // TAG
	VehicleID     string        `json:"vehicle_id"` // TAG
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	SpeedKmh      float64       `json:"speed_kmh"`
	HeadingDeg    float64       `json:"heading_deg"`
	Status        VehicleStatus `json:"status"`
	ThreatLevel   ThreatLevel   `json:"threat_level"`
	ConnectedRSUs int           `json:"connected_rsus"`
	Timestamp     time.Time     `json:"ts"` // TIME INDEX
}

// TelemetryTableName holds the table name used when writing to GreptimeDB.
// It defaults to "vehicle_telemetry" but can be overridden via the
// GREPTIMEDB_TABLE environment variable.
var TelemetryTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_TABLE"); env != "" {
		return env
	}
	return "vehicle_telemetry"
}()

func (TelemetryRow) TableName() string {
	return TelemetryTableName
}

// NewTelemetryRow builds the beacon row for v.
func NewTelemetryRow(clusterID string, v Vehicle) TelemetryRow {
	return TelemetryRow{
		ClusterID:     clusterID,
		VehicleID:     v.ID,
		Lat:           v.Position.Lat,
		Lng:           v.Position.Lng,
		SpeedKmh:      v.SpeedKmh,
		HeadingDeg:    v.HeadingDeg,
		Status:        v.Status,
		ThreatLevel:   v.ThreatLevel,
		ConnectedRSUs: len(v.ConnectedRSUs),
		Timestamp:     v.LastBeacon,
	}
}
