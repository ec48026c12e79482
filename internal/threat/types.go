package threat

import (
	"os"
	"time"
)

// Category is the closed set of threat kinds the generator can emit.
type Category string

const (
	GPSSpoofing           Category = "gps_spoofing"
	MessageFlooding       Category = "message_flooding"
	ReplayAttack          Category = "replay_attack"
	PositionFalsification Category = "position_falsification"
	DoSAttack             Category = "dos_attack"
)

// Categories lists every Category in a stable order.
var Categories = []Category{GPSSpoofing, MessageFlooding, ReplayAttack, PositionFalsification, DoSAttack}

// Severity ranks a threat.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Severities lists every Severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

// Evidence is the auxiliary detection context attached to a threat.
type Evidence struct {
	DetectedBy     string  `json:"detected_by"`
	SignalStrength float64 `json:"signal_strength"`
	AnomalyScore   float64 `json:"anomaly_score"`
}

// Threat is one synthetic detection event.
type Threat struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	Severity    Severity  `json:"severity"`
	Timestamp   time.Time `json:"ts"`
	SourceID    string    `json:"source_id"`
	TargetID    string    `json:"target_id,omitempty"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	Mitigated   bool      `json:"mitigated"`
	Evidence    Evidence  `json:"evidence"`
}

// ThreatTableName is the GreptimeDB table for threat rows. Override with THREAT_TABLE.
var ThreatTableName = func() string {
	if env := os.Getenv("THREAT_TABLE"); env != "" {
		return env
	}
	return "v2x_threats"
}()

func (Threat) TableName() string {
	return ThreatTableName
}
