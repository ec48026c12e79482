package telemetry

import "time"

const (
	CommandToggleRun = "toggle_run"
	CommandReset     = "reset"
	CommandDismiss   = "dismiss_threat"
	CommandMitigate  = "mitigate_threat"
	CommandRemediate = "remediate_vehicle"
)

// CommandEventRow records one command received from a collaborator.
type CommandEventRow struct {
	ClusterID string    `json:"cluster_id"`
	Command   string    `json:"command"`
	TargetID  string    `json:"target_id,omitempty"`
	Applied   bool      `json:"applied"`
	Timestamp time.Time `json:"ts"`
}
