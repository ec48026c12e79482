package sim

import (
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// ThreatWriter handles newly generated threats.
type ThreatWriter interface {
	WriteThreat(threat.Threat) error
}

// Optional: threat writers may support batch mode.
type batchThreatWriter interface {
	WriteThreats([]threat.Threat) error
}

// StateWriter handles per-tick network state rows.
type StateWriter interface {
	WriteState(telemetry.NetworkStateRow) error
}

// SnapshotWriter receives the full observation after every tick.
type SnapshotWriter interface {
	WriteSnapshot(Snapshot) error
}

// CommandWriter receives every command the simulator handles.
type CommandWriter interface {
	WriteCommand(telemetry.CommandEventRow) error
}
