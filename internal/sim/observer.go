package sim

import (
	"time"

	"v2x-sim/internal/telemetry"
)

// Commands returns a copy of the command audit log, oldest first.
func (s *Simulator) Commands() []telemetry.CommandEventRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]telemetry.CommandEventRow, len(s.commands))
	copy(out, s.commands)
	return out
}

// CommandsSince returns the audit entries recorded after ts.
func (s *Simulator) CommandsSince(ts time.Time) []telemetry.CommandEventRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []telemetry.CommandEventRow
	for _, c := range s.commands {
		if c.Timestamp.After(ts) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Simulator) logCommand(cmd, target string, applied bool) {
	ev := telemetry.CommandEventRow{
		ClusterID: s.clusterID,
		Command:   cmd,
		TargetID:  target,
		Applied:   applied,
		Timestamp: s.now().UTC(),
	}
	s.commands = append(s.commands, ev)
	if len(s.commands) > maxCommandLog {
		s.commands = append([]telemetry.CommandEventRow(nil), s.commands[len(s.commands)-maxCommandLog:]...)
	}
	if cw, ok := s.writer.(CommandWriter); ok {
		if err := cw.WriteCommand(ev); err != nil {
			s.log.Error("command write failed", "command", cmd, "target_id", target, "err", err)
		}
	}
}
