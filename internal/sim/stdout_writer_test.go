package sim

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"v2x-sim/internal/config"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

func TestStdoutWriterJSONFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{out: buf, colorize: false}
	row := telemetry.TelemetryRow{ClusterID: "c1", VehicleID: "V-001", Timestamp: time.Unix(0, 0)}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var got telemetry.TelemetryRow
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}
	if got.VehicleID != "V-001" {
		t.Fatalf("unexpected row %+v", got)
	}
}

func TestStdoutWriterColorized(t *testing.T) {
	cfg := config.Defaults()
	buf := &bytes.Buffer{}
	w := &StdoutWriter{cfg: cfg, colorize: true, out: buf}
	row := telemetry.TelemetryRow{ClusterID: "c1", VehicleID: "V-001", Lat: 1, Lng: 2, Status: telemetry.VehicleCompromised, Timestamp: time.Unix(0, 0)}
	if err := w.Write(row); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "Simulation Configuration:") || !strings.Contains(output, "Vehicles:") {
		t.Fatalf("overview not printed: %q", output)
	}
	if !strings.Contains(output, colorRed+"status=compromised") {
		t.Fatalf("expected compromised status in red: %q", output)
	}

	buf.Reset()
	th := threat.Threat{ID: "T-1", Category: threat.DoSAttack, Severity: threat.SeverityHigh, SourceID: "V-001", TargetID: "V-002", Timestamp: time.Unix(0, 0)}
	if err := w.WriteThreat(th); err != nil {
		t.Fatalf("threat write failed: %v", err)
	}
	if strings.Contains(buf.String(), "Simulation Configuration:") {
		t.Fatalf("overview printed more than once")
	}
	if !strings.Contains(buf.String(), "THREAT") || !strings.Contains(buf.String(), "target=V-002") {
		t.Fatalf("unexpected threat line %q", buf.String())
	}
}

func TestStdoutWriterStateAndCommands(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &StdoutWriter{colorize: true, out: buf}
	if err := w.WriteState(telemetry.NetworkStateRow{Tick: 4, NetworkHealth: 55}); err != nil {
		t.Fatalf("state: %v", err)
	}
	if !strings.Contains(buf.String(), colorRed+"health=55") {
		t.Fatalf("critical health should be red: %q", buf.String())
	}
	buf.Reset()
	if err := w.WriteCommand(telemetry.CommandEventRow{Command: telemetry.CommandDismiss, TargetID: "T-9"}); err != nil {
		t.Fatalf("command: %v", err)
	}
	if !strings.Contains(buf.String(), "dismiss_threat T-9") || !strings.Contains(buf.String(), "no-op") {
		t.Fatalf("unexpected command line %q", buf.String())
	}
}
