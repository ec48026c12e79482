// Writer implementation printing telemetry to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"v2x-sim/internal/config"
	"v2x-sim/internal/network"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
)

// StdoutWriter prints rows to STDOUT, either colorized for humans or as JSON lines.
type StdoutWriter struct {
	cfg      *config.SimulationConfig
	out      io.Writer
	colorize bool
	once     sync.Once
	mu       sync.Mutex
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(cfg *config.SimulationConfig, colorize bool) *StdoutWriter {
	return &StdoutWriter{cfg: cfg, out: os.Stdout, colorize: colorize}
}

func (w *StdoutWriter) printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

func (w *StdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Vehicles:\t%d\n", w.cfg.VehicleCount)
	fmt.Fprintf(tw, "Roadside Units:\t%d\n", w.cfg.RSUCount)
	fmt.Fprintf(tw, "Tick Interval:\t%s\n", w.cfg.TickInterval)
	fmt.Fprintf(tw, "Threat Probability:\t%.2f\n", w.cfg.ThreatProbability)
	fmt.Fprintf(tw, "Threat History:\t%d\n", w.cfg.ThreatHistoryCap)
	fmt.Fprintf(tw, "Max Speed (km/h):\t%.0f\n", w.cfg.MaxSpeedKmh)
	fmt.Fprintf(tw, "Mutual Range:\t%t\n", w.cfg.MutualRange)
	fmt.Fprintf(tw, "Bounds:\tN %.4f S %.4f E %.4f W %.4f\n", w.cfg.Bounds.North, w.cfg.Bounds.South, w.cfg.Bounds.East, w.cfg.Bounds.West)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func statusColor(s telemetry.VehicleStatus) string {
	switch s {
	case telemetry.VehicleCompromised:
		return colorRed
	case telemetry.VehicleSuspicious:
		return colorYellow
	}
	return colorGreen
}

func severityColor(s threat.Severity) string {
	switch s {
	case threat.SeverityHigh:
		return colorRed
	case threat.SeverityMedium:
		return colorYellow
	}
	return colorCyan
}

func healthColor(h int) string {
	switch network.HealthBand(h) {
	case network.BandHealthy:
		return colorGreen
	case network.BandDegraded:
		return colorYellow
	}
	return colorRed
}

func formatTelemetry(row telemetry.TelemetryRow) string {
	return fmt.Sprintf("%s[%s]%s %scluster=%s%s %svehicle=%s%s %slat=%.5f%s %slng=%.5f%s %sspd=%.1f%s %shdg=%.1f%s %srsus=%d%s %sstatus=%s%s",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, row.ClusterID, colorReset,
		colorWhite, row.VehicleID, colorReset,
		colorGreen, row.Lat, colorReset,
		colorYellow, row.Lng, colorReset,
		colorYellow, row.SpeedKmh, colorReset,
		colorCyan, row.HeadingDeg, colorReset,
		colorMagenta, row.ConnectedRSUs, colorReset,
		statusColor(row.Status), row.Status, colorReset)
}

func formatThreat(t threat.Threat) string {
	line := fmt.Sprintf("%s[%s]%s %sTHREAT%s %s %s%s%s %s source=%s",
		colorGray, t.Timestamp.Format(time.RFC3339), colorReset,
		colorRed, colorReset, t.ID,
		severityColor(t.Severity), t.Severity, colorReset,
		t.Category, t.SourceID)
	if t.TargetID != "" {
		line += " target=" + t.TargetID
	}
	return line + fmt.Sprintf(" rsu=%s conf=%.2f %s%q%s", t.Evidence.DetectedBy, t.Confidence, colorGray, t.Description, colorReset)
}

func formatState(row telemetry.NetworkStateRow) string {
	return fmt.Sprintf("%s[%s]%s %sSTATE%s tick=%d %shealth=%d%s vehicles=%d rsus=%d threats=%d compromised=%d msgs=%d/%d latency=%.1fms running=%t",
		colorGray, row.Timestamp.Format(time.RFC3339), colorReset,
		colorBlue, colorReset, row.Tick,
		healthColor(row.NetworkHealth), row.NetworkHealth, colorReset,
		row.TotalVehicles, row.ActiveRSUs, row.ThreatsDetected, row.CompromisedNodes,
		row.MessagesReceived, row.MessagesSent, row.AverageLatencyMs, row.Running)
}

func formatCommand(ev telemetry.CommandEventRow) string {
	line := fmt.Sprintf("%s[%s]%s %sCMD%s %s", colorGray, ev.Timestamp.Format(time.RFC3339), colorReset, colorMagenta, colorReset, ev.Command)
	if ev.TargetID != "" {
		line += " " + ev.TargetID
	}
	if !ev.Applied {
		line += fmt.Sprintf(" %s(no-op)%s", colorGray, colorReset)
	}
	return line
}

// Write outputs a single telemetry row.
func (w *StdoutWriter) Write(row telemetry.TelemetryRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatTelemetry(row))
	return err
}

// WriteBatch outputs multiple telemetry rows.
func (w *StdoutWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteThreat prints a newly generated threat.
func (w *StdoutWriter) WriteThreat(t threat.Threat) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		return w.printJSON(t)
	}
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatThreat(t))
	return err
}

// WriteState prints per-tick network metrics.
func (w *StdoutWriter) WriteState(row telemetry.NetworkStateRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)
	_, err := fmt.Fprintln(w.out, formatState(row))
	return err
}

// WriteCommand prints a handled command.
func (w *StdoutWriter) WriteCommand(ev telemetry.CommandEventRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.colorize {
		return w.printJSON(ev)
	}
	_, err := fmt.Fprintln(w.out, formatCommand(ev))
	return err
}
