package sim

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes vehicle telemetry, threats, network state and
// command events to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client       greptimeClient
	table        string
	threatTable  string
	stateTable   string
	commandTable string
	log          *slog.Logger
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// NewGreptimeDBWriter connects to GreptimeDB at host:port using database.
// Tables are created on first write.
func NewGreptimeDBWriter(host string, port int, database string) (*GreptimeDBWriter, error) {
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return newGreptimeDBWriter(client), nil
}

func newGreptimeDBWriter(client greptimeClient) *GreptimeDBWriter {
	return &GreptimeDBWriter{
		client:       client,
		table:        telemetry.TelemetryTableName,
		threatTable:  threat.ThreatTableName,
		stateTable:   envOr("GREPTIMEDB_STATE_TABLE", "v2x_network_state"),
		commandTable: envOr("GREPTIMEDB_COMMAND_TABLE", "v2x_commands"),
		log:          slog.Default(),
	}
}

func (w *GreptimeDBWriter) write(name string, tbl *table.Table, rows int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptime write failed", "table", name, "err", err)
		return err
	}
	w.log.Debug("greptime write", "table", name, "rows", rows)
	return nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.TelemetryRow) error {
	return w.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.table)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("cluster_id", types.STRING)
	tbl.AddTagColumn("vehicle_id", types.STRING)
	tbl.AddFieldColumn("lat", types.FLOAT64)
	tbl.AddFieldColumn("lng", types.FLOAT64)
	tbl.AddFieldColumn("speed_kmh", types.FLOAT64)
	tbl.AddFieldColumn("heading_deg", types.FLOAT64)
	tbl.AddFieldColumn("status", types.STRING)
	tbl.AddFieldColumn("threat_level", types.STRING)
	tbl.AddFieldColumn("connected_rsus", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, r := range rows {
		if err := tbl.AddRow(
			r.ClusterID,
			r.VehicleID,
			r.Lat,
			r.Lng,
			r.SpeedKmh,
			r.HeadingDeg,
			string(r.Status),
			string(r.ThreatLevel),
			int64(r.ConnectedRSUs),
			r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(w.table, tbl, len(rows))
}

// WriteThreat inserts a single threat.
func (w *GreptimeDBWriter) WriteThreat(t threat.Threat) error {
	return w.WriteThreats([]threat.Threat{t})
}

// WriteThreats inserts multiple threats.
func (w *GreptimeDBWriter) WriteThreats(ts []threat.Threat) error {
	if len(ts) == 0 {
		return nil
	}
	tbl, err := table.New(w.threatTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("threat_id", types.STRING)
	tbl.AddTagColumn("category", types.STRING)
	tbl.AddFieldColumn("severity", types.STRING)
	tbl.AddFieldColumn("source_id", types.STRING)
	tbl.AddFieldColumn("target_id", types.STRING)
	tbl.AddFieldColumn("description", types.STRING)
	tbl.AddFieldColumn("confidence", types.FLOAT64)
	tbl.AddFieldColumn("mitigated", types.BOOLEAN)
	tbl.AddFieldColumn("detected_by", types.STRING)
	tbl.AddFieldColumn("signal_strength", types.FLOAT64)
	tbl.AddFieldColumn("anomaly_score", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	for _, t := range ts {
		if err := tbl.AddRow(
			t.ID,
			string(t.Category),
			string(t.Severity),
			t.SourceID,
			t.TargetID,
			t.Description,
			t.Confidence,
			t.Mitigated,
			t.Evidence.DetectedBy,
			t.Evidence.SignalStrength,
			t.Evidence.AnomalyScore,
			t.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(w.threatTable, tbl, len(ts))
}

// WriteState inserts a network state row.
func (w *GreptimeDBWriter) WriteState(row telemetry.NetworkStateRow) error {
	tbl, err := table.New(w.stateTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("cluster_id", types.STRING)
	tbl.AddFieldColumn("tick", types.INT64)
	tbl.AddFieldColumn("running", types.BOOLEAN)
	tbl.AddFieldColumn("total_vehicles", types.INT64)
	tbl.AddFieldColumn("active_rsus", types.INT64)
	tbl.AddFieldColumn("threats_detected", types.INT64)
	tbl.AddFieldColumn("compromised_nodes", types.INT64)
	tbl.AddFieldColumn("network_health", types.INT64)
	tbl.AddFieldColumn("messages_sent", types.INT64)
	tbl.AddFieldColumn("messages_received", types.INT64)
	tbl.AddFieldColumn("average_latency_ms", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	if err := tbl.AddRow(
		row.ClusterID,
		int64(row.Tick),
		row.Running,
		int64(row.TotalVehicles),
		int64(row.ActiveRSUs),
		int64(row.ThreatsDetected),
		int64(row.CompromisedNodes),
		int64(row.NetworkHealth),
		int64(row.MessagesSent),
		int64(row.MessagesReceived),
		row.AverageLatencyMs,
		row.Timestamp,
	); err != nil {
		return err
	}
	return w.write(w.stateTable, tbl, 1)
}

// WriteCommand inserts a command audit row.
func (w *GreptimeDBWriter) WriteCommand(ev telemetry.CommandEventRow) error {
	tbl, err := table.New(w.commandTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("cluster_id", types.STRING)
	tbl.AddTagColumn("command", types.STRING)
	tbl.AddFieldColumn("target_id", types.STRING)
	tbl.AddFieldColumn("applied", types.BOOLEAN)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)

	if err := tbl.AddRow(ev.ClusterID, ev.Command, ev.TargetID, ev.Applied, ev.Timestamp); err != nil {
		return err
	}
	return w.write(w.commandTable, tbl, 1)
}
