package sim

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// ReplayLog replays JSONL telemetry rows from r to writer. Rows sharing a
// timestamp form one tick and are sent together, as a batch when the writer
// supports it. A speed >0 accelerates playback; if speed <= 0, no artificial
// delay is inserted.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) error {
	return replay(ctx, r, speed,
		func(row telemetry.TelemetryRow) time.Time { return row.Timestamp },
		func(rows []telemetry.TelemetryRow) error {
			if bw, ok := writer.(batchWriter); ok {
				return bw.WriteBatch(rows)
			}
			for _, row := range rows {
				if err := writer.Write(row); err != nil {
					return err
				}
			}
			return nil
		})
}

// ReplayThreatLog replays JSONL threats from r to writer.
func ReplayThreatLog(ctx context.Context, r io.Reader, writer ThreatWriter, speed float64) error {
	return replay(ctx, r, speed,
		func(t threat.Threat) time.Time { return t.Timestamp },
		func(ts []threat.Threat) error {
			for _, t := range ts {
				if err := writer.WriteThreat(t); err != nil {
					return err
				}
			}
			return nil
		})
}

func replay[T any](ctx context.Context, r io.Reader, speed float64, stamp func(T) time.Time, emit func([]T) error) error {
	dec := json.NewDecoder(r)
	var (
		group []T
		prev  time.Time
	)
	flush := func() error {
		if len(group) == 0 {
			return nil
		}
		err := emit(group)
		group = nil
		return err
	}
	for {
		var v T
		if err := dec.Decode(&v); err != nil {
			if err == io.EOF {
				return flush()
			}
			return err
		}
		ts := stamp(v)
		if len(group) > 0 && !ts.Equal(prev) {
			if err := flush(); err != nil {
				return err
			}
			if err := pause(ctx, ts.Sub(prev), speed); err != nil {
				return err
			}
		}
		group = append(group, v)
		prev = ts
	}
}

func pause(ctx context.Context, diff time.Duration, speed float64) error {
	if speed <= 0 || diff <= 0 {
		return ctx.Err()
	}
	if speed != 1 {
		diff = time.Duration(float64(diff) / speed)
	}
	t := time.NewTimer(diff)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReplayLogFile opens a file and replays its telemetry rows.
func ReplayLogFile(ctx context.Context, path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}

// ReplayThreatLogFile opens a file and replays its threats.
func ReplayThreatLogFile(ctx context.Context, path string, writer ThreatWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayThreatLog(ctx, f, writer, speed)
}
