package sim

import (
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// MultiWriter fan-outs telemetry, threat, state and snapshot output to
// multiple writers.
type MultiWriter struct {
	telewriters   []TelemetryWriter
	threatwriters []ThreatWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(tws []TelemetryWriter, ths []ThreatWriter) *MultiWriter {
	return &MultiWriter{telewriters: tws, threatwriters: ths}
}

// each calls fn once for every distinct writer in either list.
func (mw *MultiWriter) each(fn func(any)) {
	seen := make(map[any]bool)
	for _, w := range mw.telewriters {
		if !seen[w] {
			seen[w] = true
			fn(w)
		}
	}
	for _, w := range mw.threatwriters {
		if !seen[w] {
			seen[w] = true
			fn(w)
		}
	}
}

// Write sends a telemetry row to all writers.
func (mw *MultiWriter) Write(row telemetry.TelemetryRow) error {
	for _, w := range mw.telewriters {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple telemetry rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	for _, w := range mw.telewriters {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteThreat sends a threat to all threat writers.
func (mw *MultiWriter) WriteThreat(t threat.Threat) error {
	for _, w := range mw.threatwriters {
		if err := w.WriteThreat(t); err != nil {
			return err
		}
	}
	return nil
}

// WriteThreats sends multiple threats to all threat writers, using batch if supported.
func (mw *MultiWriter) WriteThreats(rows []threat.Threat) error {
	for _, w := range mw.threatwriters {
		if bw, ok := w.(batchThreatWriter); ok {
			if err := bw.WriteThreats(rows); err != nil {
				return err
			}
			continue
		}
		for _, r := range rows {
			if err := w.WriteThreat(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteState forwards a network state row to writers that accept it.
func (mw *MultiWriter) WriteState(row telemetry.NetworkStateRow) error {
	var firstErr error
	mw.each(func(w any) {
		if sw, ok := w.(StateWriter); ok {
			if err := sw.WriteState(row); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// WriteSnapshot forwards a snapshot to writers that accept it.
func (mw *MultiWriter) WriteSnapshot(s Snapshot) error {
	var firstErr error
	mw.each(func(w any) {
		if sw, ok := w.(SnapshotWriter); ok {
			if err := sw.WriteSnapshot(s); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// WriteCommand forwards a command event to writers that accept it.
func (mw *MultiWriter) WriteCommand(ev telemetry.CommandEventRow) error {
	var firstErr error
	mw.each(func(w any) {
		if cw, ok := w.(CommandWriter); ok {
			if err := cw.WriteCommand(ev); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

// SetController forwards the command surface to interactive writers.
func (mw *MultiWriter) SetController(c Controller) {
	mw.each(func(w any) {
		if cs, ok := w.(ControllerSetter); ok {
			cs.SetController(c)
		}
	})
}

// SetAdminStatus forwards admin API status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	mw.each(func(w any) {
		if as, ok := w.(AdminStatusWriter); ok {
			as.SetAdminStatus(listening)
		}
	})
}
