package sim

import (
	"context"
	"time"

	"v2x-sim/internal/logging"
	"v2x-sim/internal/network"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// Run starts the simulation loop and stops when the context is done.
// Ticks are skipped while the simulator is paused.
func (s *Simulator) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	s.mu.Lock()
	s.log = log
	s.mu.Unlock()
	log.Info("starting simulator", "tick_interval", s.cfg.TickInterval, "vehicles", s.cfg.VehicleCount, "rsus", s.cfg.RSUCount)
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tickIfRunning(ctx)
		case <-ctx.Done():
			log.Info("stopping simulator")
			return
		}
	}
}

// Start runs the loop on its own goroutine until Stop is called or ctx ends.
func (s *Simulator) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.Run(ctx)
	}()
}

// Stop cancels a loop started with Start and waits for it to exit.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Simulator) tickIfRunning(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.tick(ctx)
}

// Tick advances the simulation by one step regardless of the run flag and
// returns the resulting snapshot.
func (s *Simulator) Tick(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick(ctx)
}

// tick runs movement, connectivity, threat generation and metrics, then hands
// the results to the writers. Callers hold mu.
func (s *Simulator) tick(ctx context.Context) Snapshot {
	log := logging.FromContext(ctx)
	now := s.now().UTC()
	dt := s.cfg.TickInterval.Seconds()

	for i := range s.vehicles {
		s.vehicles[i] = s.movement.Advance(s.vehicles[i], dt)
		s.vehicles[i].LastBeacon = now
	}
	s.vehicles, s.rsus = network.Resolve(s.vehicles, s.rsus, now, s.netOpts)

	var newThreats []threat.Threat
	if th, ok := s.generator.MaybeGenerate(s.vehicles, s.rsus); ok {
		s.history.Add(th)
		s.recordDetection(th)
		s.phaseThreats++
		newThreats = append(newThreats, th)
		log.Debug("threat generated", "id", th.ID, "category", th.Category, "severity", th.Severity, "source", th.SourceID)
	}

	s.tickCount++
	s.phaseTicks++
	s.lastTick = now
	if from, to, ok := s.advancePhase(); ok {
		log.Info("scenario phase changed", "from", from, "to", to, "threat_probability", s.generator.Probability)
	}

	metrics := s.aggregateLocked(s.rand)
	s.latencyMs = metrics.AverageLatencyMs
	snap := s.snapshotLocked(metrics)

	s.write(ctx, snap, newThreats)
	return snap
}

// recordDetection appends the threat id to the detecting RSU, keeping at most
// as many ids as the threat history holds.
func (s *Simulator) recordDetection(th threat.Threat) {
	for i := range s.rsus {
		r := &s.rsus[i]
		if r.ID != th.Evidence.DetectedBy {
			continue
		}
		r.ThreatDetections = append(r.ThreatDetections, th.ID)
		if over := len(r.ThreatDetections) - s.history.Cap(); over > 0 {
			r.ThreatDetections = append([]string(nil), r.ThreatDetections[over:]...)
		}
		return
	}
}

func (s *Simulator) write(ctx context.Context, snap Snapshot, newThreats []threat.Threat) {
	log := logging.FromContext(ctx)

	if s.writer != nil {
		batch := make([]telemetry.TelemetryRow, 0, len(snap.Vehicles))
		for _, v := range snap.Vehicles {
			batch = append(batch, telemetry.NewTelemetryRow(s.clusterID, v))
		}
		// Batch support if writer implements WriteBatch
		if bw, ok := s.writer.(batchWriter); ok {
			if err := bw.WriteBatch(batch); err != nil {
				log.Error("batch write failed", "err", err)
			}
		} else {
			for _, row := range batch {
				if err := s.writer.Write(row); err != nil {
					log.Error("write failed", "vehicle_id", row.VehicleID, "err", err)
				}
			}
		}
	}

	if len(newThreats) > 0 && s.threatWriter != nil {
		if bw, ok := s.threatWriter.(batchThreatWriter); ok {
			if err := bw.WriteThreats(newThreats); err != nil {
				log.Error("threat batch write failed", "err", err)
			}
		} else {
			for _, th := range newThreats {
				if err := s.threatWriter.WriteThreat(th); err != nil {
					log.Error("threat write failed", "threat_id", th.ID, "err", err)
				}
			}
		}
	}

	if sw, ok := s.writer.(StateWriter); ok {
		if err := sw.WriteState(snap.StateRow()); err != nil {
			log.Error("state write failed", "err", err)
		}
	}
	if sw, ok := s.writer.(SnapshotWriter); ok {
		if err := sw.WriteSnapshot(snap); err != nil {
			log.Error("snapshot write failed", "err", err)
		}
	}
}
