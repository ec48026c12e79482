// Simulator orchestrating vehicles, roadside units and threat ticks
package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"v2x-sim/internal/config"
	"v2x-sim/internal/network"
	"v2x-sim/internal/scenario"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

// TelemetryWriter is an interface to support different output writers.
type TelemetryWriter interface {
	Write(telemetry.TelemetryRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.TelemetryRow) error
}

// Snapshot is an immutable copy of the simulation after a tick.
type Snapshot struct {
	ClusterID string              `json:"cluster_id"`
	Tick      uint64              `json:"tick"`
	Running   bool                `json:"running"`
	Timestamp time.Time           `json:"ts"`
	Vehicles  []telemetry.Vehicle `json:"vehicles"`
	RSUs      []telemetry.RSU     `json:"rsus"`
	// Threats are ordered newest first.
	Threats []threat.Threat `json:"threats"`
	Metrics network.Metrics `json:"metrics"`
	Health  string          `json:"health"`
	Phase   string          `json:"phase,omitempty"`
}

// StateRow flattens the snapshot metrics into a network state row.
func (s Snapshot) StateRow() telemetry.NetworkStateRow {
	return telemetry.NetworkStateRow{
		ClusterID:        s.ClusterID,
		Tick:             s.Tick,
		Running:          s.Running,
		TotalVehicles:    s.Metrics.TotalVehicles,
		ActiveRSUs:       s.Metrics.ActiveRSUs,
		ThreatsDetected:  s.Metrics.ThreatsDetected,
		CompromisedNodes: s.Metrics.CompromisedNodes,
		NetworkHealth:    s.Metrics.NetworkHealth,
		MessagesSent:     s.Metrics.MessagesSent,
		MessagesReceived: s.Metrics.MessagesReceived,
		AverageLatencyMs: s.Metrics.AverageLatencyMs,
		Timestamp:        s.Timestamp,
	}
}

// maxCommandLog bounds the in-memory command audit log.
const maxCommandLog = 500

// Simulator owns the vehicle, RSU and threat collections and drives ticks.
type Simulator struct {
	clusterID    string
	cfg          *config.SimulationConfig
	writer       TelemetryWriter
	threatWriter ThreatWriter

	factory   *telemetry.Factory
	movement  *telemetry.MovementModel
	generator *threat.Generator
	history   *threat.History
	netOpts   network.Options

	vehicles  []telemetry.Vehicle
	rsus      []telemetry.RSU
	running   bool
	tickCount uint64
	lastTick  time.Time
	latencyMs float64

	commands []telemetry.CommandEventRow

	scenario     *scenario.Scenario
	phase        string
	phaseTicks   int
	phaseThreats int

	rand *rand.Rand
	now  func() time.Time
	log  *slog.Logger
	mu   sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulator builds the initial population from cfg. A nil cfg uses the
// defaults, a nil r is seeded from cfg.Seed (or the clock when zero) and a nil
// now falls back to time.Now. The simulator starts in the running state.
func NewSimulator(clusterID string, cfg *config.SimulationConfig, writer TelemetryWriter, threatWriter ThreatWriter, r *rand.Rand, now func() time.Time) *Simulator {
	if cfg == nil {
		cfg = config.Defaults()
	}
	cfg.Normalize()
	if r == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		r = rand.New(rand.NewSource(seed))
	}
	if now == nil {
		now = time.Now
	}
	s := &Simulator{
		clusterID:    clusterID,
		cfg:          cfg,
		writer:       writer,
		threatWriter: threatWriter,
		factory:      telemetry.NewFactory(cfg.Bounds, cfg.SuspiciousProbability, cfg.CompromisedRSUProbability, r),
		movement:     telemetry.NewMovementModel(cfg.Bounds, cfg.MaxSpeedKmh, cfg.StatusChangeProbability, r),
		generator:    threat.NewGenerator(cfg.ThreatProbability, r, now),
		history:      threat.NewHistory(cfg.ThreatHistoryCap),
		netOpts:      network.Options{MutualRange: cfg.MutualRange},
		running:      true,
		rand:         r,
		now:          now,
		log:          slog.Default(),
	}
	s.populate()
	if cs, ok := writer.(ControllerSetter); ok {
		cs.SetController(s)
	}
	return s
}

// populate replaces all state with a fresh population. Callers hold mu.
func (s *Simulator) populate() {
	s.vehicles = s.factory.NewVehicles(s.cfg.VehicleCount)
	s.rsus = s.factory.NewRSUs(s.cfg.RSUCount)
	s.history.Reset()
	s.tickCount = 0
	s.lastTick = s.now().UTC()
	s.latencyMs = network.Aggregate(nil, nil, nil, nil).AverageLatencyMs
	s.vehicles, s.rsus = network.Resolve(s.vehicles, s.rsus, s.lastTick, s.netOpts)
	s.enterFirstPhase()
}

// SetScenario attaches a scenario whose phases steer the threat rate.
// Population overrides are applied on the next Reset.
func (s *Simulator) SetScenario(sc *scenario.Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenario = sc
	if sc != nil {
		sc.Apply(s.cfg)
		s.cfg.Normalize()
	}
	s.enterFirstPhase()
}

func (s *Simulator) enterFirstPhase() {
	s.phase = ""
	s.phaseTicks, s.phaseThreats = 0, 0
	s.generator.Probability = s.cfg.ThreatProbability
	if s.scenario == nil || len(s.scenario.Phases) == 0 {
		return
	}
	s.enterPhase(s.scenario.Phases[0])
}

func (s *Simulator) enterPhase(p scenario.Phase) {
	s.phase = p.Name
	s.phaseTicks, s.phaseThreats = 0, 0
	if p.ThreatProbability != nil {
		s.generator.Probability = *p.ThreatProbability
	}
}

// advancePhase follows at most one scenario trigger per tick.
func (s *Simulator) advancePhase() (from, to string, ok bool) {
	if s.scenario == nil || s.phase == "" {
		return "", "", false
	}
	for _, ev := range []scenario.Event{
		{Type: scenario.EventTicksElapsed, Value: s.phaseTicks},
		{Type: scenario.EventThreatsDetected, Value: s.phaseThreats},
	} {
		next, found := s.scenario.NextPhase(s.phase, ev)
		if !found {
			continue
		}
		p, exists := s.scenario.Phase(next)
		if !exists {
			return "", "", false
		}
		from = s.phase
		s.enterPhase(p)
		return from, next, true
	}
	return "", "", false
}

// ToggleRun flips the run/pause flag and returns the new state.
func (s *Simulator) ToggleRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = !s.running
	s.logCommand(telemetry.CommandToggleRun, "", true)
	return s.running
}

// Running reports whether the scheduler is advancing the simulation.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reset discards all state and regenerates the population. The run flag is
// kept unless the configuration asks for the clock to resume.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.populate()
	if s.cfg.ResetResumes {
		s.running = true
	}
	s.logCommand(telemetry.CommandReset, "", true)
}

// DismissThreat removes a threat by id. Unknown ids are a no-op.
func (s *Simulator) DismissThreat(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.history.Dismiss(id)
	s.logCommand(telemetry.CommandDismiss, id, ok)
	return ok
}

// MitigateThreat marks a threat as mitigated. Unknown or already mitigated
// threats are left untouched.
func (s *Simulator) MitigateThreat(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.history.Mitigate(id)
	s.logCommand(telemetry.CommandMitigate, id, ok)
	return ok
}

// RemediateVehicle restores a vehicle to normal status and low threat level.
func (s *Simulator) RemediateVehicle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := false
	for i := range s.vehicles {
		v := &s.vehicles[i]
		if v.ID != id {
			continue
		}
		if v.Status != telemetry.VehicleNormal || v.ThreatLevel != telemetry.ThreatLevelLow {
			v.Status = telemetry.VehicleNormal
			v.ThreatLevel = telemetry.ThreatLevelLow
			ok = true
		}
		break
	}
	s.logCommand(telemetry.CommandRemediate, id, ok)
	return ok
}

// Snapshot returns a deep copy of the current state with freshly derived metrics.
func (s *Simulator) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.aggregateLocked(nil))
}

func (s *Simulator) aggregateLocked(r *rand.Rand) network.Metrics {
	m := network.Aggregate(s.vehicles, s.rsus, s.history.List(), r)
	if r == nil {
		m.AverageLatencyMs = s.latencyMs
	}
	return m
}

func (s *Simulator) snapshotLocked(m network.Metrics) Snapshot {
	return Snapshot{
		ClusterID: s.clusterID,
		Tick:      s.tickCount,
		Running:   s.running,
		Timestamp: s.lastTick,
		Vehicles:  telemetry.CloneVehicles(s.vehicles),
		RSUs:      telemetry.CloneRSUs(s.rsus),
		Threats:   s.history.List(),
		Metrics:   m,
		Health:    network.HealthBand(m.NetworkHealth),
		Phase:     s.phase,
	}
}

// GetConfig returns the simulation configuration.
func (s *Simulator) GetConfig() *config.SimulationConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// ClusterID returns the cluster identifier stamped on every row.
func (s *Simulator) ClusterID() string {
	return s.clusterID
}
