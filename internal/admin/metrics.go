package admin

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"v2x-sim/internal/sim"
	"v2x-sim/internal/telemetry"
	"v2x-sim/internal/threat"
)

const namespace = "v2x"

// Exporter mirrors simulator output as Prometheus metrics on its own
// registry.
type Exporter struct {
	reg         *prometheus.Registry
	tick        prometheus.Gauge
	running     prometheus.Gauge
	health      prometheus.Gauge
	vehicles    prometheus.Gauge
	activeRSUs  prometheus.Gauge
	compromised prometheus.Gauge
	threatsHeld *prometheus.GaugeVec
	messages    *prometheus.GaugeVec
	latency     prometheus.Gauge
	threats     *prometheus.CounterVec
	commands    *prometheus.CounterVec
}

// NewExporter registers every collector on a fresh registry.
func NewExporter() *Exporter {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	e := &Exporter{
		reg:         prometheus.NewRegistry(),
		tick:        gauge("tick", "Ticks since the last reset."),
		running:     gauge("running", "1 while the simulation clock runs."),
		health:      gauge("network_health", "Network health score from 0 to 100."),
		vehicles:    gauge("vehicles", "Vehicles in the population."),
		activeRSUs:  gauge("active_rsus", "Roadside units in the active state."),
		compromised: gauge("compromised_nodes", "Compromised vehicles plus compromised roadside units."),
		latency:     gauge("average_latency_ms", "Sampled average message latency."),
		threatsHeld: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "threats_held", Help: "Threats in the history by category.",
		}, []string{"category"}),
		messages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "messages_per_minute", Help: "Beacon messages per minute.",
		}, []string{"direction"}),
		threats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "threats_generated_total", Help: "Threats generated.",
		}, []string{"category", "severity"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "commands_total", Help: "Commands received.",
		}, []string{"command", "applied"}),
	}
	e.reg.MustRegister(
		e.tick, e.running, e.health, e.vehicles, e.activeRSUs, e.compromised,
		e.latency, e.threatsHeld, e.messages, e.threats, e.commands,
	)
	return e
}

// Registry exposes the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{})
}

// WriteSnapshot implements sim.SnapshotWriter.
func (e *Exporter) WriteSnapshot(s sim.Snapshot) error {
	m := s.Metrics
	e.tick.Set(float64(s.Tick))
	if s.Running {
		e.running.Set(1)
	} else {
		e.running.Set(0)
	}
	e.health.Set(float64(m.NetworkHealth))
	e.vehicles.Set(float64(m.TotalVehicles))
	e.activeRSUs.Set(float64(m.ActiveRSUs))
	e.compromised.Set(float64(m.CompromisedNodes))
	e.latency.Set(m.AverageLatencyMs)
	e.messages.WithLabelValues("sent").Set(float64(m.MessagesSent))
	e.messages.WithLabelValues("received").Set(float64(m.MessagesReceived))
	for _, c := range threat.Categories {
		e.threatsHeld.WithLabelValues(string(c)).Set(float64(m.ThreatsByType[c]))
	}
	return nil
}

// WriteThreat implements sim.ThreatWriter.
func (e *Exporter) WriteThreat(t threat.Threat) error {
	e.threats.WithLabelValues(string(t.Category), string(t.Severity)).Inc()
	return nil
}

// WriteCommand implements sim.CommandWriter.
func (e *Exporter) WriteCommand(ev telemetry.CommandEventRow) error {
	e.commands.WithLabelValues(ev.Command, strconv.FormatBool(ev.Applied)).Inc()
	return nil
}
