package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"v2x-sim/internal/admin"
	"v2x-sim/internal/config"
	"v2x-sim/internal/logging"
	"v2x-sim/internal/sim"
)

const (
	defaultGreptimePort     = 4001
	defaultGreptimeDatabase = "public"
)

// writerOptions selects the sinks built by newWriters.
type writerOptions struct {
	ClusterID string
	PrintOnly bool
	Colorize  bool
	TUI       bool
	LogFile   string
}

// sink is a writer handling both telemetry rows and threats.
type sink interface {
	sim.TelemetryWriter
	sim.ThreatWriter
}

// writerSet bundles the fan-out writer with the sinks the CLI needs to reach
// directly.
type writerSet struct {
	Writer   *sim.MultiWriter
	Base     sink
	Hub      *admin.Hub
	Exporter *admin.Exporter
	closers  []func() error
}

// Close releases every sink in reverse order.
func (ws *writerSet) Close() error {
	var errs []error
	for i := len(ws.closers) - 1; i >= 0; i-- {
		if err := ws.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fail releases the sinks opened so far and joins any close error to err.
func (ws *writerSet) fail(err error) error {
	return errors.Join(err, ws.Close())
}

// newWriters sets up writers based on opts and env vars. The base sink is
// the TUI, STDOUT or GreptimeDB; Redis, a JSONL log and the admin feed are
// layered on top.
func newWriters(ctx context.Context, cfg *config.SimulationConfig, opts writerOptions) (*writerSet, error) {
	log := logging.FromContext(ctx)
	ws := &writerSet{Hub: admin.NewHub(), Exporter: admin.NewExporter()}

	base, err := baseWriter(cfg, opts, ws)
	if err != nil {
		return nil, ws.fail(err)
	}
	ws.Base = base
	tws := []sim.TelemetryWriter{base}
	ths := []sim.ThreatWriter{base, ws.Hub, ws.Exporter}

	if url := os.Getenv("REDIS_URL"); url != "" {
		rw, err := sim.NewRedisWriter(ctx, url, opts.ClusterID)
		if err != nil {
			return nil, ws.fail(err)
		}
		log.Info("publishing live state to redis", "url", url)
		ws.closers = append(ws.closers, rw.Close)
		tws = append(tws, rw)
		ths = append(ths, rw)
	}

	if opts.LogFile != "" {
		fw, err := sim.NewFileWriter(sim.FilePaths{
			Telemetry: opts.LogFile,
			Threats:   opts.LogFile + ".threats",
			State:     opts.LogFile + ".state",
			Commands:  opts.LogFile + ".commands",
		})
		if err != nil {
			return nil, ws.fail(err)
		}
		ws.closers = append(ws.closers, fw.Close)
		tws = append(tws, fw)
		ths = append(ths, fw)
	}

	ws.Writer = sim.NewMultiWriter(tws, ths)
	return ws, nil
}

// baseWriter chooses the primary sink.
func baseWriter(cfg *config.SimulationConfig, opts writerOptions, ws *writerSet) (sink, error) {
	if opts.TUI {
		tw := sim.NewTUIWriter(cfg)
		ws.closers = append(ws.closers, tw.Close)
		return tw, nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if opts.PrintOnly || endpoint == "" {
		return sim.NewStdoutWriter(cfg, opts.Colorize), nil
	}
	port := defaultGreptimePort
	if p := os.Getenv("GREPTIMEDB_PORT"); p != "" {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid GREPTIMEDB_PORT %q: %w", p, err)
		}
		port = v
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = defaultGreptimeDatabase
	}
	return sim.NewGreptimeDBWriter(endpoint, port, database)
}
