package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"v2x-sim/internal/admin"
	"v2x-sim/internal/config"
	"v2x-sim/internal/logging"
	"v2x-sim/internal/scenario"
	"v2x-sim/internal/sim"
)

const defaultClusterID = "v2x-01"

var (
	simPrintOnly  bool
	simJSON       bool
	simTUI        bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simSeed       int64
	simLogFile    string
	simAdminAddr  string
	simScenario   string
	simLogLevel   string
	simLogFormat  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the real-time V2X simulator",
	Long:  "simulate moves vehicles between roadside units, generates security threats and streams telemetry to STDOUT, GreptimeDB, Redis or a terminal console.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		if err := applyOverrides(cfg); err != nil {
			return err
		}

		var sc *scenario.Scenario
		if simScenario != "" {
			sc, err = scenario.Resolve(simScenario)
			if err != nil {
				return err
			}
			sc.Apply(cfg)
		}

		stdoutTTY := term.IsTerminal(int(os.Stdout.Fd()))
		if simTUI && !stdoutTTY {
			return fmt.Errorf("--tui requires a terminal")
		}

		var logOut io.Writer = os.Stderr
		if simTUI {
			logOut = io.Discard
		}
		logger, err := logging.NewWith(logging.Options{Level: simLogLevel, Format: simLogFormat, Output: logOut})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logger)

		clusterID := os.Getenv("CLUSTER_ID")
		if clusterID == "" {
			clusterID = defaultClusterID
		}

		ws, err := newWriters(ctx, cfg, writerOptions{
			ClusterID: clusterID,
			PrintOnly: simPrintOnly,
			Colorize:  stdoutTTY && !simJSON,
			TUI:       simTUI,
			LogFile:   simLogFile,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := ws.Close(); err != nil {
				logger.Error("closing writers failed", "err", err)
			}
		}()

		simulator := sim.NewSimulator(clusterID, cfg, ws.Writer, ws.Writer, nil, nil)
		if sc != nil {
			simulator.SetScenario(sc)
			logger.Info("scenario loaded", "name", sc.Name, "phases", len(sc.Phases))
		}

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator, ws.Hub, ws.Exporter)
			srv.Status = ws.Writer
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					logger.Error("admin server failed", "addr", simAdminAddr, "err", err)
				}
			}()
		}

		simulator.Run(ctx)
		logger.Info("V2X simulation stopped", "ticks", simulator.Snapshot().Tick)
		return nil
	},
}

// applyOverrides folds flags and env vars into cfg. TICK_INTERVAL wins over
// --tick.
func applyOverrides(cfg *config.SimulationConfig) error {
	if simTick > 0 {
		cfg.TickInterval = simTick
	}
	if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
		d, err := time.ParseDuration(envTick)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		cfg.TickInterval = d
	}
	if simSeed != 0 {
		cfg.Seed = simSeed
	}
	cfg.Normalize()
	return nil
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simJSON, "json", false, "Print JSON lines even when STDOUT is a terminal")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show the interactive terminal console")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Tick interval override (e.g. 500ms, 2s)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "Random seed override (0 keeps the configured seed)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export telemetry/threat/state logs (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin API listen address (empty disables)")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or path to a scenario YAML")
	simulateCmd.Flags().StringVar(&simLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	simulateCmd.Flags().StringVar(&simLogFormat, "log-format", "text", "Log format: text or json")
}
