package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"v2x-sim/internal/config"
	"v2x-sim/internal/sim"
)

var (
	replayInput     string
	replayThreats   string
	replaySpeed     float64
	replayPrintOnly bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a telemetry log file",
	Long:  "replay feeds vehicle telemetry and threats recorded with --log-file back into GreptimeDB, Redis or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		clusterID := os.Getenv("CLUSTER_ID")
		if clusterID == "" {
			clusterID = defaultClusterID
		}
		ws, err := newWriters(ctx, config.Defaults(), writerOptions{
			ClusterID: clusterID,
			PrintOnly: replayPrintOnly,
			Colorize:  term.IsTerminal(int(os.Stdout.Fd())),
		})
		if err != nil {
			return err
		}
		defer ws.Close()

		if err := sim.ReplayLogFile(ctx, replayInput, ws.Writer, replaySpeed); err != nil {
			return fmt.Errorf("replay telemetry: %w", err)
		}
		if replayThreats != "" {
			if err := sim.ReplayThreatLogFile(ctx, replayThreats, ws.Writer, replaySpeed); err != nil {
				return fmt.Errorf("replay threats: %w", err)
			}
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().StringVar(&replayThreats, "threats", "", "Optional path to a threat log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
