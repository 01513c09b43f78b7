package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-posture/internal/config"
	"github.com/teslashibe/go-posture/internal/httpc"
	"github.com/teslashibe/go-posture/pkg/monitor"
)

func newStatusCmd() *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the latest score and session totals of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := httpc.New(server)

			var snap monitor.Snapshot
			if err := c.GetJSON(cmd.Context(), "/api/score", &snap); err != nil {
				return err
			}
			var stats monitor.Stats
			if err := c.GetJSON(cmd.Context(), "/api/stats", &stats); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session:  %s\n", stats.SessionID)
			fmt.Fprintf(out, "Latest:   %s\n", formatSnapshot(snap))
			fmt.Fprintf(out, "Frames:   %d (%d detected, %d failed)\n", stats.Frames, stats.Detected, stats.Failed)
			fmt.Fprintf(out, "Average:  %.1f (session mean %.1f)\n", stats.Average, stats.MeanScore)
			fmt.Fprintf(out, "Alerts:   %d\n", stats.Alerts)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost"+config.DefaultAPIAddr, "API base URL")
	return cmd
}
