package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/pose"
)

type replayOptions struct {
	snapshots bool
	quiet     bool
}

func newReplayCmd() *cobra.Command {
	var opts replayOptions
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Run a JSON-lines landmark recording through the monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := runReplay(cmd, args[0], opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
	cmd.Flags().BoolVar(&opts.snapshots, "snapshots", false, "print every snapshot as a JSON line before the summary")
	cmd.Flags().BoolVar(&opts.quiet, "quiet", false, "hide the progress bar")
	return cmd
}

func runReplay(cmd *cobra.Command, path string, opts replayOptions) (monitor.Stats, error) {
	total, err := pose.CountFrames(path)
	if err != nil {
		return monitor.Stats{}, fmt.Errorf("count frames: %w", err)
	}

	src, err := pose.OpenFile(path)
	if err != nil {
		return monitor.Stats{}, err
	}
	defer src.Close()

	mon, err := monitor.NewFromSettings(appSettings)
	if err != nil {
		return monitor.Stats{}, err
	}
	mon.SetUseFrameTime(true)

	var barOut io.Writer = os.Stderr
	if opts.quiet {
		barOut = io.Discard
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("🧍 Replaying"),
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionShowCount(),
	)
	mon.Subscribe(func(monitor.Snapshot) { _ = bar.Add(1) })

	if opts.snapshots {
		enc := json.NewEncoder(cmd.OutOrStdout())
		mon.Subscribe(func(s monitor.Snapshot) { _ = enc.Encode(s) })
	}

	if err := mon.Run(cmd.Context(), src); err != nil {
		return monitor.Stats{}, err
	}
	_ = bar.Finish()
	fmt.Fprintln(barOut)
	return mon.Stats(), nil
}
