package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score FILE",
		Short: "Score a single landmark frame (JSON, - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			out, err := scoreFrame(data)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}

type scoreOutput struct {
	Detected bool             `json:"detected"`
	Metrics  *posture.Metrics `json:"metrics,omitempty"`
	Coaching string           `json:"coaching,omitempty"`
}

func scoreFrame(data []byte) (scoreOutput, error) {
	frame, err := pose.Decode(data)
	if err != nil {
		return scoreOutput{}, err
	}
	if !frame.Detected() {
		return scoreOutput{}, nil
	}

	engine, err := posture.NewEngine(appSettings.PostureConfig())
	if err != nil {
		return scoreOutput{}, err
	}
	m := engine.Compute(frame.Landmarks)
	return scoreOutput{
		Detected: true,
		Metrics:  &m,
		Coaching: posture.Coach(m.PostureScore, &m, appSettings.Profile.BaselinePostureScore),
	}, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return data, nil
}
