package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-posture/internal/config"
	"github.com/teslashibe/go-posture/pkg/monitor"
)

func newWatchCmd() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live scores from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), url, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost"+config.DefaultAPIAddr+"/ws/score", "score websocket URL")
	return cmd
}

func runWatch(ctx context.Context, url string, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var snap monitor.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		fmt.Fprintln(out, formatSnapshot(snap))
	}
}

func formatSnapshot(s monitor.Snapshot) string {
	if !s.Detected {
		return fmt.Sprintf("%s  --.-  avg %5.1f  (no person)", s.Timestamp.Format("15:04:05"), s.Average)
	}
	line := fmt.Sprintf("%s  %5.1f  avg %5.1f  %s", s.Timestamp.Format("15:04:05"), s.Score, s.Average, s.Coaching)
	if s.Alert != nil {
		line += "  ⚠️  " + s.Alert.Message
	}
	return line
}
