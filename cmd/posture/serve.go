package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-posture/internal/config"
	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/api"
	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/mqtt"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/settings"
)

type serveOptions struct {
	addr   string
	broker string
	device string
	noMQTT bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Score live landmark frames from MQTT and serve the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "API listen address (default $API_ADDR or :8090)")
	cmd.Flags().StringVar(&opts.broker, "broker", "", "MQTT broker URL (default $MQTT_BROKER)")
	cmd.Flags().StringVar(&opts.device, "device", "", "device ID for MQTT topics (default $POSTURE_DEVICE_ID or hostname)")
	cmd.Flags().BoolVar(&opts.noMQTT, "no-mqtt", false, "serve the API only; frames arrive via POST /api/score")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	tr := config.TransportFromEnv()
	if opts.addr != "" {
		tr.APIAddr = opts.addr
	}
	if opts.broker != "" {
		tr.Broker = opts.broker
	}
	if opts.device != "" {
		tr.DeviceID = opts.device
	}

	mgr := settings.NewManager(appSettings)
	mon, err := monitor.NewFromSettings(appSettings)
	if err != nil {
		return err
	}
	mgr.OnChange(func(s settings.Settings) {
		if err := mon.Apply(s); err != nil {
			log.Error("apply settings", "error", err)
		}
	})

	srv := api.NewServer(tr.APIAddr, mon, mgr)
	mon.Subscribe(srv.Publish)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	if !opts.noMQTT {
		client, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   tr.Broker,
			ClientID: tr.ClientID,
			Username: tr.Username,
			Password: tr.Password,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		srv.SetTransport("mqtt", client.IsConnected)

		sub := mqtt.NewSubscriber(client.Native(), mqtt.FormatTopic(tr.LandmarkTopic, tr.DeviceID), tr.QueueSize)
		if err := sub.Subscribe(); err != nil {
			return err
		}
		src := pose.WithTimeout(sub.Source(), tr.FrameTimeout)
		defer src.Close()

		pub := mqtt.NewPublisher(client.Native(), mqtt.PublisherConfig{
			DeviceID:   tr.DeviceID,
			ScoreTopic: tr.ScoreTopic,
			AlertTopic: tr.AlertTopic,
			Retain:     tr.RetainScore,
		}, tr.QueueSize)
		mon.Subscribe(pub.Enqueue)
		go pub.Start(ctx)

		go func() { errCh <- mon.Run(ctx, src) }()
		fmt.Printf("🔌 Landmarks: %s on %s\n", mqtt.FormatTopic(tr.LandmarkTopic, tr.DeviceID), tr.Broker)
	}

	go func() { errCh <- srv.Start(ctx) }()
	fmt.Printf("🧍 Posture API: http://localhost%s/api/score\n", tr.APIAddr)
	fmt.Printf("📡 Live scores: ws://localhost%s/ws/score\n", tr.APIAddr)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}
