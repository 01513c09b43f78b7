package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-posture/internal/config"
	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/settings"
)

// Version is the application version.
const Version = "0.3.0"

var (
	settingsPath string
	logLevel     string

	// appSettings is loaded once before any subcommand runs.
	appSettings settings.Settings
)

var rootCmd = &cobra.Command{
	Use:           "posture",
	Short:         "Posture scoring from body pose landmarks",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
		if !cmd.Flags().Changed("log-level") {
			logLevel = config.Env("LOG_LEVEL", logLevel)
		}
		log.Init(logLevel)

		s, err := settings.Load(settingsPath)
		if err != nil {
			return err
		}
		appSettings = s
		return nil
	},
}

// Execute runs the root command with signal-aware cancellation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", settings.DefaultPath(), "settings JSON file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newServeCmd(),
		newScoreCmd(),
		newReplayCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)
}
