// Onvif-probe discovers ONVIF cameras on the local network.
//
// It sends a WS-Discovery Probe for network video transmitters to the
// 239.255.255.250:3702 multicast group and lists every camera that answers,
// together with the connection parameters a device client needs.
//
// Usage:
//
//	onvif-probe [command] [flags]
//
// Running without arguments runs a single probe.
// See 'onvif-probe --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/onvifprobe/internal/config"
	"github.com/muurk/onvifprobe/internal/logging"
	"github.com/muurk/onvifprobe/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	logLevel   string
	configPath string
)

// cfg is loaded before any command runs
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "onvif-probe",
	Short: "ONVIF camera discovery over WS-Discovery",
	Long: `Discover ONVIF cameras on the local network.

onvif-probe multicasts a WS-Discovery Probe for network video transmitters
and lists every camera that answers before the timeout expires. Each result
carries the hostname, port, service path and URN needed to talk to the camera.

If no command is specified, a single probe runs with the configured defaults.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}

		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the platform config directory)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("onvif-probe %s (commit: %s, %s)\n", version.Version, version.Commit, version.Platform())
	},
}
