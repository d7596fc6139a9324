package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/onvifprobe/internal/config"
	"github.com/muurk/onvifprobe/internal/discovery"
	"github.com/muurk/onvifprobe/internal/logging"
	"github.com/muurk/onvifprobe/internal/protocol"
	"github.com/muurk/onvifprobe/internal/responder"
	"github.com/muurk/onvifprobe/internal/ui"
)

// Probe command flags
var (
	probeTimeout time.Duration
	noResolve    bool
	messageID    string
	ifaceName    string
	targetAddr   string
	outputFormat string
	probeTypes   []string
	probeScopes  []string
	multicastTTL int
)

func init() {
	addProbeFlags(rootCmd)
	addProbeFlags(probeCmd)
	addProbeFlags(watchCmd)

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(configCmd)
}

func addProbeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.DurationVar(&probeTimeout, "timeout", discovery.DefaultTimeout, "How long to collect replies")
	f.BoolVar(&noResolve, "no-resolve", false, "Report raw probe matches instead of connection handles")
	f.StringVar(&messageID, "message-id", "", "Probe message id (random UUID when empty)")
	f.StringVar(&ifaceName, "interface", "", "Network interface to send the multicast probe from")
	f.StringVar(&targetAddr, "target", "", "Send the probe to host:port instead of "+protocol.MulticastAddress)
	f.StringVar(&outputFormat, "format", "", "Output format (detailed, compact, json)")
	f.StringSliceVar(&probeTypes, "type", nil, "Device types to probe for (default "+protocol.TypeNetworkVideoTransmitter+")")
	f.StringSliceVar(&probeScopes, "scope", nil, "Only devices advertising these scopes answer")
	f.IntVar(&multicastTTL, "ttl", discovery.DefaultMulticastTTL, "Multicast TTL (hops)")
}

// probeOptions merges config defaults with the flags the user set
func probeOptions(cmd *cobra.Command) []discovery.Option {
	opts := cfg.ProbeOptions()
	flags := cmd.Flags()

	if flags.Changed("timeout") {
		opts = append(opts, discovery.WithTimeout(probeTimeout))
	}
	if flags.Changed("no-resolve") {
		opts = append(opts, discovery.WithResolve(!noResolve))
	}
	if messageID != "" {
		opts = append(opts, discovery.WithMessageID(messageID))
	}
	if ifaceName != "" {
		opts = append(opts, discovery.WithInterface(ifaceName))
	}
	if targetAddr != "" {
		opts = append(opts, discovery.WithTarget(targetAddr))
	}
	if flags.Changed("type") {
		opts = append(opts, discovery.WithTypes(probeTypes...))
	}
	if len(probeScopes) > 0 {
		opts = append(opts, discovery.WithScopes(probeScopes...))
	}
	if flags.Changed("ttl") {
		opts = append(opts, discovery.WithMulticastTTL(multicastTTL))
	}
	return opts
}

func effectiveTarget() string {
	if targetAddr != "" {
		return targetAddr
	}
	if cfg.Probe != nil && cfg.Probe.MulticastAddress != "" {
		return cfg.Probe.MulticastAddress
	}
	return protocol.MulticastAddress
}

func effectiveTimeout(cmd *cobra.Command) time.Duration {
	if cmd.Flags().Changed("timeout") || cfg.Probe == nil || cfg.Probe.TimeoutMS <= 0 {
		return probeTimeout
	}
	return cfg.Probe.Timeout()
}

func resolvedFormat() string {
	if outputFormat != "" {
		return outputFormat
	}
	if cfg.Output != nil && cfg.Output.Format != "" {
		return cfg.Output.Format
	}
	return config.FormatDetailed
}

// probeCmd runs one discovery session
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Probe for ONVIF cameras once",
	Long: `Send one WS-Discovery Probe and list the cameras that answer.

Cameras are printed as they reply. When the timeout expires a summary is
printed; replies that were not valid probe matches are listed as warnings
and do not stop the probe.`,
	Example: `  # Probe with the configured defaults (5 seconds)
  onvif-probe probe

  # Quick 1 second probe, one line per camera
  onvif-probe probe --timeout 1s --format compact

  # Raw probe matches as JSON
  onvif-probe probe --no-resolve --format json

  # Probe from a specific interface
  onvif-probe probe --interface eth1

  # Probe a simulator on this host
  onvif-probe probe --target 127.0.0.1:3702`,
	RunE: runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	format := resolvedFormat()
	switch format {
	case config.FormatDetailed, config.FormatCompact, config.FormatJSON:
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	printer := ui.NewPrinter(os.Stdout, format)
	bus := discovery.NewBus()
	bus.OnDevice(printer.PrintDevice)
	bus.OnError(printer.PrintErrorEvent)

	type outcome struct {
		devices []*discovery.Device
		err     error
	}
	done := make(chan outcome, 1)

	// Fix the message id up front so the header can show it before replies arrive
	id := messageID
	if id == "" {
		id = uuid.NewString()
	}
	printer.PrintHeader("ONVIF Discovery", cmd.CommandPath(),
		ui.Param{Key: "Message ID", Value: protocol.NewProbeRequest(id).MessageURI()},
		ui.Param{Key: "Target", Value: effectiveTarget()},
		ui.Param{Key: "Timeout", Value: effectiveTimeout(cmd).String()},
	)

	opts := append(probeOptions(cmd), discovery.WithMessageID(id), discovery.WithBus(bus))
	begin := time.Now()
	session := discovery.Probe(cmd.Context(), func(devices []*discovery.Device, err error) {
		done <- outcome{devices, err}
	}, opts...)

	result := <-done
	if err := printer.PrintResult(session.MessageID(), result.devices, result.err, time.Since(begin)); err != nil {
		return err
	}

	var pe *discovery.ProbeError
	if errors.As(result.err, &pe) && pe.IsFatal() {
		return result.err
	}
	return nil
}

// watchCmd runs discovery in a live terminal view
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of cameras as they answer",
	Long: `Run discovery in an interactive terminal view.

Cameras appear as they reply. Press r to probe again and q to quit.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("watch needs an interactive terminal; use 'onvif-probe probe' instead")
	}

	ctx := cmd.Context()
	bus := discovery.NewBus()
	opts := append(probeOptions(cmd), discovery.WithBus(bus))

	model := ui.NewWatchModel(func() *discovery.Session {
		return discovery.Start(ctx, opts...)
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	bus.OnDevice(func(d *discovery.Device) { p.Send(ui.DeviceMsg{Device: d}) })
	bus.OnError(func(ev discovery.ErrorEvent) { p.Send(ui.ErrorMsg{Event: ev}) })

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("watch view failed: %w", err)
	}
	return nil
}

// Simulate command flags
var (
	simFile   string
	simListen string
	simRepeat int
	simName   string
	simXAddr  string
)

// simulateCmd answers probes on behalf of fake cameras
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Answer probes as one or more simulated cameras",
	Long: `Run a WS-Discovery responder that answers probes on behalf of
simulated cameras, for testing discovery without hardware.

Cameras come from a YAML file (--devices) or from --name and --xaddr for a
single camera. Scripted raw replies keyed by probe message id can be given
in the file to reproduce misbehaving responders.`,
	Example: `  # One camera on the multicast group
  onvif-probe simulate --name Lobby --xaddr http://192.168.1.90/onvif/device_service

  # Cameras from a file, on loopback, answering every probe twice
  onvif-probe simulate --devices cams.yaml --listen 127.0.0.1:3702 --repeat 2`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simFile, "devices", "", "YAML file describing the simulated cameras")
	simulateCmd.Flags().StringVar(&simListen, "listen", "", "Listen address (default "+protocol.MulticastAddress+")")
	simulateCmd.Flags().IntVar(&simRepeat, "repeat", 0, "Send every answer this many times")
	simulateCmd.Flags().StringVar(&simName, "name", "Simulated Camera", "Camera name (single camera mode)")
	simulateCmd.Flags().StringVar(&simXAddr, "xaddr", "", "Camera service address (single camera mode)")
	simulateCmd.Flags().StringVar(&ifaceName, "interface", "", "Interface to join the multicast group on")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sim := &config.Simulation{}
	switch {
	case simFile != "":
		loaded, err := config.LoadSimulation(simFile)
		if err != nil {
			return err
		}
		sim = loaded
	case simXAddr != "":
		sim.Devices = []config.SimulatedDevice{{Name: simName, XAddrs: []string{simXAddr}}}
	default:
		return fmt.Errorf("either --devices or --xaddr is required")
	}

	if simListen != "" {
		sim.Listen = simListen
	}
	if simRepeat > 0 {
		sim.Repeat = simRepeat
	}

	rcfg, err := sim.ResponderConfig()
	if err != nil {
		return err
	}
	rcfg.Interface = ifaceName

	r := responder.New(rcfg)
	if err := r.Start(cmd.Context()); err != nil {
		return err
	}
	defer r.Close()

	fmt.Printf("Simulating %d camera(s) on %s (Ctrl+C to stop)\n", len(rcfg.Devices), r.Addr())
	for _, d := range rcfg.Devices {
		fmt.Printf("  %s  %s\n", d.EndpointAddress, d.PrimaryXAddr())
	}

	<-cmd.Context().Done()
	logging.Info("Simulator stopped", zap.Int64("probes_answered", r.ProbeCount()))
	fmt.Printf("Answered %d probe(s)\n", r.ProbeCount())
	return nil
}

var configForce bool

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the onvif-probe config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}

		if err := config.NewConfig().SaveTo(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		if cfg.Path() != "" {
			fmt.Printf("# %s\n", cfg.Path())
		}
		fmt.Print(string(data))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
