package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/muurk/onvifprobe/internal/discovery"
	"github.com/muurk/onvifprobe/internal/protocol"
	"github.com/muurk/onvifprobe/internal/responder"
)

// CurrentVersion is the only config file version understood
const CurrentVersion = 1

// Output formats accepted by OutputPrefs.Format
const (
	FormatDetailed = "detailed"
	FormatCompact  = "compact"
	FormatJSON     = "json"
)

// Config is the root configuration structure
type Config struct {
	Version int          `yaml:"version"`
	Probe   *ProbePrefs  `yaml:"probe,omitempty"`
	Output  *OutputPrefs `yaml:"output,omitempty"`

	path string
}

// ProbePrefs holds the defaults for discovery sessions
type ProbePrefs struct {
	TimeoutMS        int      `yaml:"timeout_ms"`                  // Reply collection window in milliseconds
	Resolve          bool     `yaml:"resolve"`                     // Build connection handles for devices
	Interface        string   `yaml:"interface,omitempty"`         // Outbound multicast interface (e.g. "eth0")
	MulticastAddress string   `yaml:"multicast_address,omitempty"` // Probe target, defaults to 239.255.255.250:3702
	Types            []string `yaml:"types,omitempty"`             // Probed device types
}

// OutputPrefs controls how CLI results are rendered
type OutputPrefs struct {
	Format string `yaml:"format"` // detailed, compact or json
}

// NewConfig creates a configuration with default values
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Probe: &ProbePrefs{
			TimeoutMS: int(discovery.DefaultTimeout / time.Millisecond),
			Resolve:   true,
			Types:     []string{protocol.TypeNetworkVideoTransmitter},
		},
		Output: &OutputPrefs{
			Format: FormatDetailed,
		},
	}
}

// Timeout returns the configured reply window
func (p *ProbePrefs) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Probe != nil && c.Probe.TimeoutMS < 0 {
		return fmt.Errorf("probe.timeout_ms must not be negative, got %d", c.Probe.TimeoutMS)
	}
	if c.Output != nil {
		switch c.Output.Format {
		case "", FormatDetailed, FormatCompact, FormatJSON:
		default:
			return fmt.Errorf("unknown output format %q", c.Output.Format)
		}
	}
	return nil
}

// applyDefaults fills in sections missing from a loaded file
func (c *Config) applyDefaults() {
	defaults := NewConfig()
	if c.Probe == nil {
		c.Probe = defaults.Probe
	}
	if c.Output == nil {
		c.Output = defaults.Output
	}
	if c.Output.Format == "" {
		c.Output.Format = FormatDetailed
	}
}

// ProbeOptions converts the probe preferences into discovery options
func (c *Config) ProbeOptions() []discovery.Option {
	p := c.Probe
	if p == nil {
		return nil
	}

	opts := []discovery.Option{
		discovery.WithTimeout(p.Timeout()),
		discovery.WithResolve(p.Resolve),
	}
	if p.Interface != "" {
		opts = append(opts, discovery.WithInterface(p.Interface))
	}
	if p.MulticastAddress != "" {
		opts = append(opts, discovery.WithTarget(p.MulticastAddress))
	}
	if len(p.Types) > 0 {
		opts = append(opts, discovery.WithTypes(p.Types...))
	}
	return opts
}

// Simulation describes the cameras served by "onvif-probe simulate"
type Simulation struct {
	Listen  string              `yaml:"listen,omitempty"`  // Defaults to the WS-Discovery multicast group
	Repeat  int                 `yaml:"repeat,omitempty"`  // Send each answer this many times
	Devices []SimulatedDevice   `yaml:"devices"`           // Cameras to answer for
	Replies map[string][]string `yaml:"replies,omitempty"` // Raw payloads keyed by probe message id
}

// SimulatedDevice is one camera advertised by the simulator
type SimulatedDevice struct {
	Name     string   `yaml:"name"`
	Hardware string   `yaml:"hardware,omitempty"`
	Location string   `yaml:"location,omitempty"`
	XAddrs   []string `yaml:"xaddrs"`
	URN      string   `yaml:"urn,omitempty"` // Random urn:uuid when empty
	Types    []string `yaml:"types,omitempty"`
}

// ResponderConfig builds the responder configuration for the simulation.
// Devices without a URN get a fresh one on every call.
func (s *Simulation) ResponderConfig() (responder.Config, error) {
	cfg := responder.Config{
		Addr:    s.Listen,
		Repeat:  s.Repeat,
		Replies: s.Replies,
	}
	if cfg.Addr == "" {
		cfg.Addr = protocol.MulticastAddress
	}

	for i, d := range s.Devices {
		if len(d.XAddrs) == 0 {
			return responder.Config{}, fmt.Errorf("simulated device %d (%s) has no xaddrs", i, d.Name)
		}
		cfg.Devices = append(cfg.Devices, d.probeMatch())
	}
	return cfg, nil
}

func (d SimulatedDevice) probeMatch() protocol.ProbeMatch {
	urn := d.URN
	if urn == "" {
		urn = "urn:uuid:" + uuid.NewString()
	}
	types := d.Types
	if len(types) == 0 {
		types = []string{protocol.TypeNetworkVideoTransmitter}
	}

	var scopes []string
	for _, s := range []struct{ category, value string }{
		{"name", d.Name},
		{"hardware", d.Hardware},
		{"location", d.Location},
	} {
		if s.value != "" {
			scopes = append(scopes, discovery.ScopeURI(s.category, s.value))
		}
	}

	return protocol.ProbeMatch{
		EndpointAddress: urn,
		Types:           types,
		Scopes:          scopes,
		XAddrs:          d.XAddrs,
		MetadataVersion: 1,
	}
}
