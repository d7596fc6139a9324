// Package config provides user configuration management for onvif-probe.
//
// This package manages a YAML configuration file holding the defaults for
// discovery sessions (timeout, resolution, interface, probe types) and the
// output format of the CLI. Discovered devices are never written to disk.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/onvifprobe/config.yaml or $HOME/.config/onvifprobe/config.yaml
//   - macOS: $HOME/.config/onvifprobe/config.yaml
//   - Windows: %LOCALAPPDATA%\onvifprobe\config.yaml
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	devices, err := discovery.Discover(ctx, cfg.ProbeOptions()...)
//
// # Simulation Files
//
// LoadSimulation reads the camera list served by "onvif-probe simulate":
//
//	listen: 239.255.255.250:3702
//	repeat: 2
//	devices:
//	  - name: Lobby
//	    hardware: M1054
//	    xaddrs: [http://192.168.1.90/onvif/device_service]
//	replies:
//	  e7707: [lollipop]
//
// # Thread Safety
//
// File writes are protected by a mutex and are atomic (temp file + rename).
package config
