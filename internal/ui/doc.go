// Package ui provides terminal output for the onvif-probe CLI.
//
// This package uses Lipgloss to render discovered devices, bad replies and
// run summaries, and Bubble Tea for the live "watch" view. Apart from the
// watch view every component follows a "print and move on" pattern: output
// is written as events arrive and needs no user interaction.
//
// # Components
//
//   - Header: banner showing the command and its probe parameters
//   - RenderDevice / RenderDeviceLine: detailed and compact device output
//   - Summary: success, warning or failure box closing a run
//   - WatchModel: Bubble Tea model fed by discovery bus events
//
// # Output Formats
//
// Printer selects between "detailed" (boxes), "compact" (one line per
// device) and "json" (a single document written at the end of the run).
//
// # Logging Integration
//
// This package expects logging to be controlled via the ONVIFPROBE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
