// Package logging provides structured logging for onvif-probe.
//
// This package wraps a zap logger with convenience functions used by the
// discovery session, the responder and the CLI.
//
// # Log Levels
//
//   - Debug: Datagram dumps, duplicate suppression, socket options
//   - Info: Session start/close, devices found
//   - Warn: Malformed replies, unresolvable devices, non-fatal socket option failures
//   - Error: Transport failures
//
// # Configuration
//
// Logging is silent by default. Enable it with the ONVIFPROBE_LOG_LEVEL
// environment variable or explicitly:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Logs go to stderr so that probe results on stdout stay machine-readable.
//
// # Datagram Logging
//
//	logging.LogDatagram("sent", groupAddr.String(), payload)
//	logging.LogDatagram("received", from.String(), datagram)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
