// Package logging provides structured logging for devwatch.
//
// This package wraps a global zap logger with level helpers and a few
// discovery-specific functions, so every adapter logs announcements and
// resolutions with the same field names.
//
// # Log Levels
//
//   - Debug: raw signal details, skipped TXT records (hex and ASCII dumps)
//   - Info: announcements, resolutions, browse session lifecycle
//   - Warn: per-event failures (malformed signals, failed resolutions)
//   - Error: fatal transport failures before the process exits
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize(cfg.LogLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// An empty level falls back to DEVWATCH_LOG_LEVEL, then to "info". The level
// "off" installs a no-op logger. Output goes to stderr in console format so
// it never interleaves with device output on stdout.
//
// # Structured Logging
//
//	logging.LogAnnouncement("added", logging.ServiceFields{
//	    Interface: 2,
//	    Protocol:  0,
//	    Name:      "sensor-01",
//	    Type:      "_discover._tcp",
//	    Domain:    "local",
//	})
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize has
// returned.
package logging
