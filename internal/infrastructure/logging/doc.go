// Package logging provides structured logging for Console Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Optional rotating file output via lumberjack
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the Logging section in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//	  file:
//	    path: ""         # empty disables file output
//	    max_size: 50     # megabytes
//	    max_backups: 3
//	    max_age: 28      # days
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting shell", "port", 4400)
//	logger.Error("refresh failed", "error", err)
//
// # Security
//
// Never log tokens, passwords, or full session payloads. Log token
// prefixes at most:
//
//	logger.Debug("token rotated", "token_prefix", tok[:8]+"...")
package logging
