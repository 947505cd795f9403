// Package logger provides structured logging for vaultgate.
//
// This package wraps log/slog:
//
//   - logger.go: Logger interface, configuration, and the info/halt channel split
//   - context.go: context-carried loggers and load attempt IDs
//   - redact.go: sensitive attribute redaction
//
// Records below Error go to the info channel (Config.Output). Error
// records announce halts and go to the halt channel (Config.HaltOutput)
// when one is configured, so operators can route refusals separately.
package logger
