// Package logger provides structured logging for kvs.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, configuration and dynamic level
//   - context.go: context-aware logging with session and job fields
//   - redact.go: masking of stored values and secrets
//
// Features:
//
//   - JSON and text output formats
//   - Runtime level changes (config reload)
//   - Stored values are masked unless the level is debug
package logger
