// Package logger provides structured logging for ShadowHome.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, JSON/text handlers, dynamic level
//   - context.go: context propagation of the logger, request ID and
//     remote address
//   - redact.go: redaction of secrets (passphrases, seeds, signatures,
//     tokens) and optional masking of wallet identities
//
// The level can be changed at runtime with SetLevel; the server does so
// when its configuration file changes.
package logger
