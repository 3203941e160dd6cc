// Package services defines shared utilities consumed by the board, suggestion,
// and batch packages and by the external integrations behind them.
//
// Key responsibilities:
//   - Context helpers that stamp image IDs, batch IDs, and correlation
//     identifiers for logging.
//   - Structured error markers (not found, invalid merge target, create
//     failed, transport) plus the Wrap helper so callers can classify
//     failures with errors.Is instead of string matching.
package services
