// Package nanolog wires structured logging for the CLI and config
// layers. Grounded in zoravur-postgres-spreadsheet-view's
// internal/logutil package, which wraps go.uber.org/zap with a couple
// of small helpers (Values groups fields under one object key) rather
// than hand-rolling a logger from scratch; nanolog keeps that same
// "thin wrapper over zap" shape, adapted to the handful of fields this
// engine's config/migrate/generate steps need (schema, file, routine,
// duration) instead of the websocket/WAL fields the original wraps.
package nanolog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a console-encoded zap.Logger at the given level, suitable
// for CLI output: human-readable, with colored level names, one line per
// event.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// Values groups a set of zap.Fields under a single "values" object
// field, verbatim from the logutil.Values named in the package comment.
func Values(fields ...zap.Field) zap.Field {
	return zap.Object("values", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		for _, f := range fields {
			f.AddTo(enc)
		}
		return nil
	}))
}
