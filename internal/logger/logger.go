// Package logger provides structured logging for the application,
// wrapping zap with level configuration.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// Logger wraps a zap.Logger so callers can configure the level after
// construction.
type Logger struct {
	// Log is the underlying zap logger.
	Log *zap.Logger
}

// New returns a Logger backed by a no-op zap logger until Init is called.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the underlying logger with a production zap logger at the
// given level ("Debug", "Info", "Warn", "Error"; case-insensitive).
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	log, err := cfg.Build()
	if err != nil {
		return err
	}
	l.Log = log
	return nil
}
