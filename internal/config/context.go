package config

import (
	"context"
	"log/slog"
)

// loggerKey is the context key for the CLI logger.
type loggerKey struct{}

// LoggerKey returns the context key used for storing the logger. The
// commands package retrieves the logger from context through this key
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
