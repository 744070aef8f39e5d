// Package log configures the process wide slog logger.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jakopako/gymbot/internal/config"
)

// Initialize sets up the default logger, writing to stdout and, if logFile
// is not empty, appending to that file as well.
func Initialize(logFile string) error {
	var w io.Writer = os.Stdout
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		w = io.MultiWriter(os.Stdout, f)
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: config.GetLogLevel()}))
	slog.SetDefault(logger)
	return nil
}

// InitializeDefaultLogger sets up a stdout only logger. Used before the
// configuration is resolved and in tests.
func InitializeDefaultLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.GetLogLevel()}))
	slog.SetDefault(logger)
}

func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, config.LoggerCtxKey, logger)
}

func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(config.LoggerCtxKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
