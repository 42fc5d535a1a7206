// Package logging provides structured logging helpers built on log/slog,
// including context plumbing so request-scoped loggers flow through the
// call stack without explicit parameters.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type contextKey string

const loggerKey = contextKey("logger")

// NewLogger creates the application logger. Verbose mode lowers the level
// to Debug; otherwise Info and above is emitted.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger from the context, falling back to
// slog.Default() when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// LogOperation logs a named operation at Info level.
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("operation", operation))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info("operation", args...)
}

// LogError logs an error with its message and any additional attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.String("error", err.Error()))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Error(msg, args...)
}

// LogHTTPRequest logs a completed HTTP request with method, path, status,
// and duration in milliseconds.
func LogHTTPRequest(logger *slog.Logger, method, path string, status int, durationMs float64, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+4)
	args = append(args,
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", durationMs),
	)
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info("http_request", args...)
}

// SafeCloseWithLogging closes the closer and logs a warning on failure.
// Intended for defer statements where the close error would otherwise be
// silently discarded.
func SafeCloseWithLogging(closer io.Closer, logger *slog.Logger, resource string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			slog.String("resource", resource),
			slog.String("error", err.Error()))
	}
}
