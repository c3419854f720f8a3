package mapres

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with mapres-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
// It is the default for every loader.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// LogMap logs a resource mapping.
func (l *Logger) LogMap(ctx context.Context, path string, size int, executable bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "map failed",
			"path", path,
			"executable", executable,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "mapped",
			"path", path,
			"size", size,
			"executable", executable,
		)
	}
}

// LogUnmap logs the release of a mapping.
func (l *Logger) LogUnmap(ctx context.Context, path string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "unmap failed",
			"path", path,
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "unmapped",
			"path", path,
			"size", size,
		)
	}
}

// LogSnapshotLoad logs an ELF snapshot load.
func (l *Logger) LogSnapshotLoad(ctx context.Context, path string, size uintptr, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"path", path,
			"size", size,
			"duration", duration,
		)
	}
}

// LogSnapshotUnload logs the release of an ELF snapshot.
func (l *Logger) LogSnapshotUnload(ctx context.Context, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot unload failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "snapshot unloaded",
			"path", path,
		)
	}
}
