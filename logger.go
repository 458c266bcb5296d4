package evictgo

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/evictgo/pressure"
	"github.com/hupe1980/evictgo/reclaim"
)

// Logger wraps slog.Logger with evictgo-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithArtifact adds an artifact ID field to the logger.
func (l *Logger) WithArtifact(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("artifact_id", id),
	}
}

// LogSample logs a successful sampling cycle at debug level. Failed cycles
// are logged by the sampler itself.
func (l *Logger) LogSample(ctx context.Context, stats pressure.Stats) {
	l.DebugContext(ctx, "sample taken",
		"memory", stats.MemoryFraction,
		"cache", stats.CacheFraction,
		"rss_mb", stats.ProcessRSSMB,
		"workers", stats.Workers,
	)
}

// LogReclaim logs the outcome of a reclamation pass.
func (l *Logger) LogReclaim(ctx context.Context, report *reclaim.Report, d time.Duration) {
	if report == nil {
		l.DebugContext(ctx, "no reclamation needed")
		return
	}
	l.InfoContext(ctx, "reclamation completed",
		"cleaned", report.CleanedCount,
		"freed", report.FreedFraction,
		"duration", d,
	)
}
