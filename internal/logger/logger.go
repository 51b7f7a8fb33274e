// Package logger provides structured logging for the fim scan engine.
// It wraps log/slog with a process-wide default logger configurable for
// level, format (text or json) and output destination, plus helpers for
// attaching per-worker and per-stage context used by the pipeline.
package logger

import (
	"io"
	"log/slog"
	"os"
)

var (
	defaultLogger *slog.Logger
	logLevel      slog.Level = slog.LevelInfo
)

// Init (re)configures the default logger. If output is nil, os.Stderr is used.
func Init(level string, format string, output io.Writer) {
	if output == nil {
		output = os.Stderr
	}

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
}

// Logger returns the default logger instance, initializing it with
// info/text/stderr defaults on first use.
func Logger() *slog.Logger {
	if defaultLogger == nil {
		Init("info", "text", nil)
	}
	return defaultLogger
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }

// With returns a logger carrying the given key-value pairs on every
// subsequent record, e.g. a path or operation name.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Worker returns a logger tagged with a pipeline stage and worker ordinal,
// used by the C3 extractor so log lines from a stalled worker can be told
// apart from its siblings.
func Worker(stage string, id int) *slog.Logger {
	return Logger().With("stage", stage, "worker_id", id)
}
