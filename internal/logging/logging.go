// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// CheckIDKey is the context key for the label of the running check.
	CheckIDKey ContextKey = "check_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Library default: text to stderr, warnings and above.
	InitLoggerWithWriter(os.Stderr, LevelWarn, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// ParseLevel maps a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(name string) Level {
	switch name {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// InitLogger initializes the global logger with the specified level and format,
// writing to stdout.
func InitLogger(level Level, format Format) {
	InitLoggerWithWriter(os.Stdout, level, format)
}

// InitLoggerWithWriter initializes the global logger writing to w.
func InitLoggerWithWriter(w io.Writer, level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
}

// WithCheckID adds a check label to the context.
func WithCheckID(ctx context.Context, checkID string) context.Context {
	return context.WithValue(ctx, CheckIDKey, checkID)
}

// GetCheckID retrieves the check label from the context.
func GetCheckID(ctx context.Context) string {
	if checkID, ok := ctx.Value(CheckIDKey).(string); ok {
		return checkID
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if checkID := GetCheckID(ctx); checkID != "" {
		logger = logger.With("check_id", checkID)
	}
	return logger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// CompilerLifecycle logs compiler open and close events.
func CompilerLifecycle(event string, duration time.Duration, args ...any) {
	allArgs := []any{
		"event", event,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("compiler_lifecycle", allArgs...)
}

// Divergence logs a snapshot divergence and where both sides were written.
func Divergence(label, pathA, pathB string, args ...any) {
	allArgs := []any{
		"label", label,
		"path_a", pathA,
		"path_b", pathB,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("snapshot_divergence", allArgs...)
}

// ParityViolation logs one parity offense.
func ParityViolation(function, kind string, args ...any) {
	allArgs := []any{
		"function", function,
		"kind", kind,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("parity_violation", allArgs...)
}

// CheckResult logs the outcome of a self-check entry.
func CheckResult(ctx context.Context, checkType string, pass bool, duration time.Duration, args ...any) {
	allArgs := []any{
		"check_type", checkType,
		"pass", pass,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("check_result", allArgs...)
}
