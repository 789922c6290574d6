// Package logging provides structured logging for the compile orchestrator.
//
// Adapted from the teacher's internal/logging.TemplarLogger: same
// log/slog-backed level/format/component-chaining shape, retargeted from
// templar's component-centric fields to compile-id/project-centric ones.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Level mirrors slog's levels with an explicit Fatal rung that still does
// not call os.Exit — the caller decides how to react to a fatal condition.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger is the structured logging contract used throughout the
// orchestrator.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

// Config holds logger configuration.
type Config struct {
	Level     Level
	Format    string // "json" or "text"
	Output    io.Writer
	AddSource bool
	Component string
}

// DefaultConfig returns the default logger configuration: info level, text
// format, stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:     LevelInfo,
		Format:    "text",
		Output:    os.Stdout,
		AddSource: true,
	}
}

// SlogLogger is the orchestrator's Logger implementation, backed by
// log/slog.
type SlogLogger struct {
	logger    *slog.Logger
	level     Level
	component string
	fields    map[string]any
}

// New creates a new structured logger from cfg (DefaultConfig() if nil).
func New(cfg *Config) *SlogLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := &slog.HandlerOptions{
		Level:     slog.Level(cfg.Level - 1),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &SlogLogger{
		logger:    slog.New(handler),
		level:     cfg.Level,
		component: cfg.Component,
		fields:    make(map[string]any),
	}
}

func (l *SlogLogger) Debug(ctx context.Context, msg string, fields ...any) {
	if l.level > LevelDebug {
		return
	}
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

func (l *SlogLogger) Info(ctx context.Context, msg string, fields ...any) {
	if l.level > LevelInfo {
		return
	}
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

func (l *SlogLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	if l.level > LevelWarn {
		return
	}
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

func (l *SlogLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	if l.level > LevelError {
		return
	}
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// With returns a logger carrying additional persistent key/value fields.
func (l *SlogLogger) With(fields ...any) Logger {
	newFields := make(map[string]any, len(l.fields)+len(fields)/2)
	for k, v := range l.fields {
		newFields[k] = v
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			newFields[key] = fields[i+1]
		}
	}
	return &SlogLogger{logger: l.logger, level: l.level, component: l.component, fields: newFields}
}

// WithComponent returns a logger tagged with the given component name
// (e.g. a project name or compile id).
func (l *SlogLogger) WithComponent(component string) Logger {
	return &SlogLogger{logger: l.logger, level: l.level, component: component, fields: l.fields}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...any) {
	if l.logger == nil {
		fmt.Fprintf(os.Stderr, "[ERROR] logger is nil - message: %s\n", msg)
		return
	}

	attrs := make([]slog.Attr, 0, len(l.fields)+len(fields)/2+2)

	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}
		value := fields[i+1]
		if str, isString := value.(string); isString {
			value = SanitizeForLog(str)
		}
		attrs = append(attrs, slog.Any(key, value))
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)

	if handler := l.logger.Handler(); handler != nil {
		if handleErr := handler.Handle(ctx, record); handleErr != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] failed to write log: %v - original message: %s\n", handleErr, msg)
		}
	}
}

// SanitizeForLog redacts values that look like secrets and truncates very
// long strings before they are attached to a log record.
func SanitizeForLog(data string) string {
	lower := strings.ToLower(data)
	for _, word := range []string{"password", "token", "secret", "key", "auth"} {
		if strings.Contains(lower, word) {
			return "[REDACTED]"
		}
	}
	if len(data) > 1000 {
		return data[:1000] + "...[TRUNCATED]"
	}
	return data
}
