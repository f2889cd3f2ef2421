// Package logger is aund's process-wide structured logger: a thin layer
// over log/slog with a coloured text handler for terminals, JSON for
// collectors, and request context (station, function, trace ids) carried
// through context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config selects level, format and destination.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	level  slog.LevelVar
	format atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	logFile  *os.File
	useColor = isTerminal(os.Stdout.Fd())
)

func init() {
	format.Store("text")
	reconfigure()
}

// reconfigure rebuilds the handler after an output or format change.
// Level changes take effect through the shared LevelVar.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &level}
	if f, _ := format.Load().(string); f == "json" {
		slogger = slog.New(slog.NewJSONHandler(output, opts))
	} else {
		slogger = slog.New(NewColorTextHandler(output, opts, useColor))
	}
}

// Init applies cfg. Empty fields keep their current setting.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, f, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		if logFile != nil {
			_ = logFile.Close()
		}
		output, logFile, useColor = w, f, color
		mu.Unlock()
		reconfigure()
	}
	SetLevel(cfg.Level)
	SetFormat(cfg.Format)
	return nil
}

func openOutput(name string) (io.Writer, *os.File, bool, error) {
	switch strings.ToLower(name) {
	case "stdout":
		return os.Stdout, nil, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, nil, isTerminal(os.Stderr.Fd()), nil
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, false, fmt.Errorf("failed to open log file %q: %w", name, err)
	}
	return f, f, false, nil
}

// InitWithWriter sends output to w. Used by tests.
func InitWithWriter(w io.Writer, lvl, f string, enableColor bool) {
	mu.Lock()
	output, useColor = w, enableColor
	mu.Unlock()
	reconfigure()
	SetLevel(lvl)
	SetFormat(f)
}

// ParseLevel maps a level name, case-insensitively, to a slog.Level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// SetLevel sets the minimum level. Unknown names are ignored.
func SetLevel(name string) {
	if l, ok := ParseLevel(name); ok {
		level.Set(l)
	}
}

// SetFormat switches between "text" and "json". Other values are ignored.
func SetFormat(f string) {
	f = strings.ToLower(f)
	if f != "text" && f != "json" {
		return
	}
	if old, _ := format.Swap(f).(string); old != f {
		reconfigure()
	}
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func log(ctx context.Context, l slog.Level, msg string, args []any) {
	if l < level.Level() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	getLogger().Log(ctx, l, msg, appendContextFields(ctx, args)...)
}

// Debug logs msg with alternating key/value args or slog.Attrs.
func Debug(msg string, args ...any) {
	log(context.Background(), slog.LevelDebug, msg, args)
}

func Info(msg string, args ...any) {
	log(context.Background(), slog.LevelInfo, msg, args)
}

func Warn(msg string, args ...any) {
	log(context.Background(), slog.LevelWarn, msg, args)
}

func Error(msg string, args ...any) {
	log(context.Background(), slog.LevelError, msg, args)
}

// DebugCtx is Debug with the LogContext of ctx, if any, prepended.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args)
}

func InfoCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args)
}

func WarnCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args)
}

func ErrorCtx(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelError, msg, args)
}

func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 6+len(args))
	if lc.TraceID != "" {
		out = append(out, TraceID(lc.TraceID))
	}
	if lc.SpanID != "" {
		out = append(out, SpanID(lc.SpanID))
	}
	if lc.Function != "" {
		out = append(out, Function(lc.Function))
	}
	if lc.Client != "" {
		out = append(out, Client(lc.Client))
	}
	if lc.User != "" {
		out = append(out, User(lc.User))
	}
	if lc.Port != 0 {
		out = append(out, Port(lc.Port))
	}
	return append(out, args...)
}

// Duration returns the milliseconds elapsed since start, for DurationMs.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
