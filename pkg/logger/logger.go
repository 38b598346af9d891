// Package logger is the structured request logger of the HTTP API.
//
// It wraps a log/slog handler with typed field constructors and carries
// a per-request logger through context.Context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// Level is the minimum severity a Logger writes.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// String returns the upper-case level name.
func (l Level) String() string {
	return l.slog().String()
}

// ParseLevel maps a configuration value to a Level. Unknown values are Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field is one structured key/value pair.
type Field = slog.Attr

func String(key, value string) Field    { return slog.String(key, value) }
func Int(key string, value int) Field   { return slog.Int(key, value) }
func Bool(key string, value bool) Field { return slog.Bool(key, value) }
func Any(key string, value any) Field   { return slog.Any(key, value) }

// Duration renders d in its String form so text and JSON output agree.
func Duration(key string, d time.Duration) Field { return slog.String(key, d.String()) }

// Err records err under "error". A nil error is kept as an empty value.
func Err(err error) Field {
	if err == nil {
		return slog.Any("error", nil)
	}
	return slog.String("error", err.Error())
}

// Options configures New.
type Options struct {
	Output io.Writer
	Level  Level
	// Format is "json" (default) or "text".
	Format string
	// AddSource records the calling file and line.
	AddSource bool
}

// Logger writes leveled records with fixed and per-call fields.
type Logger struct {
	handler slog.Handler
}

// New builds a Logger writing to opts.Output, stdout when unset.
func New(opts Options) *Logger {
	w := opts.Output
	if w == nil {
		w = os.Stdout
	}
	hopts := &slog.HandlerOptions{Level: opts.Level.slog(), AddSource: opts.AddSource}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(w, hopts)
	} else {
		h = slog.NewJSONHandler(w, hopts)
	}
	return &Logger{handler: h}
}

// FromHandler wraps an existing slog handler, usually the process logger's.
func FromHandler(h slog.Handler) *Logger {
	return &Logger{handler: h}
}

// Default is an info-level JSON logger on stdout.
func Default() *Logger {
	return New(Options{Level: LevelInfo})
}

// With returns a Logger that adds fields to every record.
func (l *Logger) With(fields ...Field) *Logger {
	if len(fields) == 0 {
		return l
	}
	return &Logger{handler: l.handler.WithAttrs(fields)}
}

// WithRequestID tags every record with the request id.
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.With(String(RequestIDKey, requestID))
}

// Enabled reports whether records at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l.handler.Enabled(context.Background(), level.slog())
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level.slog()) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	rec := slog.NewRecord(time.Now(), level.slog(), msg, pcs[0])
	rec.AddAttrs(fields...)
	_ = l.handler.Handle(ctx, rec)
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

type ctxKey struct{}

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// RequestIDKey is the field key of the request id.
const RequestIDKey = "request_id"

// Archive field helpers.
func StudentID(id string) Field     { return String("student_id", id) }
func DNI(dni string) Field          { return String("dni", dni) }
func Course(course string) Field    { return String("course", course) }
func Year(year int) Field           { return Int("year", year) }
func Subject(key string) Field      { return String("subject", key) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
