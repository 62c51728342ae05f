package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger that can also feed error entries to an ErrorAggregator.
// Children made by With share the parent's aggregator slot.
type Logger struct {
	zl         zerolog.Logger
	aggregator *atomic.Pointer[ErrorAggregator]
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = timeFormat
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat}
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().CallerWithSkipFrameCount(4).Logger()
	return &Logger{zl: zl, aggregator: new(atomic.Pointer[ErrorAggregator])}, nil
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop(), aggregator: new(atomic.Pointer[ErrorAggregator])}
}

// With returns a child logger that stamps fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.value)
	}
	return &Logger{zl: ctx.Logger(), aggregator: l.aggregator}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }

func (l *Logger) Info(msg string, fields ...Field) { write(l.zl.Info(), msg, fields) }

func (l *Logger) Warn(msg string, fields ...Field) { write(l.zl.Warn(), msg, fields) }

// Error also counts the entry in the attached aggregator.
func (l *Logger) Error(msg string, fields ...Field) {
	write(l.zl.Error(), msg, fields)
	if agg := l.aggregator.Load(); agg != nil {
		agg.Add("error", msg, fieldMap(fields), callerOf(2))
	}
}

func write(ev *zerolog.Event, msg string, fields []Field) {
	// nil when the level is disabled
	if ev == nil {
		return
	}
	for _, f := range fields {
		f.add(ev)
	}
	ev.Msg(msg)
}

// callerOf reports file:line skip frames up, with the path trimmed to the module.
func callerOf(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	if i := strings.LastIndex(file, "ForecastDash/"); i >= 0 {
		file = file[i+len("ForecastDash/"):]
	} else {
		file = filepath.Base(file)
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func fieldMap(fields []Field) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.value
	}
	return m
}

// AttachAggregator routes error logs into agg, closing any previous one.
func (l *Logger) AttachAggregator(agg *ErrorAggregator) {
	if old := l.aggregator.Swap(agg); old != nil && old != agg {
		old.Close()
	}
}

// DetachAggregator flushes and stops the attached aggregator.
func (l *Logger) DetachAggregator() {
	if old := l.aggregator.Swap(nil); old != nil {
		old.Close()
	}
}

// Field is one key/value pair of a log entry. value is what the aggregator
// records; add writes the typed form to zerolog.
type Field struct {
	Key   string
	value interface{}
	add   func(ev *zerolog.Event)
}

func String(key, value string) Field {
	return Field{key, value, func(ev *zerolog.Event) { ev.Str(key, value) }}
}

func Strings(key string, value []string) Field { return String(key, strings.Join(value, ", ")) }

func Int(key string, value int) Field {
	return Field{key, value, func(ev *zerolog.Event) { ev.Int(key, value) }}
}

func Uint64(key string, value uint64) Field {
	return Field{key, value, func(ev *zerolog.Event) { ev.Uint64(key, value) }}
}

func Float64(key string, value float64) Field {
	return Field{key, value, func(ev *zerolog.Event) { ev.Float64(key, value) }}
}

func Bool(key string, value bool) Field {
	return Field{key, value, func(ev *zerolog.Event) { ev.Bool(key, value) }}
}

// Error keeps the message text as the aggregated value so entries compare by content.
func Error(err error) Field {
	var text interface{}
	if err != nil {
		text = err.Error()
	}
	return Field{"error", text, func(ev *zerolog.Event) { ev.AnErr("error", err) }}
}

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int(key, int(value/time.Millisecond))
}
