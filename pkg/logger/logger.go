package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a thin zerolog wrapper. A nil *Logger is not valid; use Nop.
type Logger struct {
	zl zerolog.Logger
}

type Config struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error fatal panic"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output     string `yaml:"output" default:"stdout"` // stdout, stderr, or file path
	TimeFormat string `yaml:"time_format"`
	// Service is stamped on every line, so mixed container logs stay attributable.
	Service string `yaml:"service" default:"nichescope"`
}

func New(cfg *Config) (*Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", cfg.Output, err)
		}
		out = f
	}
	return NewWithWriter(cfg, out)
}

// NewWithWriter builds a logger on w; New resolves cfg.Output to a writer and calls it.
func NewWithWriter(cfg *Config, w io.Writer) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	tf := cfg.TimeFormat
	if tf == "" {
		tf = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = tf
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: tf}
	}

	zc := zerolog.New(w).Level(level).With().Timestamp()
	if cfg.Service != "" {
		zc = zc.Str("service", cfg.Service)
	}
	// report the caller of Info/Warn/..., not emit
	return &Logger{zl: zc.CallerWithSkipFrameCount(3).Logger()}, nil
}

func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that carries fields on every line.
func (l *Logger) With(fields ...Field) *Logger {
	zc := l.zl.With()
	for _, f := range fields {
		zc = f.context(zc)
	}
	return &Logger{zl: zc.Logger()}
}

// Named is With(String("component", name)).
func (l *Logger) Named(name string) *Logger {
	return l.With(String("component", name))
}

func (l *Logger) Debug(msg string, fields ...Field) { l.emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.emit(l.zl.Error(), msg, fields) }

func (l *Logger) emit(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.event(e)
	}
	e.Msg(msg)
}

type kind uint8

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
	kindTime
	kindError
	kindStrings
	kindAny
)

// Field is a typed key/value pair. It is a plain value, so building one does not allocate
// for scalar kinds.
type Field struct {
	key  string
	kind kind
	str  string
	num  int64
	flt  float64
	at   time.Time
	val  interface{}
}

func (f Field) event(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.key, f.str)
	case kindInt:
		e.Int64(f.key, f.num)
	case kindFloat:
		e.Float64(f.key, f.flt)
	case kindBool:
		e.Bool(f.key, f.num != 0)
	case kindDuration:
		e.Dur(f.key, time.Duration(f.num))
	case kindTime:
		e.Time(f.key, f.at)
	case kindError:
		if err, _ := f.val.(error); err != nil {
			e.AnErr(f.key, err)
		}
	case kindStrings:
		e.Strs(f.key, f.val.([]string))
	default:
		e.Interface(f.key, f.val)
	}
}

func (f Field) context(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.key, f.str)
	case kindInt:
		return c.Int64(f.key, f.num)
	case kindFloat:
		return c.Float64(f.key, f.flt)
	case kindBool:
		return c.Bool(f.key, f.num != 0)
	case kindDuration:
		return c.Dur(f.key, time.Duration(f.num))
	case kindTime:
		return c.Time(f.key, f.at)
	case kindError:
		if err, _ := f.val.(error); err != nil {
			return c.AnErr(f.key, err)
		}
		return c
	case kindStrings:
		return c.Strs(f.key, f.val.([]string))
	default:
		return c.Interface(f.key, f.val)
	}
}

func String(key, v string) Field { return Field{key: key, kind: kindString, str: v} }
func Int(key string, v int) Field { return Field{key: key, kind: kindInt, num: int64(v)} }
func Int64(key string, v int64) Field {
	return Field{key: key, kind: kindInt, num: v}
}
func Float64(key string, v float64) Field { return Field{key: key, kind: kindFloat, flt: v} }

func Bool(key string, v bool) Field {
	f := Field{key: key, kind: kindBool}
	if v {
		f.num = 1
	}
	return f
}

// Duration is logged in zerolog's duration unit, milliseconds by default.
func Duration(key string, v time.Duration) Field {
	return Field{key: key, kind: kindDuration, num: int64(v)}
}

func Time(key string, v time.Time) Field { return Field{key: key, kind: kindTime, at: v} }

// Error logs err under "error". A nil error adds nothing.
func Error(err error) Field { return Field{key: zerolog.ErrorFieldName, kind: kindError, val: err} }

func Strings(key string, v []string) Field { return Field{key: key, kind: kindStrings, val: v} }

func Any(key string, v interface{}) Field { return Field{key: key, kind: kindAny, val: v} }
