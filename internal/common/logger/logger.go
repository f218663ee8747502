package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		switch l {
		case zerolog.WarnLevel:
			return "WARN"
		case zerolog.ErrorLevel:
			return "ERROR"
		case zerolog.DebugLevel:
			return "DEBUG"
		default:
			return "INFO"
		}
	}
}

type Logger struct {
	service string
	zl      zerolog.Logger
}

func New(service string) *Logger { return NewWithWriter(service, os.Stdout) }

// NewWithWriter is New with an explicit sink; tests pass a buffer.
func NewWithWriter(service string, w io.Writer) *Logger {
	zl := zerolog.New(w).With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname()).
		Logger()
	return &Logger{service: service, zl: zl}
}

// With returns a child logger that stamps every entry with the given fields.
func (l *Logger) With(fields map[string]any) *Logger {
	return &Logger{service: l.service, zl: l.zl.With().Fields(fields).Logger()}
}

func (l *Logger) log(ev *zerolog.Event, action string, fields map[string]any, err error) {
	ev = ev.Str("action", action)
	if fields != nil {
		ev = ev.Fields(fields)
	}
	if err != nil {
		ev = ev.Dict("error", zerolog.Dict().Str("msg", err.Error()).Str("type", fmt.Sprintf("%T", err)))
	}
	ev.Msg(action)
}

func (l *Logger) Info(action string, fields map[string]any)  { l.log(l.zl.Info(), action, fields, nil) }
func (l *Logger) Debug(action string, fields map[string]any) { l.log(l.zl.Debug(), action, fields, nil) }
func (l *Logger) Warn(action string, err error, fields map[string]any) {
	l.log(l.zl.Warn(), action, fields, err)
}
func (l *Logger) Error(action string, err error, fields map[string]any) {
	l.log(l.zl.Error(), action, fields, err)
}

// Nop discards everything.
func Nop() *Logger { return &Logger{zl: zerolog.Nop()} }

func hostname() string { h, _ := os.Hostname(); return h }
