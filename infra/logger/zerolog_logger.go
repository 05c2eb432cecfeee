package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// zerologLogger backs every component logger in the service. Each instance
// carries a component field so registry, ingestor and API lines can be told
// apart in a single stream.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger returns a Logger tagged with the given component name.
// With APP_ENV=dev output is pretty-printed for the console; otherwise lines
// are emitted as JSON for log shippers.
func NewZerologLogger(component string) Logger {
	zl := zerolog.New(logWriter()).With().
		Timestamp().
		Str("component", component).
		Logger()
	return &zerologLogger{zl: zl}
}

func logWriter() io.Writer {
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return os.Stdout
}

func (l *zerologLogger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *zerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.zl.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *zerologLogger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *zerologLogger) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *zerologLogger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}
