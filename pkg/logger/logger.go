// Package logger builds the structured service logger. Every entry is JSON and,
// when the context carries an OpenTelemetry span, is tagged with its trace and
// span ids so log lines can be joined with traces.
package logger

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type Logger struct {
	*logrus.Logger
	service string
}

// New returns a JSON logger for the named service. LOG_LEVEL overrides the
// default info level.
func New(service string) *Logger {
	return newLogger(service, os.Stdout, os.Getenv("LOG_LEVEL"))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return newLogger("test", io.Discard, "panic")
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(service string, w io.Writer) *Logger {
	return newLogger(service, w, "debug")
}

func newLogger(service string, w io.Writer, level string) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.AddHook(traceHook{})

	l.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}

	return &Logger{Logger: l, service: service}
}

// Ctx returns an entry bound to ctx and tagged with the service name.
func (l *Logger) Ctx(ctx context.Context) *logrus.Entry {
	return l.Logger.WithContext(ctx).WithField("service", l.service)
}

// With returns an entry tagged with the service name and the given fields.
func (l *Logger) With(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithField("service", l.service).WithFields(fields)
}

type traceHook struct{}

func (traceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (traceHook) Fire(e *logrus.Entry) error {
	if e.Context == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(e.Context)
	if !sc.IsValid() {
		return nil
	}
	e.Data["trace_id"] = sc.TraceID().String()
	e.Data["span_id"] = sc.SpanID().String()
	return nil
}
