package logger

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

// Log formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New creates a logger writing to w at the given level and format
func New(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := log.New()
	l.SetOutput(w)
	l.SetLevel(lvl)

	switch format {
	case FormatText, "":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		l.SetFormatter(&log.JSONFormatter{})
		l.AddHook(SeverityHook{})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return l, nil
}

// Discard returns a logger that drops everything, for callers that pass no logger
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

// OrDiscard returns l, or a discarding logger when l is nil
func OrDiscard(l log.FieldLogger) log.FieldLogger {
	if l == nil {
		return Discard()
	}
	return l
}

// SeverityHook adds a GCP-compatible severity field to log entries.
type SeverityHook struct{}

func (SeverityHook) Levels() []log.Level {
	return log.AllLevels
}

func (SeverityHook) Fire(entry *log.Entry) error {
	if entry == nil {
		return nil
	}
	if _, ok := entry.Data["severity"]; ok {
		return nil
	}
	entry.Data["severity"] = severityForLevel(entry.Level)
	return nil
}

func severityForLevel(level log.Level) string {
	switch level {
	case log.PanicLevel:
		return "emergency"
	case log.FatalLevel:
		return "critical"
	case log.ErrorLevel:
		return "error"
	case log.WarnLevel:
		return "warning"
	case log.InfoLevel:
		return "info"
	case log.DebugLevel, log.TraceLevel:
		return "debug"
	default:
		return "default"
	}
}
