package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"cloud.google.com/go/logging"
)

// Logger is the diagnostic sink used by domain services.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Errorf(format string, v ...any)
	With(labels map[string]string) Logger
}

// Options selects and configures the backend returned by New.
type Options struct {
	ProjectID    string
	LogID        string
	CloudLogging bool
	Debug        bool
}

// New returns a Cloud Logging backed logger when opts.CloudLogging is set and
// a stdlib logger otherwise. The returned close func flushes pending entries.
func New(ctx context.Context, opts Options) (Logger, func() error, error) {
	if !opts.CloudLogging {
		return NewStd(os.Stderr, opts.Debug), func() error { return nil }, nil
	}
	if opts.ProjectID == "" {
		return nil, nil, fmt.Errorf("cloud logging requires a project id")
	}

	client, err := logging.NewClient(ctx, opts.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing logging client: %w", err)
	}

	logID := opts.LogID
	if logID == "" {
		logID = "firelog"
	}
	l := &CloudLogger{lg: client.Logger(logID), debug: opts.Debug}
	return l, client.Close, nil
}

// CloudLogger writes structured entries to Google Cloud Logging.
type CloudLogger struct {
	lg     *logging.Logger
	labels map[string]string
	debug  bool
}

func (l *CloudLogger) log(s logging.Severity, format string, v ...any) {
	l.lg.Log(logging.Entry{
		Severity: s,
		Payload:  fmt.Sprintf(format, v...),
		Labels:   l.labels,
	})
}

func (l *CloudLogger) Debugf(format string, v ...any) {
	if l.debug {
		l.log(logging.Debug, format, v...)
	}
}

func (l *CloudLogger) Infof(format string, v ...any) { l.log(logging.Info, format, v...) }

func (l *CloudLogger) Errorf(format string, v ...any) { l.log(logging.Error, format, v...) }

func (l *CloudLogger) With(labels map[string]string) Logger {
	return &CloudLogger{lg: l.lg, labels: mergeLabels(l.labels, labels), debug: l.debug}
}

// StdLogger writes severity-prefixed lines through the standard library logger.
type StdLogger struct {
	l      *log.Logger
	labels map[string]string
	debug  bool
}

func NewStd(w io.Writer, debug bool) *StdLogger {
	return &StdLogger{l: log.New(w, "", log.LstdFlags), debug: debug}
}

// Discard is handy in tests.
func Discard() Logger { return NewStd(io.Discard, false) }

func (l *StdLogger) print(sev, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	if len(l.labels) > 0 {
		msg += " " + formatLabels(l.labels)
	}
	l.l.Printf("[%s] %s", sev, msg)
}

func (l *StdLogger) Debugf(format string, v ...any) {
	if l.debug {
		l.print("DEBUG", format, v...)
	}
}

func (l *StdLogger) Infof(format string, v ...any) { l.print("INFO", format, v...) }

func (l *StdLogger) Errorf(format string, v ...any) { l.print("ERROR", format, v...) }

func (l *StdLogger) With(labels map[string]string) Logger {
	return &StdLogger{l: l.l, labels: mergeLabels(l.labels, labels), debug: l.debug}
}

func mergeLabels(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, " ")
}
