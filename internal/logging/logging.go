// Package logging builds the zerolog loggers used by the service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects where and how much to log.
type Options struct {
	Level     string // debug, info, warn, error; anything else is info
	Format    string // console or json
	File      string // optional JSON log file, in addition to the console
	AuditFile string // optional audit log; empty disables auditing
}

// Logger owns the service logger, the audit logger and the files behind them.
type Logger struct {
	zerolog.Logger
	audit zerolog.Logger
	files []*os.File
}

// New builds a Logger writing to console (stderr) and the configured files.
func New(opts Options) (*Logger, error) {
	return newLogger(os.Stderr, opts)
}

func newLogger(console io.Writer, opts Options) (*Logger, error) {
	l := &Logger{audit: zerolog.Nop()}

	var out io.Writer = console
	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}
	}
	writers := []io.Writer{out}

	if opts.File != "" {
		f, err := openAppend(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		l.files = append(l.files, f)
		writers = append(writers, f)
	}

	l.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()

	if opts.AuditFile != "" {
		f, err := openAppend(opts.AuditFile)
		if err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to open audit file: %w", err)
		}
		l.files = append(l.files, f)
		l.audit = zerolog.New(f).With().Timestamp().Str("log", "audit").Logger()
	}
	return l, nil
}

// Audit returns the logger for committed vault operations.
func (l *Logger) Audit() zerolog.Logger { return l.audit }

// Close closes the log files.
func (l *Logger) Close() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}

// ParseLevel maps a config level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
