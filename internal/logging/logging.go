// Package logging builds the leveled charmbracelet/log loggers used across taskflow.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const prefix = "taskflow"

type Options struct {
	Level string
	// File, when set, receives log output instead of stderr. The TUI always logs to a
	// file (or nowhere) so the alternate screen stays clean.
	File string
}

// New returns a logger writing to w at the given level name (debug|info|warn|error).
func New(w io.Writer, level string) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           ParseLevel(level),
		Formatter:       log.TextFormatter,
		ReportTimestamp: true,
		Prefix:          prefix,
	})
}

// Open resolves Options to a logger. The returned close func is never nil.
func Open(opts Options, fallback io.Writer) (*log.Logger, func() error, error) {
	path := strings.TrimSpace(opts.File)
	if path == "" {
		return New(fallback, opts.Level), func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(f, opts.Level), f.Close, nil
}

// Discard is a logger that drops everything; used as the zero-value default.
func Discard() *log.Logger {
	return New(io.Discard, "error")
}

func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
