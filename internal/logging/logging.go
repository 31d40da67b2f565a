// Package logging builds the structured logger shared by the binaries.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps debug, info, warn/warning and error (any case) to a slog level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger on stderr at the given level, tagged with service.
func New(level, service string) *slog.Logger {
	return NewWithWriter(os.Stderr, level, service)
}

// NewWithWriter is New writing to w.
func NewWithWriter(w io.Writer, level, service string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	l := slog.New(h)
	if service != "" {
		l = l.With("service", service)
	}
	return l
}
