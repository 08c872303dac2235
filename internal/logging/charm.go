package logging

import (
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// NewConsoleLogger builds a Logger that renders records through the
// charmbracelet console handler. Unknown levels fall back to warn.
func NewConsoleLogger(w io.Writer, level string) *SlogLogger {
	lvl, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = charmlog.WarnLevel
	}

	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Prefix:          "instanthost",
	})

	return NewSlogLogger(slog.New(handler))
}

// Discard returns a Logger that drops every record.
func Discard() *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}
