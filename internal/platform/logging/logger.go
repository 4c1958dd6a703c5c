// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/freestartupia/startupia/internal/platform/correlation"
)

// New builds a logger writing to w. Unknown levels fall back to info and
// any format other than "json" yields text output. Every record carries the
// correlation id of its context, if any.
func New(w io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(correlation.NewHandler(handler))
}

// InitLogger installs a stdout logger as the slog default.
func InitLogger(level, format string) *slog.Logger {
	logger := New(os.Stdout, level, format)
	slog.SetDefault(logger)
	return logger
}
