package logging

import (
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// NewJSONLogger builds the structured logger both binaries install as
// the process default. Every record carries the service name so api and
// worker lines separate cleanly in a shared log stream.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

// ParseLevel maps a config string to a slog level, defaulting to info
// for anything unrecognized.
func ParseLevel(level string) slog.Level {
	if l, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return slog.LevelInfo
}
