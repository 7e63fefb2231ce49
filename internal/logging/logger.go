package logging

import (
	"log/slog"
	"os"
	"strings"
)

const serviceName = "geo-matching"

// NewLogger builds the JSON logger every process in this repo shares. slog
// keeps the standard-library feel while emitting structured records; the
// fixed service attribute lets the log pipeline split this service's
// records from the rest of the platform.
func NewLogger(level string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     levelFromString(level),
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With("service", serviceName)
}

func levelFromString(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
