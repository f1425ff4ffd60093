package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler. LOG_LEVEL overrides the
// level for either.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	level := slog.LevelDebug
	if env == "production" {
		level = slog.LevelInfo
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level = ParseLevel(raw, level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps debug/info/warn/error to a slog level, returning fallback
// for anything else.
func ParseLevel(raw string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return fallback
	}
	return level
}

// WithCycle returns a logger scoped to one autonomous cycle invocation.
func WithCycle(cycleID string) *slog.Logger {
	return slog.With("component", "heartbeat", "cycle_id", cycleID)
}

// WithIntent returns a logger scoped to a routed chat request.
func WithIntent(intent string) *slog.Logger {
	return slog.With("component", "router", "intent", intent)
}

// WithAction scopes a logger to an outbound Moltbook call.
func WithAction(logger *slog.Logger, action string) *slog.Logger {
	return logger.With("moltbook_action", action)
}
