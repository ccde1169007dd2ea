// =============================================================================
// Photo Sale Ledger - Logging
// =============================================================================
//
// Builds the structured logger handed to every component. Components accept a
// *slog.Logger and call OrDiscard so that a nil logger is always safe.
//
// LEVELS:   debug, info, warn, error   (default: info)
// FORMATS:  text, json                 (default: text)
//
// =============================================================================

package logging

import (
	"io"
	"log/slog"
	"strings"
)

// New creates a logger writing to w.
func New(level, format string, w io.Writer) *slog.Logger {
	options := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
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

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
