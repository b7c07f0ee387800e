// Package logging builds the service slog handler and defines the
// CRITICAL level used for unrecoverable state-write failures.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// LevelCritical sits above slog.LevelError for failures that leave
// persisted state inconsistent and need operator attention.
const LevelCritical = slog.Level(12)

// ReplaceLevel renders LevelCritical as "CRITICAL" instead of "ERROR+4".
func ReplaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if level, ok := a.Value.Any().(slog.Level); ok && level >= LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

// New returns a logger writing text records to w at or above level.
// Non-nil extra handlers receive every record as well.
func New(w io.Writer, level slog.Leveler, extra ...slog.Handler) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: ReplaceLevel,
	})

	handlers := []slog.Handler{text}
	for _, h := range extra {
		if h != nil {
			handlers = append(handlers, h)
		}
	}

	if len(handlers) == 1 {
		return slog.New(text)
	}
	return slog.New(slog.NewMultiHandler(handlers...))
}

// Critical logs msg at LevelCritical.
func Critical(ctx context.Context, logger *slog.Logger, msg string, args ...any) {
	logger.Log(ctx, LevelCritical, msg, args...)
}
