// Package log configures the process-wide structured logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text slog handler on stderr at the given level.
// Unknown level strings fall back to info.
func Setup(logLevel string) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with a module attribute so
// log lines can be filtered per component (optimizer, critic, api, ...).
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
