package app

import (
	"io"
	"log/slog"
)

// newLogger builds the launcher's isolated logger from the already-validated
// CLI configuration. The recognized level and format values mirror what the
// cli package accepts; anything else gets the info-level text handler, which
// is what the scheduler's captured log files expect.
func newLogger(cfg *Config, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
