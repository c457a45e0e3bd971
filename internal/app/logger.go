package app

import (
	"io"
	"log/slog"
	"os"

	"github.com/vaultledger/vaultledger/internal/logmask"
)

// NewLogger returns a configured slog.Logger. Output always passes through the masker.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, out io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	var inner slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		inner = slog.NewJSONHandler(out, opts)
	} else {
		inner = slog.NewTextHandler(out, opts)
	}
	return slog.New(logmask.NewHandler(inner))
}
