package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/blockberries/chainbridge/config"
	"github.com/blockberries/chainbridge/logging"
)

// createLogger logs to stderr, or to the configured file, at the
// configured level.
func createLogger(cfg config.LoggingConfig) *logging.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelWarn
	}

	w := os.Stderr
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			w = f
		}
	}

	if strings.ToLower(cfg.Format) == "json" {
		return logging.NewJSONLogger(w, level)
	}
	return logging.NewTextLogger(w, level)
}
