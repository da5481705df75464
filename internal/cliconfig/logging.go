package cliconfig

import (
	"io"

	"github.com/rs/zerolog"

	logAdapter "github.com/bft-labs/bulkship/internal/adapters/log"
)

// NewLogger builds the process logger from the configured level and format.
// Call after Validate.
func NewLogger(cfg Config, out io.Writer) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.LogFormat == FormatJSON {
		logger = logAdapter.NewJSONLogger(out)
	} else {
		logger = logAdapter.NewConsoleLogger(out)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}
