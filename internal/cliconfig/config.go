package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
)

// Log output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config holds CLI configuration for bulkship.
type Config struct {
	BlockSize    int
	FileWorkers  int
	OutputDir    string
	MaxLineBytes int

	WatchDir string
	Debounce time.Duration

	ChunkSize int

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BlockSize:    3,
		FileWorkers:  2,
		OutputDir:    ".",
		MaxLineBytes: app.DefaultMaxLineBytes,
		Debounce:     100 * time.Millisecond,
		ChunkSize:    4096,
		LogLevel:     "info",
		LogFormat:    FormatConsole,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BlockSize < 1 {
		return fmt.Errorf("%w: block-size must be at least 1", domain.ErrInvalidConfig)
	}
	if c.FileWorkers < 1 {
		return fmt.Errorf("%w: file-workers must be at least 1", domain.ErrInvalidConfig)
	}
	if c.MaxLineBytes < 1 {
		return fmt.Errorf("%w: max-line-bytes must be at least 1", domain.ErrInvalidConfig)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk-size must be at least 1", domain.ErrInvalidConfig)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%w: debounce must not be negative", domain.ErrInvalidConfig)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("%w: output-dir is required", domain.ErrInvalidConfig)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("%w: unknown log-level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	if c.LogFormat != FormatConsole && c.LogFormat != FormatJSON {
		return fmt.Errorf("%w: log-format must be %q or %q, got %q",
			domain.ErrInvalidConfig, FormatConsole, FormatJSON, c.LogFormat)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}
