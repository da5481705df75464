package bulkship

import (
	"fmt"

	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
)

// Default values for Config.
const (
	DefaultFileWorkers  = 2
	DefaultOutputDir    = "."
	DefaultMaxLineBytes = app.DefaultMaxLineBytes
)

// Config holds the settings shared by every connection of a Registry.
type Config struct {
	// FileWorkers is the number of file-writing goroutines per connection.
	FileWorkers int

	// OutputDir receives one file per block. Ignored with WithBlockStore.
	OutputDir string

	// MaxLineBytes bounds a single input line.
	MaxLineBytes int
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.FileWorkers == 0 {
		c.FileWorkers = DefaultFileWorkers
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.MaxLineBytes == 0 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
}

// Validate checks the configuration after defaults are applied.
func (c Config) Validate() error {
	if c.FileWorkers < 1 {
		return fmt.Errorf("%w: file workers must be at least 1, got %d",
			domain.ErrInvalidConfig, c.FileWorkers)
	}
	if c.MaxLineBytes < 1 {
		return fmt.Errorf("%w: max line bytes must be at least 1, got %d",
			domain.ErrInvalidConfig, c.MaxLineBytes)
	}
	return nil
}
