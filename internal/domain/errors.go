package domain

import "errors"

// Domain errors represent error conditions in the bulkship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("bulkship: invalid configuration")

	// ErrLineTooLong is returned when an input line exceeds the configured
	// maximum length. The line is dropped; the connection stays usable.
	ErrLineTooLong = errors.New("bulkship: line too long")

	// ErrPoolStopped is returned when a block is submitted to a stopped pool.
	ErrPoolStopped = errors.New("bulkship: worker pool stopped")

	// ErrClosed is returned when connecting to a registry that has been closed.
	ErrClosed = errors.New("bulkship: registry closed")
)
