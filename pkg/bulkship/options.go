package bulkship

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/bulkship/internal/metrics"
	"github.com/bft-labs/bulkship/internal/ports"
)

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// Sink records block logs and metrics reports. Each call must be atomic.
type Sink = ports.ReportSink

// BlockStore persists one artifact per block.
type BlockStore = ports.BlockStore

// Option configures optional behavior of a Registry.
type Option func(*options)

// options holds the optional configuration for a Registry.
type options struct {
	logger       ports.Logger
	sink         ports.ReportSink
	store        ports.BlockStore
	collector    *metrics.Collector
	registerer   prometheus.Registerer
	eventHandler EventHandler
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSink sets where block logs and metrics reports are written.
// If not provided, they are written to standard output.
func WithSink(sink Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithBlockStore replaces the file store rooted at Config.OutputDir.
func WithBlockStore(store BlockStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithRegisterer registers the registry's Prometheus collectors with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithEventHandler sets a handler for session state changes.
// Events are called synchronously; implementations should return quickly.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}
