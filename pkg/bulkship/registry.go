package bulkship

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	fsadapter "github.com/bft-labs/bulkship/internal/adapters/fs"
	logAdapter "github.com/bft-labs/bulkship/internal/adapters/log"
	"github.com/bft-labs/bulkship/internal/app"
	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/metrics"
	"github.com/bft-labs/bulkship/internal/ports"
)

// Sentinel errors re-exported for errors.Is checks.
var (
	ErrInvalidConfig = domain.ErrInvalidConfig
	ErrLineTooLong   = domain.ErrLineTooLong
	ErrClosed        = domain.ErrClosed
)

// Handle identifies one connection. Handles are never reused by a Registry.
type Handle uint64

// Report is the final accounting written when a connection is disconnected.
type Report = app.Report

// Registry maps connection handles to their sessions.
type Registry struct {
	config    Config
	logger    ports.Logger
	sink      ports.ReportSink
	store     ports.BlockStore
	collector *metrics.Collector
	handler   EventHandler

	mu       sync.Mutex
	sessions map[Handle]*app.Session
	nextID   Handle
	closed   bool
}

// New creates a Registry with the given configuration.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Registry, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = logAdapter.NewNoopLogger()
	}
	if o.sink == nil {
		o.sink = logAdapter.NewWriterSink(os.Stdout)
	}
	if o.store == nil {
		o.store = fsadapter.NewBlockFileStore(cfg.OutputDir)
	}
	if o.collector == nil {
		c, err := metrics.New(o.registerer)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		o.collector = c
	}

	return &Registry{
		config:    cfg,
		logger:    o.logger,
		sink:      o.sink,
		store:     o.store,
		collector: o.collector,
		handler:   o.eventHandler,
		sessions:  make(map[Handle]*app.Session),
		nextID:    1,
	}, nil
}

// Connect creates a session grouping commands into static blocks of
// blockSize and returns its handle.
func (r *Registry) Connect(blockSize int) (Handle, error) {
	if blockSize < 1 {
		return 0, fmt.Errorf("%w: block size must be at least 1, got %d",
			domain.ErrInvalidConfig, blockSize)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, ErrClosed
	}
	h := r.nextID
	r.nextID++
	r.mu.Unlock()

	session, err := app.NewSession(app.SessionConfig{
		Name:         strconv.FormatUint(uint64(h), 10),
		BlockSize:    blockSize,
		FileWorkers:  r.config.FileWorkers,
		MaxLineBytes: r.config.MaxLineBytes,
	}, app.SessionDeps{
		Logger:    r.logger,
		Sink:      r.sink,
		Store:     r.store,
		Collector: r.collector,
		Emitter:   &sessionEvents{handle: h, reg: r, handler: r.handler},
	})
	if err != nil {
		return 0, err
	}
	r.collector.SessionOpened()

	r.mu.Lock()
	if r.closed {
		// Close ran while the session was being built.
		r.mu.Unlock()
		r.stop(h, session)
		return 0, ErrClosed
	}
	r.sessions[h] = session
	r.mu.Unlock()

	r.logger.Debug("connection opened",
		ports.Uint64("handle", uint64(h)),
		ports.Int("block_size", blockSize),
	)
	return h, nil
}

// Receive feeds bytes to the session behind h. Unknown handles are ignored.
// Oversized lines are dropped and logged; the connection stays usable.
func (r *Registry) Receive(h Handle, p []byte) {
	session := r.lookup(h)
	if session == nil {
		return
	}

	if err := session.Consume(p); err != nil {
		level := r.logger.Error
		if errors.Is(err, domain.ErrLineTooLong) {
			level = r.logger.Warn
		}
		level("receive failed",
			ports.Uint64("handle", uint64(h)),
			ports.Err(err),
		)
	}
}

// Disconnect removes the session behind h, drains it and writes its report.
// Unknown or already disconnected handles are ignored.
func (r *Registry) Disconnect(h Handle) {
	r.mu.Lock()
	session, ok := r.sessions[h]
	delete(r.sessions, h)
	r.mu.Unlock()

	if !ok {
		return
	}
	r.stop(h, session)
}

// Close disconnects every remaining session in handle order. Connect fails
// with ErrClosed afterwards. Close is idempotent.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	remaining := r.sessions
	r.sessions = make(map[Handle]*app.Session)
	r.mu.Unlock()

	handles := make([]Handle, 0, len(remaining))
	for h := range remaining {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	for _, h := range handles {
		r.stop(h, remaining[h])
	}
	return nil
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) lookup(h Handle) *app.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[h]
}

func (r *Registry) stop(h Handle, session *app.Session) {
	report, ok := session.StopAndLogMetrics()
	if !ok {
		return
	}

	files := report.FileTotal()
	r.logger.Info("connection closed",
		ports.Uint64("handle", uint64(h)),
		ports.Uint64("blocks", report.Reader.Blocks),
		ports.Uint64("commands", report.Reader.Commands),
		ports.Uint64("discarded", report.Reader.Discarded),
		ports.Uint64("rejected", report.Reader.Rejected),
		ports.Uint64("file_failures", files.Failed),
	)
}
