package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/metrics"
	"github.com/bft-labs/bulkship/internal/parser"
	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/internal/worker"
)

// Pool names used in logs, metrics and reports.
const (
	LogPool  = "log"
	FilePool = "file"
)

// DefaultMaxLineBytes is the longest accepted input line.
const DefaultMaxLineBytes = 64 << 10

// SessionConfig contains configuration for one connection.
type SessionConfig struct {
	// Name identifies the session in logs, reports and file names.
	Name string

	// BlockSize is the number of commands per static block.
	BlockSize int

	// FileWorkers is the number of goroutines writing block files.
	FileWorkers int

	// MaxLineBytes bounds a single input line. Zero means DefaultMaxLineBytes.
	MaxLineBytes int
}

// SessionDeps are the collaborators of a session.
type SessionDeps struct {
	Logger    ports.Logger
	Sink      ports.ReportSink
	Store     ports.BlockStore
	Collector *metrics.Collector
	Emitter   EventEmitter
}

// Session turns one connection's byte stream into blocks and fans every block
// out to an ordered logging pool and a concurrent file-writing pool.
type Session struct {
	name      string
	logger    ports.Logger
	sink      ports.ReportSink
	store     ports.BlockStore
	collector *metrics.Collector

	// mu guards lines, reader, rejected and the Active -> Draining transition.
	mu        sync.Mutex
	lifecycle *Lifecycle
	lines     *lineBuffer
	reader    *parser.Reader
	rejected  uint64

	logPool  *worker.Pool
	filePool *worker.Pool
}

// NewSession creates a session and starts its worker pools.
func NewSession(cfg SessionConfig, deps SessionDeps) (*Session, error) {
	if cfg.MaxLineBytes == 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	if cfg.MaxLineBytes < 0 {
		return nil, fmt.Errorf("%w: max line bytes must be positive, got %d",
			domain.ErrInvalidConfig, cfg.MaxLineBytes)
	}
	if deps.Sink == nil || deps.Store == nil {
		return nil, fmt.Errorf("%w: session needs a sink and a store", domain.ErrInvalidConfig)
	}
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}

	reader, err := parser.NewReader(cfg.BlockSize)
	if err != nil {
		return nil, err
	}

	s := &Session{
		name:      cfg.Name,
		logger:    deps.Logger,
		sink:      deps.Sink,
		store:     deps.Store,
		collector: deps.Collector,
		lifecycle: NewLifecycle(cfg.Name, deps.Logger, deps.Emitter),
		lines:     newLineBuffer(cfg.MaxLineBytes),
		reader:    reader,
	}

	poolOpts := []worker.Option{
		worker.WithLogger(deps.Logger),
		worker.WithCollector(deps.Collector),
	}

	s.logPool, err = worker.New(LogPool, 1, s.logJob, poolOpts...)
	if err != nil {
		return nil, err
	}
	s.filePool, err = worker.New(FilePool, cfg.FileWorkers, s.fileJob, poolOpts...)
	if err != nil {
		s.logPool.Stop()
		s.logPool.Join()
		return nil, err
	}

	// Registration order is dispatch order.
	reader.Subscribe(s.logPool)
	reader.Subscribe(s.filePool)

	return s, nil
}

// Consume feeds raw bytes to the session. Lines are handed to the parser in
// arrival order; completed blocks are submitted to both pools.
// Consume is a no-op once shutdown has begun. A line longer than the limit is
// dropped and reported as ErrLineTooLong; the session keeps working.
func (s *Session) Consume(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.Accepting() {
		return nil
	}
	return s.feed(p)
}

// feed must be called with s.mu held or after the session left StateActive.
func (s *Session) feed(p []byte) error {
	rejected, err := s.lines.feed(p, s.reader.Consume)
	if rejected == 0 {
		return err
	}

	s.rejected += uint64(rejected)
	for i := 0; i < rejected; i++ {
		s.collector.LineRejected()
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: session %s dropped %d line(s) over %d bytes",
		domain.ErrLineTooLong, s.name, rejected, s.lines.max)
}

// StopAndLogMetrics flushes buffered input, drains both pools and writes one
// metrics report to the sink. Only the first call does the work and returns
// true; later or concurrent calls return immediately with false.
func (s *Session) StopAndLogMetrics() (Report, bool) {
	s.mu.Lock()
	previous, err := s.lifecycle.transition(StateDraining)
	s.mu.Unlock()
	if err != nil {
		return Report{}, false
	}
	s.lifecycle.announce(previous, StateDraining, "stop requested")

	// Consume is locked out from here on; this goroutine owns lines and reader.
	if err := s.lines.flush(s.reader.Consume); err != nil {
		s.logger.Error("flush final line", ports.String("session", s.name), ports.Err(err))
	}
	if err := s.reader.Close(); err != nil {
		s.logger.Error("flush final block", ports.String("session", s.name), ports.Err(err))
	}

	s.logPool.Stop()
	s.filePool.Stop()
	s.logPool.Join()
	s.filePool.Join()

	report := s.report()
	s.sink.Log(report.String())

	if err := s.lifecycle.TransitionTo(StateStopped, "drained"); err != nil {
		s.logger.Error("finish session", ports.String("session", s.name), ports.Err(err))
	}

	return report, true
}

func (s *Session) report() Report {
	reader := s.reader.Metrics()
	reader.Rejected = s.rejected

	return Report{
		Session: s.name,
		Reader:  reader,
		Log:     s.logPool.Total(),
		Files:   s.filePool.Metrics(),
	}
}

// logJob renders the block on one line and records it in the sink.
func (s *Session) logJob(_ worker.JobContext, block domain.Block) error {
	s.sink.Log(fmt.Sprintf("[%s] bulk: %s", s.name, block.Join(", ")))
	return nil
}

// fileJob persists the block through the store.
func (s *Session) fileJob(jc worker.JobContext, block domain.Block) error {
	path, err := s.store.Write(context.Background(), block, ports.WriteMeta{
		Session: s.name,
		Worker:  jc.Worker,
	})
	if err != nil {
		return fmt.Errorf("write block %d of session %s: %w", block.Seq, s.name, err)
	}

	s.logger.Debug("block written",
		ports.String("session", s.name),
		ports.Uint64("seq", block.Seq),
		ports.Int("commands", block.Len()),
		ports.String("path", path),
	)
	return nil
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}
