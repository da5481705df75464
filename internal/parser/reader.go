// Package parser turns lines of text into commands and groups them into blocks.
//
// Segmentation follows two rules. In static mode commands are collected until
// the block size is reached. A "{" line opens a dynamic block that ends at the
// matching "}" regardless of size; nested markers only change the depth.
// Completed blocks are pushed to every subscriber, in registration order, on
// the caller's goroutine.
package parser

import (
	"fmt"
	"time"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ports"
)

// Reader segments a stream of lines into blocks. It is not safe for
// concurrent use; the owning session serializes access.
type Reader struct {
	blockSize   int
	subscribers []ports.BlockSubscriber
	now         func() time.Time

	pending []domain.Command
	opened  time.Time
	depth   int
	seq     uint64
	closed  bool

	metrics domain.ReaderMetrics
}

// NewReader creates a reader that emits static blocks of blockSize commands.
func NewReader(blockSize int) (*Reader, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d",
			domain.ErrInvalidConfig, blockSize)
	}
	return &Reader{
		blockSize: blockSize,
		now:       time.Now,
		pending:   make([]domain.Command, 0, blockSize),
	}, nil
}

// Subscribe registers s to receive every completed block.
func (r *Reader) Subscribe(s ports.BlockSubscriber) {
	r.subscribers = append(r.subscribers, s)
}

// Consume feeds one line, without its terminator, to the reader.
// It returns the first subscriber error, if any; every subscriber is still
// offered the block.
func (r *Reader) Consume(line string) error {
	if r.closed {
		return nil
	}
	r.metrics.Lines++

	cmd := domain.ParseCommand(line)
	switch cmd.String() {
	case domain.BlockOpen:
		r.depth++
		if r.depth == 1 {
			return r.flush()
		}
		return nil
	case domain.BlockClose:
		if r.depth == 0 {
			return nil
		}
		r.depth--
		if r.depth == 0 {
			return r.flush()
		}
		return nil
	}

	if cmd.Empty() {
		return nil
	}

	if len(r.pending) == 0 {
		r.opened = r.now()
	}
	r.pending = append(r.pending, cmd)

	if r.depth == 0 && len(r.pending) >= r.blockSize {
		return r.flush()
	}
	return nil
}

// Close signals end of stream. A pending static block is emitted even if it
// is short; an unterminated dynamic block is discarded. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	if r.depth > 0 {
		r.metrics.Discarded += uint64(len(r.pending))
		r.pending = r.pending[:0]
		r.depth = 0
		return nil
	}
	return r.flush()
}

// Metrics returns the aggregate counts. Final once Close has been called.
func (r *Reader) Metrics() domain.ReaderMetrics {
	return r.metrics
}

func (r *Reader) flush() error {
	if len(r.pending) == 0 {
		return nil
	}

	r.seq++
	block := domain.NewBlock(r.seq, r.opened, r.pending)
	r.pending = r.pending[:0]

	r.metrics.Blocks++
	r.metrics.Commands += uint64(block.Len())

	var firstErr error
	for _, s := range r.subscribers {
		if err := s.OnBlock(block); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
