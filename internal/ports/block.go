package ports

import (
	"context"

	"github.com/bft-labs/bulkship/internal/domain"
)

// BlockSubscriber accepts blocks completed by the parser.
// OnBlock is called synchronously on the producer goroutine and must not block
// on downstream processing.
type BlockSubscriber interface {
	OnBlock(block domain.Block) error
}

// WriteMeta identifies who is writing a block.
type WriteMeta struct {
	// Session is the name of the connection the block came from.
	Session string

	// Worker is the index of the pool worker executing the write.
	Worker int
}

// BlockStore persists blocks, one artifact per block.
type BlockStore interface {
	// Write stores every command of the block, one rendering per line, and
	// returns the location of the artifact. The artifact is complete and
	// closed when Write returns nil.
	Write(ctx context.Context, block domain.Block, meta WriteMeta) (string, error)
}
