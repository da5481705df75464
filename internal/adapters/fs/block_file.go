package fs

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/ids"
	"github.com/bft-labs/bulkship/internal/ports"
)

const (
	blockFilePrefix = "bulk_"
	blockFileSuffix = ".log"
)

// BlockFileStore implements ports.BlockStore by writing one file per block.
type BlockFileStore struct {
	dir string
}

// NewBlockFileStore creates a new BlockFileStore rooted at dir.
// The directory is created on first write.
func NewBlockFileStore(dir string) *BlockFileStore {
	return &BlockFileStore{dir: dir}
}

// Write stores the block with one command rendering per line.
// Uses atomic write (write to temp file, then rename) so a failed write never
// leaves a partial file under the final name.
func (s *BlockFileStore) Write(ctx context.Context, block domain.Block, meta ports.WriteMeta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Ensure directory exists
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(s.dir, s.fileName(block, meta))
	tmp := path + ".tmp"

	if err := writeLines(tmp, block.Values()); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	// Atomic rename
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename block file: %w", err)
	}
	return path, nil
}

// fileName derives a name unique across workers, sessions and runs: the ULID
// carries the wall clock and is strictly increasing within the process.
func (s *BlockFileStore) fileName(block domain.Block, meta ports.WriteMeta) string {
	return fmt.Sprintf("%s%s_%s_%d_w%d%s",
		blockFilePrefix, ids.New(), meta.Session, block.Seq, meta.Worker, blockFileSuffix)
}

func writeLines(path string, lines []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open block file: %w", err)
	}

	w := bufio.NewWriter(f)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			f.Close()
			return fmt.Errorf("write block file: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			f.Close()
			return fmt.Errorf("write block file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush block file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync block file: %w", err)
	}
	return f.Close()
}

// Ensure BlockFileStore implements ports.BlockStore.
var _ ports.BlockStore = (*BlockFileStore)(nil)
