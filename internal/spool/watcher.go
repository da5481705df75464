// Package spool turns command files dropped into a directory into
// connections. Each "*.cmd" file is streamed through its own connection and
// renamed to "*.cmd.done" once its report has been written.
package spool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/bulkship/internal/ports"
	"github.com/bft-labs/bulkship/pkg/bulkship"
)

// Suffixes of pending and ingested spool files.
const (
	PendingSuffix = ".cmd"
	DoneSuffix    = ".done"
)

// Ingestor is the part of the connection registry the watcher drives.
type Ingestor interface {
	Connect(blockSize int) (bulkship.Handle, error)
	Receive(h bulkship.Handle, p []byte)
	Disconnect(h bulkship.Handle)
}

// Config holds configuration options for the spool watcher.
type Config struct {
	// Dir is the watched directory. It is created if missing.
	Dir string

	// BlockSize is passed to Connect for every file.
	BlockSize int

	// ChunkSize is the read size used to stream a file. Default: 4096
	ChunkSize int

	// DebounceDelay is how long a file must stay quiet before it is ingested.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// Watcher ingests spool files until its context is canceled.
type Watcher struct {
	dir           string
	blockSize     int
	chunkSize     int
	debounceDelay time.Duration

	ingestor Ingestor
	logger   ports.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer

	// owned by the Run goroutine
	processed map[string]bool
	ready     chan string
}

// New creates a watcher. Defaults are applied to zero-valued settings.
func New(cfg Config, ingestor Ingestor, logger ports.Logger) *Watcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Watcher{
		dir:           cfg.Dir,
		blockSize:     cfg.BlockSize,
		chunkSize:     cfg.ChunkSize,
		debounceDelay: cfg.DebounceDelay,
		ingestor:      ingestor,
		logger:        logger,
		timers:        make(map[string]*time.Timer),
		processed:     make(map[string]bool),
		ready:         make(chan string, 16),
	}
}

// Run ingests files already in the directory, then every new or rewritten
// spool file, until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create spool dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	defer w.stopTimers()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	// Files dropped before the watch was registered.
	existing, err := w.scan()
	if err != nil {
		return err
	}
	for _, path := range existing {
		w.ingest(path)
	}

	w.logger.Info("spool watcher started", ports.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("spool watcher stopped", ports.String("dir", w.dir))
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPending(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounce(ctx, event.Name)

		case path := <-w.ready:
			w.ingest(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("spool watcher error", ports.Err(err))
		}
	}
}

// debounce schedules path for ingestion once writes to it stop.
func (w *Watcher) debounce(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case w.ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// scan lists pending files in name order.
func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("read spool dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isPending(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// ingest streams one file through a fresh connection. Each path is ingested
// at most once per run.
func (w *Watcher) ingest(path string) {
	if w.processed[path] {
		return
	}

	err := w.stream(path)
	if errors.Is(err, os.ErrNotExist) {
		// renamed or removed before the debounce fired
		return
	}
	w.processed[path] = true
	if err != nil {
		w.logger.Error("ingest spool file", ports.String("path", path), ports.Err(err))
		return
	}

	if err := os.Rename(path, path+DoneSuffix); err != nil {
		w.logger.Error("mark spool file done", ports.String("path", path), ports.Err(err))
		return
	}
	w.logger.Debug("spool file ingested", ports.String("path", path))
}

func (w *Watcher) stream(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := w.ingestor.Connect(w.blockSize)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer w.ingestor.Disconnect(h)

	buf := make([]byte, w.chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			w.ingestor.Receive(h, buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
	}
}

func isPending(name string) bool {
	return strings.HasSuffix(name, PendingSuffix)
}
