package spool

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logAdapter "github.com/bft-labs/bulkship/internal/adapters/log"
	"github.com/bft-labs/bulkship/pkg/bulkship"
)

type memSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *memSink) Log(msg string) {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
}

func (s *memSink) Reports() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if strings.Contains(m, "] Metrics\n") {
			n++
		}
	}
	return n
}

func (s *memSink) Contains(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

type fixture struct {
	spool string
	out   string
	sink  *memSink
	reg   *bulkship.Registry

	cancel context.CancelFunc
	done   chan error
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		spool: t.TempDir(),
		out:   t.TempDir(),
		sink:  &memSink{},
	}
	reg, err := bulkship.New(bulkship.Config{FileWorkers: 1, OutputDir: f.out},
		bulkship.WithSink(f.sink))
	require.NoError(t, err)
	f.reg = reg
	t.Cleanup(func() { _ = reg.Close() })
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()

	w := New(Config{
		Dir:           f.spool,
		BlockSize:     2,
		ChunkSize:     3,
		DebounceDelay: 20 * time.Millisecond,
	}, f.reg, logAdapter.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan error, 1)
	go func() { f.done <- w.Run(ctx) }()

	t.Cleanup(f.stop)
}

func (f *fixture) stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
	f.cancel = nil
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.spool, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWatcher_IngestsExistingFiles(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "a.cmd", "x\ny\nz\n")

	f.start(t)

	require.Eventually(t, func() bool {
		_, err := os.Stat(path + DoneSuffix)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, f.sink.Reports())
	assert.True(t, f.sink.Contains("bulk: x, y"))
	assert.True(t, f.sink.Contains("bulk: z"))

	entries, err := os.ReadDir(f.out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWatcher_IngestsNewFiles(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	// let the watch register before dropping files
	time.Sleep(50 * time.Millisecond)
	first := f.write(t, "first.cmd", "a\nb\n")
	second := f.write(t, "second.cmd", "{\nc\nd\ne\n}\n")

	require.Eventually(t, func() bool {
		_, err1 := os.Stat(first + DoneSuffix)
		_, err2 := os.Stat(second + DoneSuffix)
		return err1 == nil && err2 == nil
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, f.sink.Reports())
	assert.True(t, f.sink.Contains("bulk: c, d, e"))
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	f := newFixture(t)
	other := f.write(t, "notes.txt", "a\n")
	f.start(t)

	time.Sleep(50 * time.Millisecond)
	f.write(t, "also.log", "b\n")
	marker := f.write(t, "marker.cmd", "c\n")

	require.Eventually(t, func() bool {
		_, err := os.Stat(marker + DoneSuffix)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	_, err := os.Stat(other)
	assert.NoError(t, err, "non-spool file must be left alone")
	assert.Equal(t, 1, f.sink.Reports())
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	f.cancel()
	select {
	case err := <-f.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
	f.cancel = nil
}
