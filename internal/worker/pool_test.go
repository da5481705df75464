package worker

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/metrics"
)

func block(seq uint64, values ...string) domain.Block {
	cmds := make([]domain.Command, len(values))
	for i, v := range values {
		cmds[i] = domain.ParseCommand(v)
	}
	return domain.NewBlock(seq, time.Now(), cmds)
}

// recorder collects the sequence numbers seen by a job.
type recorder struct {
	mu   sync.Mutex
	seqs []uint64
}

func (r *recorder) job(_ JobContext, b domain.Block) error {
	r.mu.Lock()
	r.seqs = append(r.seqs, b.Seq)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Seqs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New("file", 0, func(JobContext, domain.Block) error { return nil })
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = New("file", 1, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestPool_SingleWorkerPreservesOrder(t *testing.T) {
	rec := &recorder{}
	p, err := New("log", 1, rec.job)
	require.NoError(t, err)

	const n = 500
	for i := uint64(1); i <= n; i++ {
		require.NoError(t, p.Submit(block(i, "cmd")))
	}
	p.Stop()
	p.Join()

	seqs := rec.Seqs()
	require.Len(t, seqs, n)
	for i, s := range seqs {
		assert.Equal(t, uint64(i+1), s)
	}
}

func TestPool_MultiWorkerCompleteness(t *testing.T) {
	rec := &recorder{}
	p, err := New("file", 4, rec.job)
	require.NoError(t, err)

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	for g := 0; g < producers; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				seq := uint64(g*perProducer + i + 1)
				assert.NoError(t, p.Submit(block(seq, "a", "b")))
			}
		}(g)
	}
	wg.Wait()
	p.Stop()
	p.Join()

	seqs := rec.Seqs()
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	require.Len(t, seqs, producers*perProducer)
	for i, s := range seqs {
		require.Equal(t, uint64(i+1), s, "block lost or duplicated")
	}

	total := p.Total()
	assert.Equal(t, uint64(producers*perProducer), total.Blocks)
	assert.Equal(t, uint64(2*producers*perProducer), total.Commands)
	assert.Zero(t, total.Failed)
}

func TestPool_StopDrainsQueuedBlocks(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{}, 1)
	rec := &recorder{}

	p, err := New("file", 1, func(jc JobContext, b domain.Block) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-gate
		return rec.job(jc, b)
	})
	require.NoError(t, err)

	require.NoError(t, p.Submit(block(1)))
	<-started
	// worker is busy with block 1; these stay queued
	for i := uint64(2); i <= 5; i++ {
		require.NoError(t, p.Submit(block(i)))
	}
	p.Stop()
	close(gate)
	p.Join()

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, rec.Seqs())
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p, err := New("file", 2, func(JobContext, domain.Block) error { return nil })
	require.NoError(t, err)

	p.Stop()
	err = p.Submit(block(1, "x"))
	assert.ErrorIs(t, err, domain.ErrPoolStopped)

	p.Join()
	assert.Zero(t, p.Total().Blocks)
}

func TestPool_StopAndJoinIdempotent(t *testing.T) {
	p, err := New("file", 3, func(JobContext, domain.Block) error { return nil })
	require.NoError(t, err)

	p.Stop()
	p.Stop()
	p.Join()
	p.Join()
}

func TestPool_JobFailuresAreContained(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.New(reg)
	require.NoError(t, err)

	p, err := New("file", 2, func(_ JobContext, b domain.Block) error {
		switch b.Seq % 3 {
		case 0:
			return errors.New("disk full")
		case 1:
			panic("boom")
		}
		return nil
	}, WithCollector(c))
	require.NoError(t, err)

	for i := uint64(1); i <= 9; i++ {
		require.NoError(t, p.Submit(block(i, "x")))
	}
	p.Stop()
	p.Join()

	total := p.Total()
	assert.Equal(t, uint64(9), total.Blocks)
	assert.Equal(t, uint64(6), total.Failed)
	assert.Equal(t, uint64(3), total.Succeeded())

	want := `
# HELP bulkship_pool_blocks_total Blocks processed by worker pools, by pool and outcome
# TYPE bulkship_pool_blocks_total counter
bulkship_pool_blocks_total{outcome="failed",pool="file"} 6
bulkship_pool_blocks_total{outcome="ok",pool="file"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "bulkship_pool_blocks_total"))
}

func TestPool_MetricsPerWorker(t *testing.T) {
	p, err := New("file", 3, func(jc JobContext, _ domain.Block) error {
		if jc.Pool != "file" {
			return fmt.Errorf("unexpected pool %q", jc.Pool)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, p.Size())

	for i := uint64(1); i <= 30; i++ {
		require.NoError(t, p.OnBlock(block(i, "a")))
	}
	p.Stop()
	p.Join()

	per := p.Metrics()
	require.Len(t, per, 3)
	var sum uint64
	for _, m := range per {
		sum += m.Blocks
		assert.Zero(t, m.Failed)
	}
	assert.Equal(t, uint64(30), sum)
}
