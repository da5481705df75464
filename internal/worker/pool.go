// Package worker provides the batch-consuming pool that executes blocks
// against a job on a fixed number of goroutines.
//
// Workers drain the shared queue by swapping out everything pending under the
// lock and processing the local list with the lock released. A pool with one
// worker therefore runs blocks in submission order; with more workers only
// completeness is guaranteed.
package worker

import (
	"fmt"
	"sync"

	"github.com/bft-labs/bulkship/internal/domain"
	"github.com/bft-labs/bulkship/internal/metrics"
	"github.com/bft-labs/bulkship/internal/ports"
)

// JobContext identifies the worker executing a job.
type JobContext struct {
	Pool   string
	Worker int
}

// Job processes one block. Returned errors and panics are contained by the
// pool and counted as failures.
type Job func(jc JobContext, block domain.Block) error

// Pool runs a fixed set of workers that consume blocks from a shared queue.
type Pool struct {
	name      string
	job       Job
	logger    ports.Logger
	collector *metrics.Collector

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []domain.Block
	stopped bool

	// one slot per worker, written only by its owner
	stats []domain.WorkerMetrics
	wg    sync.WaitGroup
}

// Option configures optional behavior of a Pool.
type Option func(*Pool)

// WithLogger sets the logger used to report job failures.
func WithLogger(logger ports.Logger) Option {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithCollector records processed blocks in Prometheus.
func WithCollector(c *metrics.Collector) Option {
	return func(p *Pool) {
		p.collector = c
	}
}

// New creates a pool with the given number of workers and starts them.
func New(name string, workers int, job Job, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: pool %s needs at least one worker, got %d",
			domain.ErrInvalidConfig, name, workers)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: pool %s has no job", domain.ErrInvalidConfig, name)
	}

	p := &Pool{
		name:   name,
		job:    job,
		logger: noopLogger{},
		stats:  make([]domain.WorkerMetrics, workers),
	}
	p.cond = sync.NewCond(&p.mu)
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run(i)
	}

	return p, nil
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.stats)
}

// Submit enqueues a block and wakes one idle worker.
// It never waits for a worker. Returns ErrPoolStopped after Stop.
func (p *Pool) Submit(block domain.Block) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrPoolStopped, p.name)
	}
	p.queue = append(p.queue, block)
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// OnBlock implements ports.BlockSubscriber.
func (p *Pool) OnBlock(block domain.Block) error {
	return p.Submit(block)
}

// Stop marks the pool terminating and wakes every worker.
// Blocks already queued are still processed. Stop does not wait; use Join.
func (p *Pool) Stop() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	p.cond.Broadcast()
}

// Join blocks until every worker has exited. Safe to call more than once.
func (p *Pool) Join() {
	p.wg.Wait()
}

// Metrics returns a copy of the per-worker counters.
// The values are only stable after Join has returned.
func (p *Pool) Metrics() []domain.WorkerMetrics {
	out := make([]domain.WorkerMetrics, len(p.stats))
	copy(out, p.stats)
	return out
}

// Total returns the sum of all per-worker counters. Call after Join.
func (p *Pool) Total() domain.WorkerMetrics {
	var total domain.WorkerMetrics
	for _, m := range p.stats {
		total = total.Add(m)
	}
	return total
}

func (p *Pool) run(id int) {
	defer p.wg.Done()

	stats := &p.stats[id]
	jc := JobContext{Pool: p.name, Worker: id}

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		local := p.queue
		p.queue = nil
		stopped := p.stopped
		p.mu.Unlock()

		for _, block := range local {
			p.execute(jc, stats, block)
		}

		if stopped && len(local) == 0 {
			return
		}
	}
}

func (p *Pool) execute(jc JobContext, stats *domain.WorkerMetrics, block domain.Block) {
	err := p.safeJob(jc, block)

	stats.Blocks++
	stats.Commands += uint64(block.Len())
	if err != nil {
		stats.Failed++
		p.logger.Error("block job failed",
			ports.String("pool", p.name),
			ports.Int("worker", jc.Worker),
			ports.Uint64("seq", block.Seq),
			ports.Err(err),
		)
	}

	p.collector.ObserveBlock(p.name, block.Len(), err != nil)
}

func (p *Pool) safeJob(jc JobContext, block domain.Block) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panic: %v", r)
		}
	}()
	return p.job(jc, block)
}

// noopLogger discards all log messages.
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...ports.Field) {}
func (noopLogger) Info(msg string, fields ...ports.Field)  {}
func (noopLogger) Warn(msg string, fields ...ports.Field)  {}
func (noopLogger) Error(msg string, fields ...ports.Field) {}

var _ ports.BlockSubscriber = (*Pool)(nil)
