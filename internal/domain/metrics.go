package domain

// ReaderMetrics are the aggregate counts of a connection's parser.
type ReaderMetrics struct {
	// Lines is the number of complete lines fed to the parser, markers included.
	Lines uint64

	// Commands is the number of commands that ended up in an emitted block.
	Commands uint64

	// Blocks is the number of emitted blocks.
	Blocks uint64

	// Discarded is the number of commands dropped with an unterminated
	// dynamic block at end of stream.
	Discarded uint64

	// Rejected is the number of lines dropped for exceeding the length limit.
	Rejected uint64
}

// WorkerMetrics are the counters of a single pool worker.
// Each instance is written only by the worker that owns it.
type WorkerMetrics struct {
	// Blocks is the number of blocks the worker attempted.
	Blocks uint64

	// Commands is the number of commands in those blocks.
	Commands uint64

	// Failed is the number of blocks whose job returned an error or panicked.
	Failed uint64
}

// Succeeded returns the number of blocks processed without error.
func (m WorkerMetrics) Succeeded() uint64 {
	return m.Blocks - m.Failed
}

// Add returns the element-wise sum of m and o.
func (m WorkerMetrics) Add(o WorkerMetrics) WorkerMetrics {
	return WorkerMetrics{
		Blocks:   m.Blocks + o.Blocks,
		Commands: m.Commands + o.Commands,
		Failed:   m.Failed + o.Failed,
	}
}
