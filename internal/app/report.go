package app

import (
	"fmt"
	"strings"

	"github.com/bft-labs/bulkship/internal/domain"
)

// Report is the final accounting of a session, rendered once at shutdown.
type Report struct {
	Session string
	Reader  domain.ReaderMetrics
	Log     domain.WorkerMetrics
	Files   []domain.WorkerMetrics
}

// FileTotal sums the counters of every file worker.
func (r Report) FileTotal() domain.WorkerMetrics {
	var total domain.WorkerMetrics
	for _, m := range r.Files {
		total = total.Add(m)
	}
	return total
}

// String renders the report as a multi-line message.
func (r Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] Metrics\n", r.Session)
	b.WriteString("\tReader:\n")
	fmt.Fprintf(&b, "\t\tlines - %d; commands - %d; blocks - %d; discarded - %d; rejected - %d\n",
		r.Reader.Lines, r.Reader.Commands, r.Reader.Blocks, r.Reader.Discarded, r.Reader.Rejected)

	b.WriteString("\tLog:\n")
	fmt.Fprintf(&b, "\t\t%s\n", workerLine(r.Log))

	b.WriteString("\tFiles:\n")
	for i, m := range r.Files {
		fmt.Fprintf(&b, "\t#%d\t%s\n", i, workerLine(m))
	}

	return b.String()
}

func workerLine(m domain.WorkerMetrics) string {
	return fmt.Sprintf("blocks - %d; commands - %d; failed - %d", m.Blocks, m.Commands, m.Failed)
}
