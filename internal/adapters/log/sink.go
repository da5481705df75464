package log

import (
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bft-labs/bulkship/internal/ports"
)

// WriterSink implements ports.ReportSink on top of an io.Writer.
// Each message is written with a single Write call under a mutex, so
// concurrent messages never interleave.
type WriterSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriterSink creates a sink writing to out.
func NewWriterSink(out io.Writer) *WriterSink {
	return &WriterSink{out: out}
}

// Log writes msg followed by a newline unless it already ends with one.
func (s *WriterSink) Log(msg string) {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.out, msg)
}

// ZerologSink implements ports.ReportSink by emitting one info event per message.
type ZerologSink struct {
	logger zerolog.Logger
}

// NewZerologSink creates a sink that records messages through logger.
func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

// Log records msg as a single event.
func (s *ZerologSink) Log(msg string) {
	s.logger.Info().Msg(strings.TrimSuffix(msg, "\n"))
}

var (
	_ ports.ReportSink = (*WriterSink)(nil)
	_ ports.ReportSink = (*ZerologSink)(nil)
)
