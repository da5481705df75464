package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bft-labs/bulkship/internal/ports"
)

func TestWriterSink_NoInterleaving(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Log("line one\nline two")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2*n {
		t.Fatalf("got %d lines, want %d", len(lines), 2*n)
	}
	for i := 0; i < len(lines); i += 2 {
		if lines[i] != "line one" || lines[i+1] != "line two" {
			t.Fatalf("interleaved output at %d: %q %q", i, lines[i], lines[i+1])
		}
	}
}

func TestWriterSink_KeepsTrailingNewline(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf)
	sink.Log("report\n")

	if got := buf.String(); got != "report\n" {
		t.Errorf("output = %q, want %q", got, "report\n")
	}
}

func TestZerologSink_OneEventPerMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf))

	sink.Log("[0] Metrics\n\tReader:\n")

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not one JSON event: %v (%q)", err, buf.String())
	}
	if event["message"] != "[0] Metrics\n\tReader:" {
		t.Errorf("message = %q", event["message"])
	}
	if event["level"] != "info" {
		t.Errorf("level = %q, want info", event["level"])
	}
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologAdapterWithLogger(zerolog.New(&buf))

	logger.Warn("line too long",
		ports.String("session", "3"),
		ports.Int("limit", 10),
		ports.Uint64("seq", 4),
		ports.Err(errors.New("boom")),
	)

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	checks := map[string]interface{}{
		"level":   "warn",
		"message": "line too long",
		"session": "3",
		"limit":   float64(10),
		"seq":     float64(4),
		"error":   "boom",
	}
	for k, want := range checks {
		if event[k] != want {
			t.Errorf("%s = %v, want %v", k, event[k], want)
		}
	}
}

func TestZerologAdapter_DisabledLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	logger.Debug("hidden", ports.String("k", "v"))
	logger.Info("hidden")

	if buf.Len() != 0 {
		t.Errorf("disabled levels wrote %q", buf.String())
	}
}
