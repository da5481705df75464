package ids

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestNew_Unique(t *testing.T) {
	const n = 1000
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, n)
		wg   sync.WaitGroup
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := New()
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}

func TestNewAt_EncodesTime(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_123)
	id, err := ulid.Parse(NewAt(at))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := ulid.Time(id.Time()); !got.Equal(at) {
		t.Errorf("time = %v, want %v", got, at)
	}
}

func TestNewAt_MonotonicWithinMillisecond(t *testing.T) {
	at := time.Now()
	a := NewAt(at)
	b := NewAt(at)
	if a >= b {
		t.Errorf("ids not increasing: %s >= %s", a, b)
	}
}
