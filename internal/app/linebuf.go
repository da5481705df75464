package app

import "bytes"

// lineBuffer splits a byte stream into lines. It grows as needed up to max
// bytes per line; a longer line is dropped whole and reported once, however
// the input was chunked.
type lineBuffer struct {
	buf      []byte
	max      int
	skipping bool
}

func newLineBuffer(max int) *lineBuffer {
	initial := max
	if initial > 1024 {
		initial = 1024
	}
	return &lineBuffer{buf: make([]byte, 0, initial), max: max}
}

// feed appends p and calls emit for every completed line. It returns the
// number of lines rejected for length and the first error from emit.
func (b *lineBuffer) feed(p []byte, emit func(string) error) (int, error) {
	var (
		rejected int
		firstErr error
	)

	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		chunk := p
		if i >= 0 {
			chunk = p[:i]
		}

		if !b.skipping {
			if len(b.buf)+len(chunk) > b.max {
				b.skipping = true
				b.buf = b.buf[:0]
				rejected++
			} else {
				b.buf = append(b.buf, chunk...)
			}
		}

		if i < 0 {
			break
		}
		p = p[i+1:]

		if b.skipping {
			b.skipping = false
			continue
		}
		line := string(b.buf)
		b.buf = b.buf[:0]
		if err := emit(line); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return rejected, firstErr
}

// flush emits the unterminated tail, if any, as a final line.
func (b *lineBuffer) flush(emit func(string) error) error {
	if b.skipping {
		b.skipping = false
		return nil
	}
	if len(b.buf) == 0 {
		return nil
	}
	line := string(b.buf)
	b.buf = b.buf[:0]
	return emit(line)
}
