package logger

import (
	"strings"
	"sync"
)

// TailBuffer keeps the last cap bytes written to it. The supervisor feeds
// the backend's combined stdout/stderr through one so failure diagnostics
// can include the most recent output without unbounded memory use.
type TailBuffer struct {
	mu  sync.Mutex
	buf []byte
	cap int
}

// NewTailBuffer returns a TailBuffer retaining at most capBytes bytes.
func NewTailBuffer(capBytes int) *TailBuffer {
	if capBytes <= 0 {
		capBytes = 8 * 1024
	}
	return &TailBuffer{cap: capBytes}
}

func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(p) >= t.cap {
		t.buf = append(t.buf[:0], p[len(p)-t.cap:]...)
		return len(p), nil
	}
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.cap; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

// String returns the retained tail, trimmed of leading partial line noise.
func (t *TailBuffer) String() string {
	t.mu.Lock()
	s := string(t.buf)
	t.mu.Unlock()
	if i := strings.IndexByte(s, '\n'); i >= 0 && i+1 < len(s) && len(s) == t.cap {
		// drop the first partial line when the buffer has wrapped
		s = s[i+1:]
	}
	return strings.TrimRight(s, "\n")
}

// Reset discards retained output. Called on each new backend run.
func (t *TailBuffer) Reset() {
	t.mu.Lock()
	t.buf = t.buf[:0]
	t.mu.Unlock()
}
