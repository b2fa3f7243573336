package modem

import (
	"io"
	"sync"
	"time"
)

// TestTransport is a scripted in-memory Transport for tests. Each call
// to Reply queues the response chunks for one future Write: when the
// engine writes a command, the next scripted reply becomes readable,
// one chunk per Read call, so tests can exercise partial and split
// deliveries. Writes with no scripted reply read nothing and drive the
// timeout path.
//
// Exported for use in tests.
type TestTransport struct {
	mu      sync.Mutex
	pending [][]byte
	script  [][][]byte
	writes  [][]byte
	flushed int
	closed  bool
}

// NewTestTransport creates an empty scripted transport.
func NewTestTransport() *TestTransport {
	return &TestTransport{}
}

// Reply queues the response chunks for the next unmatched Write.
func (t *TestTransport) Reply(chunks ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	exchange := make([][]byte, 0, len(chunks))
	for _, c := range chunks {
		exchange = append(exchange, []byte(c))
	}
	t.script = append(t.script, exchange)
}

// Inject makes data readable immediately, simulating unsolicited chip
// output or stale bytes from a prior exchange.
func (t *TestTransport) Inject(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, []byte(data))
}

// Writes returns every payload written so far.
func (t *TestTransport) Writes() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.writes))
	copy(out, t.writes)
	return out
}

// Flushed reports how many bytes ResetInputBuffer discarded.
func (t *TestTransport) Flushed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushed
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.writes = append(t.writes, append([]byte(nil), p...))
	if len(t.script) > 0 {
		t.pending = append(t.pending, t.script[0]...)
		t.script = t.script[1:]
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	if len(t.pending) == 0 {
		// A timed-out serial read returns no bytes and no error.
		return 0, nil
	}
	n := copy(p, t.pending[0])
	if n < len(t.pending[0]) {
		t.pending[0] = t.pending[0][n:]
	} else {
		t.pending = t.pending[1:]
	}
	return n, nil
}

func (t *TestTransport) SetReadTimeout(d time.Duration) error { return nil }

func (t *TestTransport) ResetInputBuffer() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, c := range t.pending {
		t.flushed += len(c)
	}
	t.pending = nil
	return nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
