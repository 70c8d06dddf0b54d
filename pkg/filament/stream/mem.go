package stream

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// Mem is an in-memory Stream fed with a fixed byte sequence. Reads drain the
// input, writes accumulate into a buffer that the test (or embedder) can
// inspect afterwards. It exists so that the wire-level behavior of the
// driver can be pinned byte-for-byte without opening sockets.
type Mem struct {
	mu          sync.Mutex
	in          *bytes.Reader
	out         bytes.Buffer
	peer        string
	closed      bool
	nonblocking bool
}

// timeoutError satisfies net.Error for poll expiry on a Mem stream.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// NewMem creates a Mem stream that will serve the given input bytes.
func NewMem(input []byte) *Mem {
	return &Mem{in: bytes.NewReader(input), peer: "mem:0"}
}

// NewMemString is NewMem over a string.
func NewMemString(input string) *Mem {
	return NewMem([]byte(input))
}

// Written returns a copy of everything written to the stream so far.
func (m *Mem) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.out.Bytes()...)
}

// WrittenString returns Written as a string.
func (m *Mem) WrittenString() string { return string(m.Written()) }

// Closed reports whether Close has been called.
func (m *Mem) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Mem) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.EOF
	}
	if m.nonblocking && m.in.Len() == 0 {
		return 0, timeoutError{}
	}
	return m.in.Read(p)
}

func (m *Mem) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("stream: write on closed Mem")
	}
	return m.out.Write(p)
}

func (m *Mem) Peer() string { return m.peer }

func (m *Mem) SetTimeout(time.Duration) error      { return nil }
func (m *Mem) SetReadTimeout(time.Duration) error  { return nil }
func (m *Mem) SetWriteTimeout(time.Duration) error { return nil }

func (m *Mem) SetNonblocking(on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nonblocking = on
	return nil
}

func (m *Mem) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
