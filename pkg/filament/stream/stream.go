// Package stream abstracts the byte stream under a connection so the
// protocol layers never see whether they are talking to TCP, a Unix socket
// or a TLS wrapper supplied by the embedder.
package stream

import (
	"io"
	"net"
	"time"
)

// Stream is a bidirectional byte stream with deadline control.
//
// A Stream is owned by exactly one connection driver at a time. The
// nonblocking toggle turns subsequent reads into polls that fail with a
// timeout error instead of waiting for bytes; the websocket layer uses it to
// probe for a frame without committing to a blocking read.
type Stream interface {
	io.Reader
	io.Writer

	// Peer returns the remote address in printable form.
	Peer() string

	// SetTimeout sets both the read and write deadline to now+d.
	// A zero duration clears the deadlines.
	SetTimeout(d time.Duration) error

	// SetReadTimeout sets only the read deadline to now+d (zero clears).
	SetReadTimeout(d time.Duration) error

	// SetWriteTimeout sets only the write deadline to now+d (zero clears).
	SetWriteTimeout(d time.Duration) error

	// SetNonblocking toggles poll mode for reads.
	SetNonblocking(on bool) error

	// Close shuts down both halves of the stream.
	Close() error
}

// IsTimeout reports whether err is a deadline/poll expiry rather than a
// real transport failure.
func IsTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// conn adapts a net.Conn. TCP, Unix-domain and tls.Conn (which implements
// net.Conn) all come through here.
type conn struct {
	c           net.Conn
	nonblocking bool
}

// New wraps a net.Conn as a Stream.
func New(c net.Conn) Stream {
	return &conn{c: c}
}

func (s *conn) Read(p []byte) (int, error) {
	if s.nonblocking {
		// Poll: expire immediately so a read with no buffered bytes
		// returns a timeout instead of blocking.
		if err := s.c.SetReadDeadline(time.Now()); err != nil {
			return 0, err
		}
	}
	return s.c.Read(p)
}

func (s *conn) Write(p []byte) (int, error) {
	return s.c.Write(p)
}

func (s *conn) Peer() string {
	if addr := s.c.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

func (s *conn) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return s.c.SetDeadline(time.Time{})
	}
	return s.c.SetDeadline(time.Now().Add(d))
}

func (s *conn) SetReadTimeout(d time.Duration) error {
	if d <= 0 {
		return s.c.SetReadDeadline(time.Time{})
	}
	return s.c.SetReadDeadline(time.Now().Add(d))
}

func (s *conn) SetWriteTimeout(d time.Duration) error {
	if d <= 0 {
		return s.c.SetWriteDeadline(time.Time{})
	}
	return s.c.SetWriteDeadline(time.Now().Add(d))
}

func (s *conn) SetNonblocking(on bool) error {
	s.nonblocking = on
	if !on {
		return s.c.SetReadDeadline(time.Time{})
	}
	return nil
}

func (s *conn) Close() error {
	return s.c.Close()
}
