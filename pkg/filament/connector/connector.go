// Package connector binds sockets and feeds accepted connections into a
// server, either through the shared worker pool or with one goroutine per
// connection. It owns the shutdown handshake for its listener.
package connector

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/filament/pkg/filament/monitor"
	"github.com/yourusername/filament/pkg/filament/server"
	"github.com/yourusername/filament/pkg/filament/stream"
)

// DefaultShutdownTimeout bounds how long ShutdownAndJoin waits for in-flight
// drivers before forcibly closing their streams.
const DefaultShutdownTimeout = 10 * time.Second

// Handle is a bound listener and its accept loop.
type Handle struct {
	addr string
	ln   net.Listener
	srv  *server.Server

	marked     atomic.Bool
	acceptDone chan struct{}
	done       chan struct{}

	conns sync.WaitGroup

	mu     sync.Mutex
	active map[net.Conn]struct{}
}

// Start binds a TCP listener and serves connections through the server's
// worker pool. With an unpooled server it behaves like StartUnpooled.
func Start(addr string, srv *server.Server) (*Handle, error) {
	return listen("tcp", addr, srv, srv.Pool() != nil)
}

// StartUnpooled binds a TCP listener and spawns one goroutine per
// connection, bypassing the pool.
func StartUnpooled(addr string, srv *server.Server) (*Handle, error) {
	return listen("tcp", addr, srv, false)
}

// StartUnix binds a Unix-domain socket listener (pooled).
func StartUnix(path string, srv *server.Server) (*Handle, error) {
	return listen("unix", path, srv, srv.Pool() != nil)
}

// StartUnixUnpooled binds a Unix-domain socket listener, one goroutine per
// connection.
func StartUnixUnpooled(path string, srv *server.Server) (*Handle, error) {
	return listen("unix", path, srv, false)
}

func listen(network, addr string, srv *server.Server, pooled bool) (*Handle, error) {
	lc := net.ListenConfig{Control: controlSocket}
	ln, err := lc.Listen(context.Background(), network, addr)
	if err != nil {
		return nil, err
	}

	h := &Handle{
		addr:       addr,
		ln:         ln,
		srv:        srv,
		acceptDone: make(chan struct{}),
		done:       make(chan struct{}),
		active:     make(map[net.Conn]struct{}),
	}
	srv.RegisterHandle(h)

	go h.acceptLoop(pooled)
	go func() {
		<-h.acceptDone
		h.conns.Wait()
		close(h.done)
	}()

	return h, nil
}

// Addr returns the listener's bound address (useful with ":0").
func (h *Handle) Addr() net.Addr { return h.ln.Addr() }

// IsMarkedForShutdown reports whether Shutdown has been called.
func (h *Handle) IsMarkedForShutdown() bool { return h.marked.Load() }

// Shutdown marks the handle and closes the listening socket, which wakes
// the accept loop. In-flight drivers finish their current request; they
// stop at the next request boundary once the server is shutting down, or
// are force-closed when a bounded Join expires.
func (h *Handle) Shutdown() {
	if !h.marked.CompareAndSwap(false, true) {
		return
	}
	_ = h.ln.Close()
}

// Join waits for the accept loop and every connection driver to finish.
// timeout zero means DefaultShutdownTimeout. On expiry the remaining
// streams are forcibly shut down, the drivers are reaped, and Join returns
// false.
func (h *Handle) Join(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	select {
	case <-h.done:
		return true
	case <-time.After(timeout):
	}

	h.mu.Lock()
	for c := range h.active {
		_ = c.Close()
	}
	h.mu.Unlock()

	// Closing the streams unblocks drivers stuck in I/O. A handler stuck in
	// application code cannot be preempted; don't wait on it forever.
	select {
	case <-h.done:
	case <-time.After(time.Second):
	}
	return false
}

// ShutdownAndJoin is the two steps in order; returns Join's verdict.
func (h *Handle) ShutdownAndJoin(timeout time.Duration) bool {
	h.Shutdown()
	return h.Join(timeout)
}

func (h *Handle) acceptLoop(pooled bool) {
	defer close(h.acceptDone)
	mon := h.srv.Monitor()

	for {
		c, err := h.ln.Accept()
		if err != nil {
			if h.marked.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}

		mon.Emit(monitor.LevelDebug, monitor.KindConnectionAccepted, c.RemoteAddr().String())

		h.mu.Lock()
		h.active[c] = struct{}{}
		h.mu.Unlock()
		h.conns.Add(1)

		task := h.driverTask(c)
		if pooled {
			if !h.srv.Pool().Execute(task) {
				// Pool already stopped: refuse the connection cleanly.
				h.release(c)
			}
		} else {
			go task()
		}
	}
}

// driverTask wraps a connection driver so the stream is released even when
// a handler panics (the pool supervisor replaces the worker; the deferred
// close tears the connection down).
func (h *Handle) driverTask(c net.Conn) func() {
	return func() {
		defer h.release(c)
		_ = h.srv.HandleConnection(stream.New(c))
	}
}

func (h *Handle) release(c net.Conn) {
	h.mu.Lock()
	delete(h.active, c)
	h.mu.Unlock()
	h.conns.Done()
	_ = c.Close()
}
