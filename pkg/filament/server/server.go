// Package server contains the connection driver and the builder that
// assembles a runnable server from sub-apps, timeouts and a thread pool.
package server

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/monitor"
	"github.com/yourusername/filament/pkg/filament/pool"
	"github.com/yourusername/filament/pkg/filament/router"
	"github.com/yourusername/filament/pkg/filament/stream"
	"github.com/yourusername/filament/pkg/filament/websocket"
)

// ShutdownHandle is what the server needs from a listener to cascade its
// shutdown: mark it, and wait for it. The connector package implements it.
type ShutdownHandle interface {
	Shutdown()
	Join(timeout time.Duration) bool
}

// Server is an immutable, built server. One Server may be driven by any
// number of listeners concurrently; its routing tables are shared read-only
// across connections.
type Server struct {
	routes *router.Router

	readTimeout      time.Duration
	writeTimeout     time.Duration
	keepAliveTimeout time.Duration
	maxHeadBytes     int
	maxRequests      int

	mon     *monitor.Monitor
	metrics *monitor.Metrics
	workers *pool.Pool

	shuttingDown atomic.Bool

	mu      sync.Mutex
	handles []ShutdownHandle
}

// Pool returns the shared worker pool, or nil in unpooled mode.
func (s *Server) Pool() *pool.Pool { return s.workers }

// Monitor returns the server's monitor (possibly nil).
func (s *Server) Monitor() *monitor.Monitor { return s.mon }

// Metrics returns the attached metrics (possibly nil).
func (s *Server) Metrics() *monitor.Metrics { return s.metrics }

// IsShuttingDown reports whether Shutdown has been called.
func (s *Server) IsShuttingDown() bool { return s.shuttingDown.Load() }

// RegisterHandle attaches a listener handle so Shutdown can cascade to it.
func (s *Server) RegisterHandle(h ShutdownHandle) {
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()
}

// Shutdown marks the server and every registered listener for shutdown.
// It does not wait; use ShutdownAndJoin or the handles for that.
func (s *Server) Shutdown() {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	s.mon.Emit(monitor.LevelInfo, monitor.KindShutdownStarted, "server shutdown requested")
	s.mu.Lock()
	handles := append([]ShutdownHandle(nil), s.handles...)
	s.mu.Unlock()
	for _, h := range handles {
		h.Shutdown()
	}
	if s.workers != nil {
		s.workers.Stop()
	}
}

// ShutdownAndJoin shuts down and waits (bounded per handle by timeout; zero
// leaves each handle's own default, DefaultShutdownTimeout for the
// connector) for all listeners and the pool to finish. Returns false
// if any join timed out.
func (s *Server) ShutdownAndJoin(timeout time.Duration) bool {
	s.Shutdown()
	s.mu.Lock()
	handles := append([]ShutdownHandle(nil), s.handles...)
	s.mu.Unlock()

	ok := true
	var g errgroup.Group
	for _, h := range handles {
		h := h
		g.Go(func() error {
			if !h.Join(timeout) {
				return errJoinTimeout
			}
			return nil
		})
	}
	if g.Wait() != nil {
		ok = false
	}
	if s.workers != nil {
		s.workers.Join()
	}
	s.mon.Emit(monitor.LevelInfo, monitor.KindShutdownComplete, "server shutdown complete")
	return ok
}

var errJoinTimeout = &joinTimeoutError{}

type joinTimeoutError struct{}

func (*joinTimeoutError) Error() string { return "server: listener join timed out" }

// HandleConnection drives one connection through its lifecycle: parse a
// head, route, execute, serialize, then loop while keep-alive holds. It
// owns the stream and always leaves it closed.
//
// The return value reports protocol failures where nothing could be
// written (for example a status line without CRLF); failures answered on
// the wire (400, 404, 505...) return nil.
func (s *Server) HandleConnection(st stream.Stream) error {
	defer func() {
		_ = st.Close()
		s.mon.Emit(monitor.LevelDebug, monitor.KindConnectionClosed, st.Peer())
		if s.metrics != nil {
			s.metrics.OpenConns.Dec()
		}
	}()
	if s.metrics != nil {
		s.metrics.OpenConns.Inc()
	}

	br := bufio.NewReader(st)
	served := 0

	for {
		if s.IsShuttingDown() && served > 0 {
			return nil
		}

		// First request gets the read timeout, later ones the idle timeout.
		if served == 0 {
			_ = st.SetReadTimeout(s.readTimeout)
		} else {
			_ = st.SetReadTimeout(s.keepAliveTimeout)
		}

		head, err := http1.ReadHead(br, s.maxHeadBytes, s.mon)
		if err != nil {
			return s.headError(st, err, served)
		}
		_ = st.SetReadTimeout(0)
		served++
		s.mon.Emit(monitor.LevelDebug, monitor.KindRequestParsed,
			string(head.Method())+" "+head.Path())
		if s.metrics != nil {
			s.metrics.RequestsTotal.Inc()
		}

		body := http1.NewBodyReader(head, br)
		ctx := http1.NewRequestContext(head, body, st.Peer())

		keepAlive := s.keepAliveTimeout > 0 &&
			head.WantsKeepAlive() &&
			!s.IsShuttingDown() &&
			(s.maxRequests == 0 || served < s.maxRequests)

		outcome := s.dispatch(ctx, st, br)
		if outcome.upgraded {
			// The websocket layer consumed the stream.
			return nil
		}
		resp := outcome.resp
		if outcome.close {
			// Synthesized failures (no route, endpoint error) end the
			// connection regardless of the keep-alive negotiation.
			keepAlive = false
		}

		_ = st.SetWriteTimeout(s.writeTimeout)
		if err := resp.Write(st, head.Version(), keepAlive); err != nil {
			return nil // peer gone mid-response; nothing left to salvage
		}
		_ = st.SetWriteTimeout(0)

		s.mon.Emit(monitor.LevelDebug, monitor.KindResponseSent, st.Peer())
		if s.metrics != nil {
			s.metrics.ResponsesTotal.WithLabelValues(monitor.StatusClass(resp.Status)).Inc()
		}

		// Drain whatever the handler left of the body so the next head
		// starts at a request boundary.
		if err := body.Discard(); err != nil {
			return nil
		}

		if !keepAlive {
			return nil
		}
	}
}

// dispatchOutcome is what one routed request produced: a response, a
// completed websocket takeover, or a response that must end the connection.
type dispatchOutcome struct {
	resp     *http1.Response
	upgraded bool
	close    bool
}

func respond(resp *http1.Response) dispatchOutcome { return dispatchOutcome{resp: resp} }

func respondAndClose(resp *http1.Response) dispatchOutcome {
	return dispatchOutcome{resp: resp, close: true}
}

// dispatch routes one request and produces its response, or performs a
// websocket upgrade (in which case the connection does not come back).
func (s *Server) dispatch(ctx *http1.RequestContext, st stream.Stream, br *bufio.Reader) dispatchOutcome {
	head := ctx.Head()

	app := s.routes.SelectApp(head.Host())
	if app == nil {
		return respondAndClose(http1.StatusResponse(http1.StatusNotFound))
	}

	// Pre-routing filters run against the mutable head; they may rewrite
	// it or answer the request themselves.
	if resp, err := app.RunPreRouting(ctx); err != nil {
		return respondAndClose(s.errorResponse(err))
	} else if resp != nil {
		return respond(s.applyResponseFilters(app, ctx, resp))
	}

	match := app.SelectRoute(ctx)
	switch {
	case match.WebSocket != nil:
		s.mon.Emit(monitor.LevelDebug, monitor.KindRouteMatched, "ws "+match.WebSocket.Pattern())
		s.serveWebSocket(ctx, match.WebSocket, st, br)
		return dispatchOutcome{upgraded: true}

	case match.Preflight != nil:
		return respond(s.applyResponseFilters(app, ctx, match.Preflight))

	case match.FailStatus != 0:
		return respondAndClose(s.applyResponseFilters(app, ctx, http1.StatusResponse(match.FailStatus)))
	}

	s.mon.Emit(monitor.LevelDebug, monitor.KindRouteMatched, match.Route.Pattern())

	if resp, err := match.RunRouteFilters(ctx); err != nil {
		return respondAndClose(s.errorResponse(err))
	} else if resp != nil {
		return respond(s.applyResponseFilters(app, ctx, resp))
	}

	resp, err := match.RunEndpoint(ctx)
	if err != nil || resp == nil {
		return respondAndClose(s.applyResponseFilters(app, ctx, s.errorResponse(err)))
	}
	return respond(s.applyResponseFilters(app, ctx, resp))
}

func (s *Server) applyResponseFilters(app *router.App, ctx *http1.RequestContext, resp *http1.Response) *http1.Response {
	filtered, err := app.RunResponseFilters(ctx, resp)
	if err != nil {
		return s.errorResponse(err)
	}
	return filtered
}

// errorResponse maps a handler/filter error to a wire response: 408 when
// the request timed out under the handler, 500 for everything else.
func (s *Server) errorResponse(err error) *http1.Response {
	if err != nil {
		s.mon.Emit(monitor.LevelError, monitor.KindResponseSent, "handler error: "+err.Error())
		if stream.IsTimeout(err) {
			return http1.StatusResponse(http1.StatusRequestTimeout)
		}
	}
	return http1.StatusResponse(http1.StatusInternalError)
}

// headError finalizes a connection whose head failed to parse. Structural
// status-line failures and timeouts write nothing; everything else is
// answered with a mapped status before closing.
func (s *Server) headError(st stream.Stream, err error, served int) error {
	if stream.IsTimeout(err) {
		return nil // idle keep-alive expiry, or a silent first-read timeout
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil
	}

	pe, ok := http1.AsParseError(err)
	if !ok {
		return err
	}

	switch pe.Mode {
	case http1.EofBeforeAnyBytes:
		if served > 0 {
			return nil // clean close between keep-alive requests
		}
		return pe
	case http1.StatusLineInvalidBytes, http1.StatusLineNoCRLF,
		http1.StatusLineNoWhitespace, http1.StatusLineTooManyFields:
		// The line was not parseable enough to trust a response framing.
		return pe
	}

	status := http1.StatusBadRequest
	switch pe.Mode {
	case http1.UnsupportedVersion:
		status = http1.StatusVersionUnsupported
	case http1.StatusLineTooLong:
		status = http1.StatusURITooLong
	case http1.HeadTooLarge:
		status = http1.StatusPayloadTooLarge
	}

	_ = st.SetWriteTimeout(s.writeTimeout)
	_ = http1.StatusResponse(status).Write(st, http1.Http11, false)
	if s.metrics != nil {
		s.metrics.ResponsesTotal.WithLabelValues(monitor.StatusClass(status)).Inc()
	}
	return nil
}

// serveWebSocket completes the handshake and runs the endpoint on the
// current thread. The session dies with the endpoint.
func (s *Server) serveWebSocket(ctx *http1.RequestContext, route *router.WebSocketRoute, st stream.Stream, br *bufio.Reader) {
	_ = st.SetTimeout(0)
	session, err := websocket.Upgrade(ctx.Head(), st, br)
	if err != nil {
		_ = http1.StatusResponse(http1.StatusBadRequest).Write(st, http1.Http11, false)
		return
	}
	recv, send := session.Split()
	route.Handler()(ctx, recv, send)
}
