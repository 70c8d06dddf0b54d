// Package wsapp is the in-process WebSocket broker: it multiplexes
// receive, per-client send and global broadcast across every upgraded
// session, and drives application hooks for connect, message and
// disconnect.
package wsapp

import (
	"sync"
	"time"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/monitor"
	"github.com/yourusername/filament/pkg/filament/router"
	"github.com/yourusername/filament/pkg/filament/websocket"
)

// DefaultHeartbeat is the idle interval after which sessions are pinged.
// Keep it comfortably shorter than the server's connection timeout.
const DefaultHeartbeat = 5 * time.Second

// EventHandler observes a connection or disconnection.
type EventHandler func(*Handle)

// MessageHandler observes one incoming text or binary message.
type MessageHandler func(*Handle, *websocket.Message)

// outgoing travels through a session's outbound channel.
type outgoing struct {
	msg       *websocket.Message
	broadcast bool
	ping      bool
}

// Handle is the application's reference to one session: cheap to copy,
// safe to retain beyond a callback, safe for concurrent use.
type Handle struct {
	addr string
	out  chan<- outgoing
}

// Send queues a message for this session. Messages from concurrent senders
// are serialized by the session's writer.
func (h *Handle) Send(m *websocket.Message) {
	select {
	case h.out <- outgoing{msg: m}:
	default: // session writer is gone or hopelessly behind
	}
}

// Broadcast queues a message for every connected session.
func (h *Handle) Broadcast(m *websocket.Message) {
	select {
	case h.out <- outgoing{msg: m, broadcast: true}:
	default:
	}
}

// PeerAddr returns the session's remote address.
func (h *Handle) PeerAddr() string { return h.addr }

// BroadcastSender broadcasts from outside any session callback.
type BroadcastSender struct {
	ch chan<- *websocket.Message
}

// Broadcast sends a message to all connected clients.
func (b *BroadcastSender) Broadcast(m *websocket.Message) {
	b.ch <- m
}

type sessionIntake struct {
	recv *websocket.Receiver
	send *websocket.Sender
	addr string
	done chan struct{}
}

// registration is one session's entry in the broadcast registry.
type registration struct {
	out  chan outgoing
	gone bool
}

// App is a WebSocket broker. Configure with the With* methods, register
// Endpoint on one or more websocket routes, then call Run.
type App struct {
	heartbeat time.Duration
	mon       *monitor.Monitor

	incoming   chan sessionIntake
	broadcasts chan *websocket.Message
	quit       chan struct{}
	quitOnce   sync.Once

	regMu   sync.Mutex
	senders []*registration

	connect    EventHandler
	disconnect EventHandler
	message    MessageHandler
}

// NewApp creates a broker with the default heartbeat.
func NewApp() *App {
	return &App{
		heartbeat:  DefaultHeartbeat,
		incoming:   make(chan sessionIntake),
		broadcasts: make(chan *websocket.Message, 64),
		quit:       make(chan struct{}),
	}
}

// WithConnectHandler sets the hook called when a client connects.
func (a *App) WithConnectHandler(h EventHandler) *App { a.connect = h; return a }

// WithDisconnectHandler sets the hook called when a client disconnects.
func (a *App) WithDisconnectHandler(h EventHandler) *App { a.disconnect = h; return a }

// WithMessageHandler sets the hook called for each incoming message.
func (a *App) WithMessageHandler(h MessageHandler) *App { a.message = h; return a }

// WithHeartbeat sets the idle ping interval. Keep it shorter than the
// server's connection timeout or sessions die between pings.
func (a *App) WithHeartbeat(d time.Duration) *App { a.heartbeat = d; return a }

// WithMonitor attaches a monitor for broker events.
func (a *App) WithMonitor(m *monitor.Monitor) *App { a.mon = m; return a }

// Sender returns a broadcast sender usable from any goroutine.
func (a *App) Sender() *BroadcastSender {
	return &BroadcastSender{ch: a.broadcasts}
}

// Shutdown asks the broker to stop. Each session's writer closes its
// session as soon as it sees the request; Run returns after joining them.
func (a *App) Shutdown() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Endpoint adapts the broker into a websocket route handler. The handler
// parks the connection's thread until the session ends, which keeps the
// stream alive for the broker's reader and writer.
func (a *App) Endpoint() router.WebSocketEndpoint {
	return func(ctx *http1.RequestContext, recv *websocket.Receiver, send *websocket.Sender) {
		intake := sessionIntake{
			recv: recv,
			send: send,
			addr: ctx.Peer(),
			done: make(chan struct{}),
		}
		select {
		case a.incoming <- intake:
			<-intake.done
		case <-a.quit:
		}
	}
}

// Run accepts sessions and fans out broadcasts until Shutdown. It joins
// the broadcast loop and every per-session goroutine before returning.
func (a *App) Run() error {
	var wg sync.WaitGroup

	broadcastDone := make(chan struct{})
	go func() {
		defer close(broadcastDone)
		a.broadcastLoop()
	}()

	for {
		select {
		case <-a.quit:
			wg.Wait()
			<-broadcastDone
			a.mon.Emit(monitor.LevelInfo, monitor.KindShutdownComplete, "websocket app stopped")
			return nil

		case intake := <-a.incoming:
			reg := &registration{out: make(chan outgoing, 64)}
			a.regMu.Lock()
			a.senders = append(a.senders, reg)
			a.regMu.Unlock()

			wg.Add(2)
			stop := make(chan struct{})
			go func() {
				defer wg.Done()
				a.sessionReader(intake, reg, stop)
			}()
			go func() {
				defer wg.Done()
				defer close(intake.done)
				a.sessionWriter(intake, reg, stop)
			}()
		}
	}
}

// broadcastLoop forwards broadcast messages to every registered sender and
// pings all sessions when idle. Senders whose writer left are compacted
// away on each pass.
func (a *App) broadcastLoop() {
	ticker := time.NewTicker(a.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-a.quit:
			return
		case m := <-a.broadcasts:
			a.fanOut(outgoing{msg: m})
			ticker.Reset(a.heartbeat)
		case <-ticker.C:
			a.fanOut(outgoing{ping: true})
		}
	}
}

func (a *App) fanOut(o outgoing) {
	a.regMu.Lock()
	defer a.regMu.Unlock()
	kept := a.senders[:0]
	for _, reg := range a.senders {
		if reg.gone {
			continue
		}
		select {
		case reg.out <- o:
		default: // behind by a full buffer; drop rather than block the loop
		}
		kept = append(kept, reg)
	}
	a.senders = kept
}

// sessionReader surfaces messages to the application. It exits on close,
// read error, or a silent peer (no frame within two heartbeat intervals,
// pongs included).
func (a *App) sessionReader(intake sessionIntake, reg *registration, stop chan struct{}) {
	defer close(stop)

	if a.connect != nil {
		a.connect(&Handle{addr: intake.addr, out: reg.out})
	}

	for {
		select {
		case <-a.quit:
			return
		default:
		}

		result, msg, err := intake.recv.ReadMessageTimeout(a.heartbeat * 2)
		switch {
		case err != nil, result == websocket.ReadClosed:
			if a.disconnect != nil {
				a.disconnect(&Handle{addr: intake.addr, out: reg.out})
			}
			if err != nil {
				a.mon.Emit(monitor.LevelDebug, monitor.KindConnectionClosed,
					"ws read "+intake.addr+": "+err.Error())
			}
			return
		case result == websocket.ReadTimedOut:
			return // silent peer; the writer's pings went unanswered
		default:
			if a.message != nil {
				a.message(&Handle{addr: intake.addr, out: reg.out}, msg)
			}
		}
	}
}

// sessionWriter owns the socket's write side: it serializes sends, turns
// broadcast requests into broker broadcasts, and pings when idle.
func (a *App) sessionWriter(intake sessionIntake, reg *registration, stop chan struct{}) {
	defer func() {
		a.regMu.Lock()
		reg.gone = true
		a.regMu.Unlock()
		_ = intake.send.Close(websocket.CloseGoingAway, "")
	}()

	idle := time.NewTimer(a.heartbeat)
	defer idle.Stop()

	for {
		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(a.heartbeat)

		select {
		case <-a.quit:
			return
		case <-stop:
			return
		case o := <-reg.out:
			switch {
			case o.ping:
				if intake.send.Ping() != nil {
					return
				}
			case o.broadcast:
				select {
				case a.broadcasts <- o.msg:
				case <-a.quit:
					return
				}
			default:
				if intake.send.Send(o.msg) != nil {
					return
				}
			}
		case <-idle.C:
			if intake.send.Ping() != nil {
				return
			}
		}
	}
}
