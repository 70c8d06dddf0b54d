package wsapp

import (
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/filament/pkg/filament/connector"
	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/router"
	"github.com/yourusername/filament/pkg/filament/server"
	"github.com/yourusername/filament/pkg/filament/websocket"
)

// startBroker wires a broker into a server on /ws and starts a listener.
// The gorilla client plays the browser side of the conversation.
func startBroker(t *testing.T, app *App) (addr string, cleanup func()) {
	t.Helper()

	srv, err := server.NewBuilder().
		Unpooled().
		WithConnectionTimeout(10 * time.Second).
		Router(func(r *router.App) {
			r.WebSocket("/ws", app.Endpoint())
			r.Route("/").Endpoint(func(*http1.RequestContext) (*http1.Response, error) {
				return http1.OK(http1.BodyFromString("plain http still works")), nil
			})
		}).
		Build()
	require.NoError(t, err)

	h, err := connector.StartUnpooled("127.0.0.1:0", srv)
	require.NoError(t, err)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = app.Run()
	}()

	return h.Addr().String(), func() {
		app.Shutdown()
		select {
		case <-runDone:
		case <-time.After(5 * time.Second):
			t.Error("broker Run did not return after Shutdown")
		}
		srv.Shutdown()
		h.Join(5 * time.Second)
	}
}

func dial(t *testing.T, addr string) *gorilla.Conn {
	t.Helper()
	conn, _, err := gorilla.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcastReachesEveryClient(t *testing.T) {
	connects := make(chan string, 4)
	app := NewApp().
		WithHeartbeat(time.Second).
		WithConnectHandler(func(h *Handle) { connects <- h.PeerAddr() }).
		WithMessageHandler(func(h *Handle, m *websocket.Message) {
			// Whatever one client says, everyone hears.
			h.Broadcast(m)
		})

	addr, cleanup := startBroker(t, app)
	defer cleanup()

	alice := dial(t, addr)
	defer alice.Close()
	bob := dial(t, addr)
	defer bob.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-connects:
		case <-time.After(5 * time.Second):
			t.Fatal("connect handler not invoked")
		}
	}

	require.NoError(t, alice.WriteMessage(gorilla.TextMessage, []byte("fizzbuzz-trigger")))

	for _, client := range []*gorilla.Conn{alice, bob} {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
		kind, payload, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, gorilla.TextMessage, kind)
		assert.Equal(t, "fizzbuzz-trigger", string(payload))
	}
}

func TestPerClientSend(t *testing.T) {
	app := NewApp().
		WithHeartbeat(time.Second).
		WithMessageHandler(func(h *Handle, m *websocket.Message) {
			if text, _ := m.Text(); text == "who am i" {
				h.Send(websocket.NewText("you are " + h.PeerAddr()))
			}
		})

	addr, cleanup := startBroker(t, app)
	defer cleanup()

	alice := dial(t, addr)
	defer alice.Close()
	bob := dial(t, addr)
	defer bob.Close()

	require.NoError(t, alice.WriteMessage(gorilla.TextMessage, []byte("who am i")))

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := alice.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(payload), "you are ")

	// Bob got nothing: his next read hits the deadline (pings excluded,
	// gorilla handles those transparently).
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectHandlerFires(t *testing.T) {
	disconnects := make(chan struct{}, 1)
	app := NewApp().
		WithHeartbeat(500 * time.Millisecond).
		WithDisconnectHandler(func(*Handle) { disconnects <- struct{}{} })

	addr, cleanup := startBroker(t, app)
	defer cleanup()

	client := dial(t, addr)
	require.NoError(t, client.WriteMessage(gorilla.CloseMessage,
		gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, "")))
	_ = client.Close()

	select {
	case <-disconnects:
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect handler not invoked")
	}
}

func TestBroadcastSenderOutsideCallbacks(t *testing.T) {
	app := NewApp().WithHeartbeat(time.Second)
	sender := app.Sender()

	addr, cleanup := startBroker(t, app)
	defer cleanup()

	client := dial(t, addr)
	defer client.Close()
	time.Sleep(100 * time.Millisecond) // registration is asynchronous

	sender.Broadcast(websocket.NewText("announcement"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "announcement", string(payload))
}

func TestHeartbeatPingsIdleSessions(t *testing.T) {
	app := NewApp().WithHeartbeat(200 * time.Millisecond)

	addr, cleanup := startBroker(t, app)
	defer cleanup()

	client := dial(t, addr)
	defer client.Close()

	pinged := make(chan struct{}, 1)
	client.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})

	// Pings only surface while a read is pending.
	go func() {
		_ = client.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, _, _ = client.ReadMessage()
	}()

	select {
	case <-pinged:
	case <-time.After(5 * time.Second):
		t.Fatal("no heartbeat ping observed")
	}
}
