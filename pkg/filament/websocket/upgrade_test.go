package websocket

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/stream"
)

func headFor(t *testing.T, raw string) *http1.RequestHead {
	t.Helper()
	head, err := http1.ReadHead(bufio.NewReader(strings.NewReader(raw)), 0, nil)
	require.NoError(t, err)
	return head
}

const handshake = "GET /ws HTTP/1.1\r\n" +
	"Host: example.com\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
	"Sec-WebSocket-Version: 13\r\n\r\n"

func TestAcceptKey(t *testing.T) {
	// The worked example from RFC 6455 section 1.3.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", AcceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestIsUpgrade(t *testing.T) {
	assert.True(t, IsUpgrade(headFor(t, handshake)))

	cases := map[string]string{
		"not get":       strings.Replace(handshake, "GET", "POST", 1),
		"http 1.0":      strings.Replace(handshake, "HTTP/1.1", "HTTP/1.0", 1),
		"no upgrade":    strings.Replace(handshake, "Upgrade: websocket\r\n", "", 1),
		"no connection": strings.Replace(handshake, "Connection: Upgrade\r\n", "", 1),
		"no key":        strings.Replace(handshake, "Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n", "", 1),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, IsUpgrade(headFor(t, raw)))
		})
	}

	// Connection may carry multiple tokens.
	multi := strings.Replace(handshake, "Connection: Upgrade\r\n", "Connection: keep-alive, Upgrade\r\n", 1)
	assert.True(t, IsUpgrade(headFor(t, multi)))
}

func TestUpgradeHandshakeResponse(t *testing.T) {
	head := headFor(t, handshake)
	mem := stream.NewMem(nil)

	session, err := Upgrade(head, mem, bufio.NewReader(mem))
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Equal(t,
		"HTTP/1.1 101 Switching Protocols\r\n"+
			"Upgrade: websocket\r\n"+
			"Connection: Upgrade\r\n"+
			"Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n"+
			"\r\n",
		mem.WrittenString())
}

func TestUpgradeRejectsBadKey(t *testing.T) {
	bad := strings.Replace(handshake, "dGhlIHNhbXBsZSBub25jZQ==", "c2hvcnQ=", 1)
	head := headFor(t, bad)
	mem := stream.NewMem(nil)

	_, err := Upgrade(head, mem, bufio.NewReader(mem))
	assert.Equal(t, ErrBadKey, err)
	assert.Empty(t, mem.Written())
}
