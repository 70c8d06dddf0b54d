package websocket

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/yourusername/filament/pkg/filament/http1"
	"github.com/yourusername/filament/pkg/filament/stream"
)

// acceptGUID is the fixed GUID of the RFC 6455 opening handshake.
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

var (
	ErrNotWebSocket = errors.New("websocket: not a websocket handshake")
	ErrBadKey       = errors.New("websocket: invalid Sec-WebSocket-Key")
)

// AcceptKey computes the Sec-WebSocket-Accept value for a client key:
// base64(SHA-1(key + GUID)).
func AcceptKey(key string) string {
	h := sha1.Sum([]byte(key + acceptGUID))
	return base64.StdEncoding.EncodeToString(h[:])
}

// IsUpgrade reports whether a request head asks for a WebSocket upgrade:
// GET over HTTP/1.1 with Upgrade: websocket, Connection: upgrade and a
// Sec-WebSocket-Key.
func IsUpgrade(head *http1.RequestHead) bool {
	if head.Method() != http1.MethodGet || head.Version() != http1.Http11 {
		return false
	}
	if !headerHasToken(head, "Upgrade", "websocket") {
		return false
	}
	if !headerHasToken(head, "Connection", "upgrade") {
		return false
	}
	key, ok := head.Header("Sec-WebSocket-Key")
	return ok && key != ""
}

// Upgrade performs the server side of the opening handshake and hands back
// the raw stream as a Session. br must be the connection's buffered reader.
func Upgrade(head *http1.RequestHead, st stream.Stream, br *bufio.Reader) (*Session, error) {
	if !IsUpgrade(head) {
		return nil, ErrNotWebSocket
	}
	key, _ := head.Header("Sec-WebSocket-Key")
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 16 {
		return nil, ErrBadKey
	}

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + AcceptKey(key) + "\r\n" +
		"\r\n"
	if _, err := st.Write([]byte(response)); err != nil {
		return nil, err
	}

	return NewSession(st, br), nil
}

// headerHasToken checks for a token in a comma-separated header value,
// case-insensitively.
func headerHasToken(head *http1.RequestHead, name, token string) bool {
	for _, v := range head.HeaderValues(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
