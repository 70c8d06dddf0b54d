package websocket

import (
	"bufio"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/filament/pkg/filament/stream"
)

// clientFrame builds a masked client-to-server frame.
func clientFrame(opcode Opcode, fin bool, payload []byte) []byte {
	key := [4]byte{0x12, 0x34, 0x56, 0x78}

	b0 := byte(opcode)
	if fin {
		b0 |= finalBit
	}

	var out []byte
	n := len(payload)
	switch {
	case n <= 125:
		out = append(out, b0, maskBit|byte(n))
	case n <= 0xFFFF:
		out = append(out, b0, maskBit|126, 0, 0)
		binary.BigEndian.PutUint16(out[2:4], uint16(n))
	default:
		out = append(out, b0, maskBit|127, 0, 0, 0, 0, 0, 0, 0, 0)
		binary.BigEndian.PutUint64(out[2:10], uint64(n))
	}
	out = append(out, key[:]...)

	masked := append([]byte(nil), payload...)
	maskBytes(masked, key)
	return append(out, masked...)
}

func sessionOver(input []byte) (*Session, *stream.Mem) {
	mem := stream.NewMem(input)
	return NewSession(mem, bufio.NewReader(mem)), mem
}

func TestReadSingleTextMessage(t *testing.T) {
	s, _ := sessionOver(clientFrame(OpText, true, []byte("hello")))
	recv, _ := s.Split()

	msg, err := recv.ReadMessage()
	require.NoError(t, err)
	assert.True(t, msg.IsText())
	text, _ := msg.Text()
	assert.Equal(t, "hello", text)
}

func TestReadFragmentedMessage(t *testing.T) {
	var input []byte
	input = append(input, clientFrame(OpText, false, []byte("fizz"))...)
	input = append(input, clientFrame(OpContinuation, false, []byte("buzz"))...)
	input = append(input, clientFrame(OpContinuation, true, []byte("-trigger"))...)

	s, _ := sessionOver(input)
	recv, _ := s.Split()

	msg, err := recv.ReadMessage()
	require.NoError(t, err)
	text, _ := msg.Text()
	assert.Equal(t, "fizzbuzz-trigger", text)
}

func TestPingAnsweredInlineDuringFragmentation(t *testing.T) {
	var input []byte
	input = append(input, clientFrame(OpText, false, []byte("fi"))...)
	input = append(input, clientFrame(OpPing, true, []byte("tick"))...)
	input = append(input, clientFrame(OpContinuation, true, []byte("n"))...)

	s, mem := sessionOver(input)
	recv, _ := s.Split()

	msg, err := recv.ReadMessage()
	require.NoError(t, err)
	text, _ := msg.Text()
	assert.Equal(t, "fin", text)

	// The pong went out before reassembly finished, unmasked, same payload.
	want := []byte{finalBit | byte(OpPong), 4}
	want = append(want, []byte("tick")...)
	assert.Equal(t, want, mem.Written())
}

func TestPongUpdatesTimestamp(t *testing.T) {
	var input []byte
	input = append(input, clientFrame(OpPong, true, nil)...)
	input = append(input, clientFrame(OpBinary, true, []byte{1, 2})...)

	s, _ := sessionOver(input)
	before := s.LastPong()
	time.Sleep(2 * time.Millisecond)

	recv, _ := s.Split()
	_, err := recv.ReadMessage()
	require.NoError(t, err)
	assert.True(t, s.LastPong().After(before))
}

func TestCloseEchoedAndSurfaced(t *testing.T) {
	s, mem := sessionOver(clientFrame(OpClose, true, closePayload(CloseNormal, "")))
	recv, _ := s.Split()

	_, err := recv.ReadMessage()
	assert.Equal(t, ErrConnectionClosed, err)

	// The close frame was echoed before surfacing.
	out := mem.Written()
	require.NotEmpty(t, out)
	assert.Equal(t, byte(finalBit|byte(OpClose)), out[0])
}

func TestInvalidUTF8ClosesWith1007(t *testing.T) {
	s, mem := sessionOver(clientFrame(OpText, true, []byte{0xff, 0xfe}))
	recv, _ := s.Split()

	_, err := recv.ReadMessage()
	assert.Equal(t, ErrInvalidUTF8, err)

	out := mem.Written()
	require.True(t, len(out) >= 4)
	assert.Equal(t, uint16(CloseInvalidData), binary.BigEndian.Uint16(out[2:4]))
}

func TestOversizeMessageClosesWith1009(t *testing.T) {
	s, mem := sessionOver(clientFrame(OpBinary, true, make([]byte, 64)))
	s.SetMaxMessageSize(16)
	recv, _ := s.Split()

	_, err := recv.ReadMessage()
	assert.Equal(t, ErrMessageTooLarge, err)

	out := mem.Written()
	require.True(t, len(out) >= 4)
	assert.Equal(t, uint16(CloseMessageTooBig), binary.BigEndian.Uint16(out[2:4]))
}

func TestProtocolViolations(t *testing.T) {
	// Continuation with no message in progress.
	s, _ := sessionOver(clientFrame(OpContinuation, true, []byte("x")))
	recv, _ := s.Split()
	_, err := recv.ReadMessage()
	assert.Equal(t, ErrUnexpectedContinue, err)

	// New data frame while fragmented message in progress.
	var input []byte
	input = append(input, clientFrame(OpText, false, []byte("a"))...)
	input = append(input, clientFrame(OpText, true, []byte("b"))...)
	s, _ = sessionOver(input)
	recv, _ = s.Split()
	_, err = recv.ReadMessage()
	assert.Equal(t, ErrExpectedContinue, err)

	// Fragmented control frame.
	s, _ = sessionOver(clientFrame(OpPing, false, nil))
	recv, _ = s.Split()
	_, err = recv.ReadMessage()
	assert.Equal(t, ErrFragmentedControl, err)
}

func TestSenderFrames(t *testing.T) {
	s, mem := sessionOver(nil)
	_, send := s.Split()

	require.NoError(t, send.Send(NewText("hi")))
	require.NoError(t, send.Ping())

	out := mem.Written()
	// Text frame: FIN+text, length 2, unmasked payload.
	assert.Equal(t, []byte{finalBit | byte(OpText), 2, 'h', 'i', finalBit | byte(OpPing), 0}, out)
}

func TestSenderExtendedLengths(t *testing.T) {
	s, mem := sessionOver(nil)
	_, send := s.Split()

	require.NoError(t, send.Send(NewBinary(make([]byte, 300))))
	out := mem.Written()
	require.True(t, len(out) >= 4)
	assert.Equal(t, byte(126), out[1])
	assert.Equal(t, uint16(300), binary.BigEndian.Uint16(out[2:4]))
}

func TestNonblockingReadPreservesPartialState(t *testing.T) {
	// Feed only the first fragment; the timeout-bounded read must park the
	// partial message and keep it across calls.
	s, mem := sessionOver(clientFrame(OpText, false, []byte("fizz")))
	_ = mem.SetNonblocking(true)
	recv, _ := s.Split()

	result, msg, err := recv.ReadMessageTimeout(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, ReadTimedOut, result)
	assert.True(t, s.inMessage)
	assert.Equal(t, "fizz", string(s.partial))
}
