package websocket

import "unicode/utf8"

// Message is a complete, reassembled WebSocket message.
type Message struct {
	payload []byte
	text    bool
}

// NewMessage creates a message, marking it as text when the payload is
// valid UTF-8. Use NewBinary to force binary.
func NewMessage(payload []byte) *Message {
	return &Message{payload: payload, text: utf8.Valid(payload)}
}

// NewText creates a text message.
func NewText(s string) *Message {
	return &Message{payload: []byte(s), text: true}
}

// NewBinary creates a binary message.
func NewBinary(payload []byte) *Message {
	return &Message{payload: payload, text: false}
}

// IsText reports whether the sender flagged the message as text.
func (m *Message) IsText() bool { return m.text }

// Text returns the payload as a string when the message is text.
func (m *Message) Text() (string, bool) {
	if !m.text {
		return "", false
	}
	return string(m.payload), true
}

// Bytes returns the payload.
func (m *Message) Bytes() []byte { return m.payload }

func (m *Message) opcode() Opcode {
	if m.text {
		return OpText
	}
	return OpBinary
}
