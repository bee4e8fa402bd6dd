package websocket

import "unicode/utf8"

// MessageType distinguishes the payload interpretation of a complete,
// reassembled WebSocket message. Unlike [Opcode] it never takes the
// Continuation value: a [Message] is only produced once reassembly is
// finished.
type MessageType int

const (
	MessageText MessageType = iota
	MessageBinary
)

func (t MessageType) String() string {
	if t == MessageBinary {
		return "binary"
	}
	return "text"
}

// Message is a complete, reassembled application message handed to the
// caller by [Context.Read]/[Session.Read], or handed to [Context.Write]/
// [Session.Write] to be fragmented and sent.
//
// Data carries the payload for both types: UTF-8 text for MessageText
// (already validated when it comes from [Context.Read]) and opaque bytes
// for MessageBinary.
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage returns a MessageText message wrapping s.
func NewTextMessage(s string) Message {
	return Message{Type: MessageText, Data: []byte(s)}
}

// NewBinaryMessage returns a MessageBinary message wrapping data. data is
// not copied; the caller must not mutate it after the call.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: MessageBinary, Data: data}
}

// Text returns Data as a string without validating it. Callers should
// only call Text on messages of MessageText, or after validating the
// bytes themselves (Data returned by [Context.Read] is always valid
// UTF-8 for text messages).
func (m Message) Text() string { return string(m.Data) }

// opcode returns the frame opcode used to carry the first fragment of m.
func (t MessageType) opcode() Opcode {
	if t == MessageBinary {
		return OpcodeBinary
	}
	return OpcodeText
}

// validUTF8 reports whether b is entirely well-formed UTF-8, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-8.1, which
// requires failing the connection on invalid text payloads.
func validUTF8(b []byte) bool {
	return utf8.Valid(b)
}
