package websocket

import (
	"io"

	"github.com/lithammer/shortuuid/v4"
)

// Session binds a [Context] to a concrete [Transport] and the underlying
// closeable stream, so callers don't have to thread a Transport through
// every call themselves. It is the type [DialClient] and [AcceptServer]
// return.
//
// Session exclusively owns both the Context and the byte stream beneath
// it: nothing else should read from or write to the same Transport while
// a Session wraps it.
type Session struct {
	id        string
	ctx       *Context
	transport Transport
	closer    io.Closer
}

// NewSession builds a Session from an already-handshaken Context,
// Transport, and the stream to close when the session ends. Each
// Session gets a short, unique ID (see [Session.ID]) suitable for
// correlating log lines and metrics across a connection's lifetime.
func NewSession(ctx *Context, transport Transport, closer io.Closer) *Session {
	return &Session{id: shortuuid.New(), ctx: ctx, transport: transport, closer: closer}
}

// ID returns the Session's short unique identifier.
func (s *Session) ID() string { return s.id }

// Context returns the underlying protocol state machine, for callers
// that need lower-level access (e.g. to drive it over a non-blocking
// Transport themselves).
func (s *Session) Context() *Context { return s.ctx }

// Read returns the next complete message, per [Context.Read].
func (s *Session) Read() (Message, error) {
	return s.ctx.Read(s.transport)
}

// Write enqueues and flushes msg, per [Context.Write].
func (s *Session) Write(msg Message) error {
	return s.ctx.Write(s.transport, msg)
}

// WriteText is a convenience for Write(NewTextMessage(s)).
func (s *Session) WriteText(text string) error {
	return s.Write(NewTextMessage(text))
}

// WriteBinary is a convenience for Write(NewBinaryMessage(data)).
func (s *Session) WriteBinary(data []byte) error {
	return s.Write(NewBinaryMessage(data))
}

// Ping enqueues and flushes an unsolicited Ping frame.
func (s *Session) Ping(data []byte) error {
	if err := s.ctx.Ping(data); err != nil {
		return err
	}
	return s.ctx.Flush(s.transport)
}

// Close performs (or completes) the close handshake and then closes the
// underlying stream. It returns the handshake error, if any, but always
// attempts to close the stream regardless.
func (s *Session) Close(code CloseCode, reason string) error {
	err := s.ctx.Close(s.transport, code, reason)
	if cerr := s.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

// State returns the session's connection state, per [Context.State].
func (s *Session) State() ConnectionState { return s.ctx.State() }
