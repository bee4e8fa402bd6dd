package websocket

import (
	"errors"
	"io"
	"log/slog"
)

// Context is the WebSocket protocol state machine: frame codec, message
// reassembly, and close-handshake bookkeeping. It owns the decode buffer
// and the pending-write byte buffer, but no transport of its own — every
// method that needs to move bytes takes a [Transport] argument, so the
// same Context can be driven by a blocking socket one call and a
// non-blocking one the next.
//
// A Context is not safe for concurrent use; callers that need concurrent
// reads and writes should serialize access themselves (see [Session] for
// a single-goroutine-friendly wrapper, or pkg/wsclient for a
// channel-based convenience layer built on top of it).
type Context struct {
	role   Role
	cfg    Config
	logger *slog.Logger
	rng    RNG

	rbuf *readBuffer
	wbuf []byte

	state ConnectionState

	curOpcode Opcode // OpcodeContinuation means no message is being reassembled
	curData   []byte

	peerCloseCode   CloseCode
	peerCloseReason string
}

// ContextOption customizes a [Context] at construction time.
type ContextOption func(*Context)

// WithLogger attaches a structured logger; every protocol violation the
// Context fails the connection for is logged at warn level.
// The zero value (nil) disables logging.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = l }
}

// WithRNG overrides the source of masking keys. Tests use this to get a
// deterministic (or all-zero) mask instead of crypto/rand.
func WithRNG(rng RNG) ContextOption {
	return func(c *Context) { c.rng = rng }
}

// NewContext builds a Context for role, using cfg for its size limits and
// behavior. cfg should come from [NewConfig].
func NewContext(role Role, cfg Config, opts ...ContextOption) *Context {
	c := &Context{
		role:      role,
		cfg:       cfg,
		rng:       defaultRNG,
		rbuf:      newReadBuffer(cfg.ReadBufferSize),
		wbuf:      make([]byte, 0, cfg.WriteBufferSize),
		curOpcode: OpcodeContinuation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the connection's current position in the close
// handshake lifecycle.
func (c *Context) State() ConnectionState { return c.state }

// PeerCloseCode and PeerCloseReason report what the peer sent in its
// Close frame, once one has been received. Before that, PeerCloseCode
// returns 0 and PeerCloseReason returns "". A received Close frame with
// an empty payload is reported as CloseNoStatusReceived.
func (c *Context) PeerCloseCode() CloseCode { return c.peerCloseCode }
func (c *Context) PeerCloseReason() string  { return c.peerCloseReason }

// Read decodes and reassembles the next complete message, reading more
// bytes from t as needed. It returns ErrWouldBlock if t has no data
// available right now; the caller should retry once t becomes readable.
//
// It returns ErrConnectionClosed once the close handshake finishes (or
// the peer closes its write side), and a *ProtocolError wrapping the
// relevant Err* sentinel if the peer violates the protocol. In both
// cases Read has already attempted to flush the matching Close frame
// through t itself; a WouldBlock on that best-effort flush is not
// reported back to the caller.
func (c *Context) Read(t Transport) (Message, error) {
	for {
		if c.state == StateClosed {
			return Message{}, ErrConnectionClosed
		}

		f, n, err := decodeFrame(c.rbuf.unread(), c.cfg.MaxFrameSize)
		if err == nil {
			c.rbuf.consume(n)
			msg, done, herr := c.handleFrame(t, f)
			if herr != nil {
				return Message{}, herr
			}
			if done {
				return msg, nil
			}
			continue
		}
		if !errors.Is(err, errIncomplete) {
			return Message{}, c.fail(t, asProtocolError(err))
		}

		tail := c.rbuf.reserve(c.cfg.ReadBufferSize)
		n, rerr := t.ReadSome(tail)
		c.rbuf.advance(n)
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				c.state = StateClosed
				return Message{}, ErrConnectionClosed
			}
			return Message{}, rerr
		}
	}
}

// handleFrame processes one already-header-validated-or-not frame.
// done reports whether a value (msg, or a terminal err) is ready to
// return from Read; when done is false the caller should keep decoding.
func (c *Context) handleFrame(t Transport, f Frame) (msg Message, done bool, err error) {
	if pe := checkFrameHeader(f.Header, c.curOpcode, c.role); pe != nil {
		return Message{}, true, c.fail(t, pe)
	}

	if f.Header.Opcode.IsControl() {
		return c.handleControlFrame(t, f)
	}

	if f.Header.Opcode != OpcodeContinuation {
		c.curOpcode = f.Header.Opcode
		c.curData = c.curData[:0]
	}
	c.curData = append(c.curData, f.Payload...)

	if c.cfg.MaxMessageSize != 0 && uint64(len(c.curData)) > c.cfg.MaxMessageSize {
		ce := &CapacityError{Err: ErrMessageTooLong, Size: uint64(len(c.curData)), Max: c.cfg.MaxMessageSize}
		return Message{}, true, c.fail(t, protoErr(ce, "", CloseMessageTooBig))
	}

	if !f.Header.Fin {
		return Message{}, false, nil
	}

	mtype := MessageText
	if c.curOpcode == OpcodeBinary {
		mtype = MessageBinary
	}
	data := c.curData
	c.curData = nil
	c.curOpcode = OpcodeContinuation

	if mtype == MessageText && !validUTF8(data) {
		return Message{}, true, c.fail(t, protoErr(ErrInvalidUTF8, "text message", CloseInvalidFramePayloadData))
	}

	return Message{Type: mtype, Data: data}, true, nil
}

func (c *Context) handleControlFrame(t Transport, f Frame) (msg Message, done bool, err error) {
	switch f.Header.Opcode {
	case OpcodePing:
		if c.cfg.AutoPong {
			c.enqueueControl(OpcodePong, f.Payload)
			_ = c.Flush(t)
		}
		return Message{}, false, nil

	case OpcodePong:
		return Message{}, false, nil

	case OpcodeClose:
		code, reason, perr := parseCloseFramePayload(f.Payload)
		if perr != nil {
			return Message{}, true, c.fail(t, perr)
		}
		c.peerCloseCode, c.peerCloseReason = code, reason

		if c.state == StateClosing {
			c.state = StateClosed
		} else {
			c.state = StatePeerClosing
			echo := code
			if !echo.validOnWire() {
				echo = CloseNormalClosure
			}
			c.enqueueControl(OpcodeClose, buildCloseFramePayload(echo, reason))
			c.state = StateClosed
			_ = c.Flush(t)
		}
		return Message{}, true, ErrConnectionClosed

	default:
		return Message{}, true, c.fail(t, protoErr(ErrUnknownOpcode, f.Header.Opcode.String(), CloseProtocolError))
	}
}

// fail records a protocol violation: it queues a Close frame carrying
// pe's close code (best effort; a full write buffer is not itself fatal
// here since the caller is abandoning the connection anyway) and marks
// the connection closed.
func (c *Context) fail(t Transport, pe *ProtocolError) error {
	if c.state != StateClosed {
		c.enqueueControl(OpcodeClose, buildCloseFramePayload(pe.CloseCode, pe.Reason))
		c.state = StateClosed
		_ = c.Flush(t)
	}
	if c.logger != nil {
		c.logger.Warn("websocket protocol violation", "error", pe.Err, "reason", pe.Reason, "close_code", pe.CloseCode)
	}
	return pe
}

func asProtocolError(err error) *ProtocolError {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe
	}
	var ce *CapacityError
	if errors.As(err, &ce) {
		return protoErr(ce, "", CloseMessageTooBig)
	}
	return protoErr(err, "", CloseProtocolError)
}

// Send encodes msg and appends it to the pending write buffer, splitting
// it into a sequence of Continuation frames when it exceeds MaxFrameSize
// (RFC 6455 Section 5.4): the first frame carries the real opcode with
// fin=false, middle frames are OpcodeContinuation with fin=false, and the
// last is OpcodeContinuation with fin=true. A message that fits in one
// frame is sent as a single fin=true frame with the real opcode, same as
// before fragmentation existed.
//
// If the buffered size was at or above WriteBufferSize before this call,
// or crosses it as a result, Send makes one opportunistic flush attempt
// through t; t may be nil, in which case no flush is attempted. A
// WouldBlock (or any other) flush error is swallowed here: the bytes stay
// buffered and a later Flush or Write call will retry.
func (c *Context) Send(t Transport, msg Message) error {
	switch c.state {
	case StateClosing, StatePeerClosing, StateClosed:
		return ErrSendAfterClosing
	}

	masked := c.role == RoleClient
	opcode := msg.Type.opcode()
	chunks := fragmentPayload(msg.Data, c.cfg.MaxFrameSize)

	var encoded []byte
	for i, chunk := range chunks {
		frameOpcode := opcode
		if i > 0 {
			frameOpcode = OpcodeContinuation
		}
		fin := i == len(chunks)-1
		buf, err := encodeFrame(encoded, fin, frameOpcode, chunk, masked, c.rng)
		if err != nil {
			return err
		}
		encoded = buf
	}

	if c.cfg.MaxWriteBufferSize != 0 && uint64(len(c.wbuf)+len(encoded)) > c.cfg.MaxWriteBufferSize {
		return &WriteBufferFullError{Message: msg}
	}
	c.wbuf = append(c.wbuf, encoded...)

	if t != nil && c.cfg.WriteBufferSize != 0 && len(c.wbuf) >= c.cfg.WriteBufferSize {
		_ = c.Flush(t)
	}
	return nil
}

// fragmentPayload splits data into chunks of at most maxFrameSize bytes.
// It always returns at least one chunk, even for empty data, so the
// caller emits exactly one frame per message when it already fits.
// maxFrameSize == 0 means unbounded: data is always returned whole.
func fragmentPayload(data []byte, maxFrameSize uint64) [][]byte {
	if maxFrameSize == 0 || uint64(len(data)) <= maxFrameSize {
		return [][]byte{data}
	}
	chunks := make([][]byte, 0, uint64(len(data))/maxFrameSize+1)
	for len(data) > 0 {
		n := maxFrameSize
		if uint64(len(data)) < n {
			n = uint64(len(data))
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks
}

// enqueueControl encodes and appends a control frame (Pong, unsolicited
// Ping, or Close), bypassing MaxWriteBufferSize: control frames are
// capped at 125 bytes by construction and some of them (the close echo)
// are mandatory for a clean shutdown.
func (c *Context) enqueueControl(opcode Opcode, payload []byte) {
	masked := c.role == RoleClient
	encoded, err := encodeFrame(nil, true, opcode, payload, masked, c.rng)
	if err != nil {
		return
	}
	c.wbuf = append(c.wbuf, encoded...)
}

// Ping enqueues an unsolicited Ping frame carrying data (at most 125
// bytes; longer payloads are truncated per RFC 6455 Section 5.5).
func (c *Context) Ping(data []byte) error {
	if len(data) > maxControlPayload {
		data = data[:maxControlPayload]
	}
	c.enqueueControl(OpcodePing, data)
	return nil
}

// Flush writes buffered bytes to t until the buffer is empty or t
// returns an error (including ErrWouldBlock, in which case the
// unflushed remainder stays buffered for the next Flush call).
func (c *Context) Flush(t Transport) error {
	for len(c.wbuf) > 0 {
		n, err := t.WriteSome(c.wbuf)
		c.wbuf = c.wbuf[n:]
		if err != nil {
			return err
		}
	}
	return nil
}

// Write enqueues msg and flushes it through t in one call.
func (c *Context) Write(t Transport, msg Message) error {
	if err := c.Send(t, msg); err != nil {
		return err
	}
	return c.Flush(t)
}

// Close begins (or completes) the close handshake: it enqueues a Close
// frame carrying code and reason, transitions the connection state, and
// flushes through t. Calling Close again after the handshake has
// completed returns ErrAlreadyClosed.
func (c *Context) Close(t Transport, code CloseCode, reason string) error {
	if c.state == StateClosed || c.state == StateClosing {
		return ErrAlreadyClosed
	}

	c.enqueueControl(OpcodeClose, buildCloseFramePayload(code, reason))
	if c.state == StatePeerClosing {
		c.state = StateClosed
	} else {
		c.state = StateClosing
	}
	return c.Flush(t)
}
