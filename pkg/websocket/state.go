package websocket

// ConnectionState tracks where a [Context] sits in the WebSocket
// lifecycle, from handshake completion through the close handshake.
type ConnectionState int

const (
	// StateOpen is the steady state: both data and control frames may
	// be sent and received.
	StateOpen ConnectionState = iota
	// StateClosing means a Close frame has been sent locally (via
	// Context.Close) but the peer's Close frame has not yet arrived.
	// Outbound data messages are rejected with ErrSendAfterClosing.
	StateClosing
	// StatePeerClosing means a Close frame has been received from the
	// peer but the local echo Close frame has not yet been sent.
	StatePeerClosing
	// StateClosed means both sides' Close frames have been exchanged,
	// or the connection failed and was aborted. No further I/O is
	// possible.
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StatePeerClosing:
		return "peer-closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
