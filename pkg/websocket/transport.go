package websocket

import (
	"errors"
	"io"
	"net"
)

// Transport is the byte stream a [Context] or [Session] drives. It is
// deliberately narrower than net.Conn: just enough to read and write
// bytes without blocking forever. Implementations for a non-blocking or
// cooperative runtime return ErrWouldBlock (or wrap it) instead of
// blocking when no progress can currently be made; a blocking
// implementation (see [NetTransport]) simply never returns it.
type Transport interface {
	// ReadSome reads at least one byte into p and returns how many it
	// read, or an error. It returns ErrWouldBlock if no data is
	// currently available, and io.EOF once the peer has closed its
	// write side with no more data pending.
	ReadSome(p []byte) (n int, err error)

	// WriteSome writes at least one byte from p and returns how many it
	// wrote, or an error. It returns ErrWouldBlock if the underlying
	// stream cannot currently accept more data; the caller retains
	// ownership of the unwritten remainder of p and must retry it.
	WriteSome(p []byte) (n int, err error)
}

// NetTransport adapts a [net.Conn] to [Transport]. Because net.Conn reads
// and writes block by default, NetTransport never returns ErrWouldBlock;
// it is meant for the common case of driving the engine from an ordinary
// goroutine-per-connection blocking server or client.
type NetTransport struct {
	Conn net.Conn
}

func (t NetTransport) ReadSome(p []byte) (int, error) {
	n, err := t.Conn.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}
	return n, err
}

func (t NetTransport) WriteSome(p []byte) (int, error) {
	return t.Conn.Write(p)
}

// streamTransport adapts an io.ReadWriter (such as the hijacked
// connection body net/http hands back after a 101 response) to
// Transport. Like NetTransport it blocks rather than returning
// ErrWouldBlock.
type streamTransport struct {
	rw io.ReadWriter
}

func (t streamTransport) ReadSome(p []byte) (int, error)  { return t.rw.Read(p) }
func (t streamTransport) WriteSome(p []byte) (int, error) { return t.rw.Write(p) }
