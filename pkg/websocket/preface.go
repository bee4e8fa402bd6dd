package websocket

import "net"

// prefaceConn serves buffered bytes the HTTP server already read off the
// wire (past the handshake response) before falling through to the
// underlying connection. http.Hijacker callers can get a bufio.Reader
// with buffered bytes in it; those bytes belong to the WebSocket stream.
type prefaceConn struct {
	net.Conn
	preface []byte
}

func (c *prefaceConn) Read(p []byte) (int, error) {
	if len(c.preface) > 0 {
		n := copy(p, c.preface)
		c.preface = c.preface[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}
