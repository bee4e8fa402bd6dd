package websocket

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

// loopbackTransport is an in-memory, unbounded-buffer Transport used to
// exercise Context without a real socket. WriteSome never blocks and
// always succeeds; ReadSome returns ErrWouldBlock instead of blocking
// when its inbox is empty, matching what a non-blocking runtime's
// Transport is expected to do.
type loopbackTransport struct {
	mu    sync.Mutex
	inbox *bytes.Buffer
	peer  *loopbackTransport
}

func newLoopbackPair() (a, b *loopbackTransport) {
	a = &loopbackTransport{inbox: &bytes.Buffer{}}
	b = &loopbackTransport{inbox: &bytes.Buffer{}}
	a.peer, b.peer = b, a
	return a, b
}

func (t *loopbackTransport) ReadSome(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inbox.Len() == 0 {
		return 0, ErrWouldBlock
	}
	return t.inbox.Read(p)
}

func (t *loopbackTransport) WriteSome(p []byte) (int, error) {
	t.peer.mu.Lock()
	defer t.peer.mu.Unlock()
	return t.peer.inbox.Write(p)
}

type fixedRNG struct{ key [4]byte }

func (r fixedRNG) Read(p []byte) (int, error) {
	return copy(p, r.key[:]), nil
}

func defaultTestConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	return cfg
}

func pipePair(t *testing.T, cfg Config) (client, server *Session) {
	t.Helper()
	ta, tb := newLoopbackPair()

	clientCtx := NewContext(RoleClient, cfg, WithRNG(fixedRNG{[4]byte{1, 2, 3, 4}}))
	serverCtx := NewContext(RoleServer, cfg)

	client = NewSession(clientCtx, ta, nopCloser{})
	server = NewSession(serverCtx, tb, nopCloser{})
	return client, server
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// readUntilReady retries Read until it returns something other than
// ErrWouldBlock, for transports (like loopbackTransport) where that can
// legitimately happen a few times while the peer's writes land.
func readUntilReady(t *testing.T, s *Session) (Message, error) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		msg, err := s.Read()
		if !errors.Is(err, ErrWouldBlock) {
			return msg, err
		}
	}
	t.Fatal("readUntilReady: gave up waiting for data")
	return Message{}, nil
}

func TestContextSendReceiveTextMessage(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, server := pipePair(t, cfg)

	if err := client.WriteText("hello over the wire"); err != nil {
		t.Fatalf("client.WriteText: %v", err)
	}

	msg, err := readUntilReady(t, server)
	if err != nil {
		t.Fatalf("server.Read: %v", err)
	}
	if msg.Type != MessageText || msg.Text() != "hello over the wire" {
		t.Fatalf("got %+v", msg)
	}
}

func TestContextSendReceiveBinaryMessage(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, server := pipePair(t, cfg)

	payload := []byte{0, 1, 2, 3, 255, 254}
	if err := server.WriteBinary(payload); err != nil {
		t.Fatalf("server.WriteBinary: %v", err)
	}

	msg, err := readUntilReady(t, client)
	if err != nil {
		t.Fatalf("client.Read: %v", err)
	}
	if msg.Type != MessageBinary {
		t.Fatalf("got type %v, want binary", msg.Type)
	}
	if string(msg.Data) != string(payload) {
		t.Fatalf("got %v, want %v", msg.Data, payload)
	}
}

func TestContextAutoPong(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, server := pipePair(t, cfg)

	if err := client.Ping([]byte("ping-data")); err != nil {
		t.Fatalf("client.Ping: %v", err)
	}

	// Draining the ping on the server side auto-enqueues and flushes a
	// Pong; WouldBlock here just means "nothing but the ping arrived".
	_, err := server.Read()
	if err != nil && !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("server.Read: %v", err)
	}

	// The pong now sits in the client's inbox; a subsequent Read should
	// see it consumed internally (control frames never surface as a
	// Message) and return WouldBlock since nothing else was sent.
	_, err = client.Read()
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("client.Read after pong = %v, want ErrWouldBlock", err)
	}
}

func TestContextFragmentedMessageReassembly(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, server := pipePair(t, cfg)

	// Manually drive fragmentation at the frame level: encode three
	// frames (start, continuation, final) directly onto the wire. This
	// exercises reassembly independently of Context.Send's own
	// fragmentation (covered separately below).
	f1, _ := encodeFrame(nil, false, OpcodeText, []byte("frag-one-"), true, fixedRNG{[4]byte{1, 1, 1, 1}})
	f2, _ := encodeFrame(nil, false, OpcodeContinuation, []byte("frag-two-"), true, fixedRNG{[4]byte{2, 2, 2, 2}})
	f3, _ := encodeFrame(nil, true, OpcodeContinuation, []byte("frag-three"), true, fixedRNG{[4]byte{3, 3, 3, 3}})
	wire := append(append(f1, f2...), f3...)
	if err := writeAll(client.transport, wire); err != nil {
		t.Fatalf("writeAll: %v", err)
	}

	msg, err := readUntilReady(t, server)
	if err != nil {
		t.Fatalf("server.Read: %v", err)
	}
	want := "frag-one-frag-two-frag-three"
	if msg.Text() != want {
		t.Fatalf("got %q, want %q", msg.Text(), want)
	}
}

func TestContextInvalidUTF8Fails(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, server := pipePair(t, cfg)

	bad := []byte{0xff, 0xfe, 0xfd}
	f, _ := encodeFrame(nil, true, OpcodeText, bad, true, fixedRNG{[4]byte{7, 7, 7, 7}})
	if err := writeAll(client.transport, f); err != nil {
		t.Fatalf("writeAll: %v", err)
	}

	_, err := server.Read()
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *ProtocolError", err)
	}
	if !errors.Is(pe, ErrInvalidUTF8) {
		t.Fatalf("got %v, want ErrInvalidUTF8", pe)
	}
	if pe.CloseCode != CloseInvalidFramePayloadData {
		t.Errorf("got close code %v, want %v", pe.CloseCode, CloseInvalidFramePayloadData)
	}
}

func TestContextCloseHandshake(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, server := pipePair(t, cfg)

	if err := client.Close(CloseNormalClosure, "done"); err != nil {
		t.Fatalf("client.Close: %v", err)
	}

	_, err := readUntilReady(t, server)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("server.Read = %v, want ErrConnectionClosed", err)
	}
	if server.Context().PeerCloseCode() != CloseNormalClosure {
		t.Errorf("got peer close code %v, want %v", server.Context().PeerCloseCode(), CloseNormalClosure)
	}
	if server.Context().PeerCloseReason() != "done" {
		t.Errorf("got peer close reason %q, want %q", server.Context().PeerCloseReason(), "done")
	}

	// The server's echo must carry the same reason back to the client.
	_, err = readUntilReady(t, client)
	if !errors.Is(err, ErrConnectionClosed) {
		t.Fatalf("client.Read = %v, want ErrConnectionClosed", err)
	}
	if client.Context().PeerCloseReason() != "done" {
		t.Errorf("got echoed close reason %q, want %q", client.Context().PeerCloseReason(), "done")
	}
}

func TestContextSendAfterClosingRejected(t *testing.T) {
	cfg := defaultTestConfig(t)
	client, _ := pipePair(t, cfg)

	if err := client.Close(CloseNormalClosure, ""); err != nil {
		t.Fatalf("client.Close: %v", err)
	}

	err := client.Context().Send(client.transport, NewTextMessage("too late"))
	if !errors.Is(err, ErrSendAfterClosing) {
		t.Fatalf("got %v, want ErrSendAfterClosing", err)
	}
}

func TestContextSendFragmentsOverMaxFrameSize(t *testing.T) {
	cfg, err := NewConfig(WithMaxFrameSize(10), WithMaxMessageSize(1<<20))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	client, server := pipePair(t, cfg)

	payload := bytes.Repeat([]byte{'z'}, 25)
	if err := client.WriteBinary(payload); err != nil {
		t.Fatalf("client.WriteBinary: %v", err)
	}

	var frames []Frame
	wire := server.transport.(*loopbackTransport).inbox.Bytes()
	for off := 0; off < len(wire); {
		f, n, err := decodeFrame(wire[off:], 0)
		if err != nil {
			t.Fatalf("decodeFrame at %d: %v", off, err)
		}
		frames = append(frames, f)
		off += n
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[0].Header.Opcode != OpcodeBinary || frames[0].Header.Fin {
		t.Errorf("frame 0: opcode=%v fin=%v, want Binary/fin=false", frames[0].Header.Opcode, frames[0].Header.Fin)
	}
	if frames[1].Header.Opcode != OpcodeContinuation || frames[1].Header.Fin {
		t.Errorf("frame 1: opcode=%v fin=%v, want Continuation/fin=false", frames[1].Header.Opcode, frames[1].Header.Fin)
	}
	if frames[2].Header.Opcode != OpcodeContinuation || !frames[2].Header.Fin {
		t.Errorf("frame 2: opcode=%v fin=%v, want Continuation/fin=true", frames[2].Header.Opcode, frames[2].Header.Fin)
	}
	for _, f := range frames {
		if len(f.Payload) > 10 {
			t.Errorf("frame payload length %d exceeds MaxFrameSize 10", len(f.Payload))
		}
	}

	msg, err := readUntilReady(t, server)
	if err != nil {
		t.Fatalf("server.Read: %v", err)
	}
	if string(msg.Data) != string(payload) {
		t.Fatalf("got %v, want %v", msg.Data, payload)
	}
}

func TestContextSendFlushesOnceWriteBufferSizeCrossed(t *testing.T) {
	cfg, err := NewConfig(WithWriteBufferSize(16), WithMaxWriteBufferSize(1<<20))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	client, server := pipePair(t, cfg)

	// A single Send call below WriteBufferSize should stay buffered.
	if err := client.Context().Send(client.transport, NewTextMessage("hi")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := server.transport.(*loopbackTransport).inbox.Len(); n != 0 {
		t.Fatalf("after small Send, peer inbox has %d bytes, want 0 (nothing flushed yet)", n)
	}

	// A Send that pushes the buffered size past WriteBufferSize (16) should
	// trigger an opportunistic flush without an explicit Flush call.
	if err := client.Context().Send(client.transport, NewTextMessage("this pushes it over sixteen bytes")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if n := server.transport.(*loopbackTransport).inbox.Len(); n == 0 {
		t.Fatal("after crossing WriteBufferSize, peer inbox is still empty, want opportunistic flush")
	}
}

func TestContextMaxMessageSizeExceeded(t *testing.T) {
	cfg, err := NewConfig(WithMaxMessageSize(4))
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	client, server := pipePair(t, cfg)

	f, _ := encodeFrame(nil, true, OpcodeText, []byte("too long"), true, fixedRNG{[4]byte{4, 4, 4, 4}})
	if err := writeAll(client.transport, f); err != nil {
		t.Fatalf("writeAll: %v", err)
	}

	_, err = server.Read()
	var ce *CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want *CapacityError", err)
	}
}

// writeAll pushes every byte of p through t; tests use it to place
// hand-crafted frames on the wire that Context's own Send cannot produce.
func writeAll(t Transport, p []byte) error {
	for len(p) > 0 {
		n, err := t.WriteSome(p)
		p = p[n:]
		if err != nil {
			return err
		}
	}
	return nil
}
