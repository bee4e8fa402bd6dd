package websocket

import "crypto/rand"

// RNG supplies the 4-byte frame masking key for every client-to-server
// frame. The default, [CryptoRNG], is cryptographically secure; tests
// substitute a deterministic fake so masking is reproducible. The client
// handshake's 16-byte Sec-WebSocket-Key nonce does not come from an RNG:
// [DialClient] always reads it from crypto/rand.
type RNG interface {
	// Read fills p entirely or returns an error; it never returns fewer
	// bytes than len(p) without an error, mirroring io.ReadFull semantics.
	Read(p []byte) (n int, err error)
}

// CryptoRNG is the default [RNG], backed by crypto/rand.
type CryptoRNG struct{}

func (CryptoRNG) Read(p []byte) (int, error) { return rand.Read(p) }

var defaultRNG RNG = CryptoRNG{}
