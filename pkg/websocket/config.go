package websocket

import "fmt"

// Default size limits, chosen to bound memory use while staying well
// above what any legitimate chat/control-plane message needs. Callers
// that need larger frames (bulk file transfer over WebSocket, say) raise
// them explicitly with the With* options.
const (
	DefaultReadBufferSize    = 128 << 10 // 128 KiB
	DefaultWriteBufferSize   = 128 << 10 // 128 KiB
	DefaultMaxFrameSize      = 16 << 20  // 16 MiB
	DefaultMaxMessageSize    = 64 << 20  // 64 MiB
	DefaultMaxWriteBufferSize = 64 << 20 // 64 MiB
	DefaultMaxHandshakeHeaders = 64
	DefaultMaxHandshakeHeaderLine = 8 << 10 // 8 KiB
)

// Config holds the size limits and behavioral knobs a [Context] is built
// with. Use [NewConfig] with [ConfigOption] functions rather than
// constructing Config directly, so future fields get sane defaults.
type Config struct {
	ReadBufferSize    int
	WriteBufferSize   int
	MaxFrameSize      uint64
	MaxMessageSize    uint64
	MaxWriteBufferSize uint64

	MaxHandshakeHeaders     int
	MaxHandshakeHeaderLine  int

	// AutoPong controls whether the Context auto-enqueues a Pong in
	// reply to every received Ping (per RFC 6455 Section 5.5.2). It
	// defaults to true; disable it only if the caller wants to
	// customize or delay Pong replies itself.
	AutoPong bool
}

// ConfigOption customizes a [Config] built by [NewConfig].
type ConfigOption func(*Config)

// WithReadBufferSize sets the initial size of the read buffer.
func WithReadBufferSize(n int) ConfigOption {
	return func(c *Config) { c.ReadBufferSize = n }
}

// WithWriteBufferSize sets both the initial capacity of the write buffer
// and the soft threshold at which [Context.Send] makes an opportunistic
// flush attempt. Crossing it doesn't block or fail the call; it just
// means Send tries to hand bytes to the Transport instead of letting them
// sit buffered until the next explicit Flush/Write.
func WithWriteBufferSize(n int) ConfigOption {
	return func(c *Config) { c.WriteBufferSize = n }
}

// WithMaxFrameSize caps the payload length of any single frame. Zero
// means unbounded.
func WithMaxFrameSize(n uint64) ConfigOption {
	return func(c *Config) { c.MaxFrameSize = n }
}

// WithMaxMessageSize caps the total reassembled size of a fragmented
// message. Zero means unbounded.
func WithMaxMessageSize(n uint64) ConfigOption {
	return func(c *Config) { c.MaxMessageSize = n }
}

// WithMaxWriteBufferSize caps how many encoded-but-unflushed bytes
// [Context.Write]/[Context.Send] will accumulate before returning
// [WriteBufferFullError]. A non-zero value must be strictly greater than
// WriteBufferSize, since the write buffer itself needs room to grow
// toward the cap. Zero means unbounded.
func WithMaxWriteBufferSize(n uint64) ConfigOption {
	return func(c *Config) { c.MaxWriteBufferSize = n }
}

// WithMaxHandshakeHeaders sets Config.MaxHandshakeHeaders. The handshakes
// in this package go through net/http and do not read this field, so it
// does not limit them and nothing returns ErrTooManyHeaders for it.
func WithMaxHandshakeHeaders(n int) ConfigOption {
	return func(c *Config) { c.MaxHandshakeHeaders = n }
}

// WithMaxHandshakeHeaderLine sets Config.MaxHandshakeHeaderLine. The
// handshakes in this package go through net/http and do not read this
// field, so it does not limit them and nothing returns ErrHeaderTooLong
// for it.
func WithMaxHandshakeHeaderLine(n int) ConfigOption {
	return func(c *Config) { c.MaxHandshakeHeaderLine = n }
}

// WithAutoPong enables or disables automatic Pong replies to received
// Pings.
func WithAutoPong(enabled bool) ConfigOption {
	return func(c *Config) { c.AutoPong = enabled }
}

// NewConfig builds a [Config] starting from the package defaults and
// applying opts in order.
func NewConfig(opts ...ConfigOption) (Config, error) {
	c := Config{
		ReadBufferSize:         DefaultReadBufferSize,
		WriteBufferSize:        DefaultWriteBufferSize,
		MaxFrameSize:           DefaultMaxFrameSize,
		MaxMessageSize:         DefaultMaxMessageSize,
		MaxWriteBufferSize:     DefaultMaxWriteBufferSize,
		MaxHandshakeHeaders:    DefaultMaxHandshakeHeaders,
		MaxHandshakeHeaderLine: DefaultMaxHandshakeHeaderLine,
		AutoPong:               true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("websocket: ReadBufferSize must be positive, got %d", c.ReadBufferSize)
	}
	if c.WriteBufferSize <= 0 {
		return fmt.Errorf("websocket: WriteBufferSize must be positive, got %d", c.WriteBufferSize)
	}
	if c.MaxWriteBufferSize != 0 && c.MaxWriteBufferSize <= uint64(c.WriteBufferSize) {
		return fmt.Errorf("websocket: MaxWriteBufferSize (%d) must exceed WriteBufferSize (%d)",
			c.MaxWriteBufferSize, c.WriteBufferSize)
	}
	return nil
}
