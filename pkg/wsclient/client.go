// Package wsclient is a goroutine/channel convenience wrapper around
// [websocket.Session] for callers who want a long-running connection
// that reconnects automatically instead of driving the sans-IO engine
// themselves. It depends on pkg/websocket but pkg/websocket never
// depends on it: the core engine stays free of any built-in concurrency
// model, per its own design.
package wsclient

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/corewire/wsio/internal/logger"
	"github.com/corewire/wsio/pkg/websocket"
)

// URLFunc resolves the URL to dial, evaluated again on every
// (re)connection attempt so it can hand out freshly signed URLs or
// rotate between endpoints.
type URLFunc func(ctx context.Context) (string, error)

// Client manages a long-running WebSocket connection, reconnecting
// automatically with unbounded retries on disconnection and relaying
// every received [websocket.Message] onto a channel subscribers read
// from.
type Client struct {
	logger *slog.Logger
	url    URLFunc
	opts   []websocket.DialOpt

	sess    *Session
	inbox   chan websocket.Message
	refresh *time.Timer
}

// Session is a thin alias kept local so callers of this package never
// need to import pkg/websocket just to name the type.
type Session = websocket.Session

// Dial establishes the initial connection and starts the background
// relay goroutine. Use [Client.Messages] to consume incoming messages
// and [Client.Send]/[Client.SendJSON] to write.
func Dial(ctx context.Context, url URLFunc, opts ...websocket.DialOpt) (*Client, error) {
	sess, err := dial(ctx, url, opts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger: logger.FromContext(ctx),
		url:    url,
		opts:   opts,
		sess:   sess,
		inbox:  make(chan websocket.Message),
	}
	go c.relay(ctx)
	return c, nil
}

func dial(ctx context.Context, f URLFunc, opts ...websocket.DialOpt) (*Session, error) {
	url, err := f(ctx)
	if err != nil {
		return nil, err
	}
	return websocket.DialClient(ctx, url, opts...)
}

// relay runs for the lifetime of the Client, forwarding messages from
// the active session onto inbox and transparently reconnecting (with
// unbounded retries) whenever the session ends.
func (c *Client) relay(ctx context.Context) {
	for {
		msg, err := c.sess.Read()
		if err == nil {
			c.inbox <- msg
			continue
		}

		select {
		case <-ctx.Done():
			close(c.inbox)
			return
		default:
		}

		c.reconnect(ctx)
	}
}

func (c *Client) reconnect(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		sess, err := dial(ctx, c.url, c.opts...)
		if err == nil {
			c.sess = sess
			return
		}
		c.logger.Error("failed to reconnect WebSocket client", slog.Any("error", err), slog.Int("attempt", attempt))

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff(attempt)):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * 500 * time.Millisecond
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Messages returns the channel that publishes every data message
// received from the server across reconnections. It closes once the
// Client's context is done.
func (c *Client) Messages() <-chan websocket.Message {
	return c.inbox
}

// RefreshIn schedules the connection to be seamlessly replaced after d,
// useful when a disconnection window is known in advance (e.g. a load
// balancer drain) and should be preempted rather than waited out.
func (c *Client) RefreshIn(ctx context.Context, d time.Duration) {
	if c.refresh != nil {
		c.refresh.Stop()
	}

	c.refresh = time.AfterFunc(d, func() {
		sess, err := dial(ctx, c.url, c.opts...)
		if err != nil {
			c.logger.Error("failed to refresh WebSocket connection", slog.Any("error", err))
			return
		}
		old := c.sess
		c.sess = sess
		_ = old.Close(websocket.CloseGoingAway, "")
	})
}

// Send writes a text message on the current session.
func (c *Client) Send(text string) error {
	return c.sess.WriteText(text)
}

// SendJSON marshals v and sends it as a text message.
func (c *Client) SendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.sess.WriteText(string(b))
}

// Close ends the connection.
func (c *Client) Close() error {
	if c.refresh != nil {
		c.refresh.Stop()
	}
	return c.sess.Close(websocket.CloseNormalClosure, "")
}
