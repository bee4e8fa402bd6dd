package websocket

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/corewire/wsio/internal/logger"
)

// DialOpt customizes [DialClient].
type DialOpt func(*dialOptions)

type dialOptions struct {
	client     *http.Client
	headers    http.Header
	nonceGen   io.Reader
	cfg        Config
	cfgOptions []ConfigOption
}

// WithHTTPClient lets [DialClient] callers specify a custom [http.Client]
// for the handshake, instead of [http.DefaultClient].
//
// Do not set a custom Timeout on the client: it would apply to the
// long-lived connection beyond the handshake. Use [context.WithTimeout]
// on the ctx passed to DialClient instead.
func WithHTTPClient(hc *http.Client) DialOpt {
	return func(o *dialOptions) { o.client = hc }
}

// WithHTTPHeader adds a single header to the handshake request.
func WithHTTPHeader(key, value string) DialOpt {
	return func(o *dialOptions) { o.headers.Add(key, value) }
}

// WithHTTPHeaders adds multiple headers to the handshake request.
func WithHTTPHeaders(hs http.Header) DialOpt {
	return func(o *dialOptions) {
		for k, vs := range hs {
			for _, v := range vs {
				o.headers.Add(k, v)
			}
		}
	}
}

// WithConfig sets the [Config] (size limits etc.) the resulting Session's
// Context is built with.
func WithConfig(opts ...ConfigOption) DialOpt {
	return func(o *dialOptions) { o.cfgOptions = append(o.cfgOptions, opts...) }
}

// DialClient performs the client-side WebSocket opening handshake
// (RFC 6455 Section 4.1) against wsURL ("ws://..." or "wss://...") and,
// on success, returns a ready-to-use [Session] over the upgraded
// connection that net/http hands back as the 101 response body.
func DialClient(ctx context.Context, wsURL string, opts ...DialOpt) (*Session, error) {
	o := &dialOptions{headers: http.Header{}, nonceGen: rand.Reader}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		client = http.DefaultClient
	}
	client = adjustRedirectScheme(client)

	cfg, err := NewConfig(o.cfgOptions...)
	if err != nil {
		return nil, err
	}

	nonce, err := generateNonce(o.nonceGen)
	if err != nil {
		return nil, fmt.Errorf("websocket: failed to generate handshake nonce: %w", err)
	}

	req, err := handshakeRequest(ctx, wsURL, nonce, o.headers)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websocket: handshake request failed: %w", err)
	}
	if err := checkHandshakeResponse(resp, nonce); err != nil {
		_ = resp.Body.Close()
		return nil, err
	}

	rwc, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		return nil, fmt.Errorf("websocket: handshake response body type: got %T, want io.ReadWriteCloser", resp.Body)
	}

	l := logger.FromContext(ctx)
	cctx := NewContext(RoleClient, cfg, WithLogger(l))
	sess := NewSession(cctx, streamTransport{rwc}, rwc)

	l.Debug("websocket client handshake complete", slog.String("url", wsURL), slog.String("session_id", sess.ID()))
	return sess, nil
}

// adjustRedirectScheme returns a shallow copy of client whose
// CheckRedirect rewrites ws/wss redirect targets to http/https, so the
// underlying net/http machinery (which knows nothing about the ws/wss
// schemes) can follow them.
func adjustRedirectScheme(client *http.Client) *http.Client {
	c := *client
	orig := c.CheckRedirect
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		switch req.URL.Scheme {
		case "ws":
			req.URL.Scheme = "http"
		case "wss":
			req.URL.Scheme = "https"
		}
		if orig != nil {
			return orig(req, via)
		}
		if len(via) >= 10 {
			return fmt.Errorf("websocket: stopped after %d redirects", len(via))
		}
		return nil
	}
	return &c
}

// generateNonce returns a randomly selected 16-byte value, Base64-encoded,
// as required by https://datatracker.ietf.org/doc/html/rfc6455#section-4.1.
func generateNonce(r io.Reader) (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func handshakeRequest(ctx context.Context, wsURL, nonce string, headers http.Header) (*http.Request, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unexpected scheme %q", ErrInvalidURL, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: failed to build handshake request: %w", err)
	}

	req.Header = headers.Clone()
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Key", nonce)
	req.Header.Set("Sec-WebSocket-Version", "13")

	return req, nil
}

// checkHandshakeResponse validates the server's response against
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.2.
func checkHandshakeResponse(resp *http.Response, nonce string) error {
	if resp.StatusCode != http.StatusSwitchingProtocols {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &HTTPResponseError{Response: resp, Body: body}
	}

	if !headerEqualFold(resp.Header.Get("Upgrade"), "websocket") {
		return fmt.Errorf("%w: Upgrade header %q", ErrMissingConnectionUpgrade, resp.Header.Get("Upgrade"))
	}
	if !connectionHasUpgradeToken(resp.Header.Get("Connection")) {
		return fmt.Errorf("%w: Connection header %q", ErrMissingConnectionUpgrade, resp.Header.Get("Connection"))
	}

	want := acceptValue(nonce)
	got := resp.Header.Get("Sec-WebSocket-Accept")
	if got != want {
		return fmt.Errorf("%w: got %q, want %q", ErrAcceptMismatch, got, want)
	}

	return nil
}
