package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/corewire/wsio/internal/logger"
)

// AcceptOpt customizes [AcceptServer].
type AcceptOpt func(*acceptOptions)

type acceptOptions struct {
	checkOrigin func(*http.Request) bool
	subprotos   []string
	cfgOptions  []ConfigOption
}

// WithCheckOrigin supplies a predicate the server handshake runs against
// the incoming request before accepting; returning false rejects the
// upgrade with 403 Forbidden. The default (nil) accepts every origin,
// which is appropriate for APIs with no browser-based clients and
// dangerous otherwise.
func WithCheckOrigin(f func(*http.Request) bool) AcceptOpt {
	return func(o *acceptOptions) { o.checkOrigin = f }
}

// WithSubprotocols lists the subprotocols the server is willing to
// speak, in preference order; the first one the client also requested
// (via Sec-WebSocket-Protocol) is selected and echoed back.
func WithSubprotocols(protos ...string) AcceptOpt {
	return func(o *acceptOptions) { o.subprotos = protos }
}

// WithServerConfig sets the [Config] the resulting Session's Context is
// built with.
func WithServerConfig(opts ...ConfigOption) AcceptOpt {
	return func(o *acceptOptions) { o.cfgOptions = append(o.cfgOptions, opts...) }
}

// AcceptServer performs the server-side WebSocket opening handshake
// (RFC 6455 Section 4.2) against an incoming HTTP request, hijacking the
// underlying connection on success and returning a ready-to-use
// [Session]. On failure it writes an appropriate HTTP error response
// itself (the hijack hasn't happened yet, so w is still usable) and
// returns a non-nil error; the caller should not write to w afterward.
func AcceptServer(w http.ResponseWriter, r *http.Request, opts ...AcceptOpt) (*Session, error) {
	o := &acceptOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if err := checkHandshakeRequest(r); err != nil {
		if errors.Is(err, ErrVersionMismatch) {
			w.Header().Set("Sec-WebSocket-Version", "13")
			http.Error(w, err.Error(), http.StatusUpgradeRequired)
			return nil, err
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	if o.checkOrigin != nil && !o.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return nil, fmt.Errorf("websocket: %w: origin %q rejected", ErrAttackAttempt, r.Header.Get("Origin"))
	}

	key := r.Header.Get("Sec-WebSocket-Key")
	subproto := negotiateSubprotocol(r, o.subprotos)

	cfg, err := NewConfig(o.cfgOptions...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		err := fmt.Errorf("websocket: response writer %T does not support hijacking", w)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return nil, err
	}

	w.Header().Set("Upgrade", "websocket")
	w.Header().Set("Connection", "Upgrade")
	w.Header().Set("Sec-WebSocket-Accept", acceptValue(key))
	if subproto != "" {
		w.Header().Set("Sec-WebSocket-Protocol", subproto)
	}
	w.WriteHeader(http.StatusSwitchingProtocols)

	netConn, bufrw, err := hijacker.Hijack()
	if err != nil {
		return nil, fmt.Errorf("websocket: failed to hijack connection: %w", err)
	}
	if bufrw != nil && bufrw.Reader.Buffered() > 0 {
		// A pipelined client sent bytes past the handshake before we
		// hijacked; they belong to the WebSocket stream, not HTTP.
		leftover, _ := bufrw.Reader.Peek(bufrw.Reader.Buffered())
		netConn = &prefaceConn{Conn: netConn, preface: append([]byte(nil), leftover...)}
	}

	l := logger.FromContext(r.Context())
	cctx := NewContext(RoleServer, cfg, WithLogger(l))
	sess := NewSession(cctx, NetTransport{Conn: netConn}, netConn)

	l.Debug("websocket server handshake complete", "remote", r.RemoteAddr, "subprotocol", subproto, "session_id", sess.ID())
	return sess, nil
}

// checkHandshakeRequest validates the request line and headers against
// https://datatracker.ietf.org/doc/html/rfc6455#section-4.2.1.
func checkHandshakeRequest(r *http.Request) error {
	if r.Method != http.MethodGet {
		return fmt.Errorf("%w: method %q", ErrHTTPFormat, r.Method)
	}
	if !headerEqualFold(r.Header.Get("Upgrade"), "websocket") {
		return fmt.Errorf("%w: Upgrade header %q", ErrMissingConnectionUpgrade, r.Header.Get("Upgrade"))
	}
	if !connectionHasUpgradeToken(r.Header.Get("Connection")) {
		return fmt.Errorf("%w: Connection header %q", ErrMissingConnectionUpgrade, r.Header.Get("Connection"))
	}
	if r.Header.Get("Sec-WebSocket-Key") == "" {
		return fmt.Errorf("%w: missing Sec-WebSocket-Key", ErrHTTPFormat)
	}
	if r.Header.Get("Sec-WebSocket-Version") != "13" {
		return fmt.Errorf("%w: got %q, want \"13\"", ErrVersionMismatch, r.Header.Get("Sec-WebSocket-Version"))
	}
	return nil
}

// negotiateSubprotocol picks the first server-preferred subprotocol the
// client also listed in Sec-WebSocket-Protocol, or "" if none match (or
// none were offered).
func negotiateSubprotocol(r *http.Request, serverProtos []string) string {
	if len(serverProtos) == 0 {
		return ""
	}
	client := map[string]bool{}
	for _, line := range r.Header["Sec-Websocket-Protocol"] {
		for _, p := range strings.Split(line, ",") {
			if p = strings.TrimSpace(p); p != "" {
				client[p] = true
			}
		}
	}
	for _, p := range serverProtos {
		if client[p] {
			return p
		}
	}
	return ""
}
