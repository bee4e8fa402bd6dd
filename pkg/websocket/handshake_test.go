package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestAcceptValueKnownAnswer is the worked example from
// https://datatracker.ietf.org/doc/html/rfc6455#section-1.3.
func TestAcceptValueKnownAnswer(t *testing.T) {
	const key = "dGhlIHNhbXBsZSBub25jZQ=="
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="

	if got := acceptValue(key); got != want {
		t.Errorf("acceptValue(%q) = %q, want %q", key, got, want)
	}
}

func TestConnectionHasUpgradeToken(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"Upgrade", true},
		{"upgrade", true},
		{"keep-alive, Upgrade", true},
		{"Upgrade, keep-alive", true},
		{"keep-alive", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := connectionHasUpgradeToken(tt.value); got != tt.want {
			t.Errorf("connectionHasUpgradeToken(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestDialAcceptRoundTrip(t *testing.T) {
	var serverErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := AcceptServer(w, r)
		if err != nil {
			serverErr = err
			return
		}
		defer sess.Close(CloseNormalClosure, "")

		msg, err := sess.Read()
		if err != nil {
			serverErr = err
			return
		}
		if err := sess.WriteText("echo: " + msg.Text()); err != nil {
			serverErr = err
		}
	})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := DialClient(ctx, wsURL)
	if err != nil {
		t.Fatalf("DialClient: %v", err)
	}
	defer client.Close(CloseNormalClosure, "")

	if err := client.WriteText("ping"); err != nil {
		t.Fatalf("WriteText: %v", err)
	}

	msg, err := client.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := "echo: ping"; msg.Text() != want {
		t.Fatalf("got %q, want %q", msg.Text(), want)
	}
	if serverErr != nil {
		t.Fatalf("server error: %v", serverErr)
	}
}

func TestAcceptServerRejectsMissingUpgradeHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	rec := httptest.NewRecorder()
	_, err := AcceptServer(rec, req)
	if err == nil {
		t.Fatal("expected error for missing Upgrade header")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAcceptServerRejectsVersionMismatchWith426(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Sec-WebSocket-Version", "8")

	rec := httptest.NewRecorder()
	_, err := AcceptServer(rec, req)
	if err == nil {
		t.Fatal("expected error for version mismatch")
	}
	if rec.Code != http.StatusUpgradeRequired {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusUpgradeRequired)
	}
	if got := rec.Header().Get("Sec-WebSocket-Version"); got != "13" {
		t.Errorf("got Sec-WebSocket-Version %q, want \"13\"", got)
	}
}

func TestNegotiateSubprotocol(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Sec-WebSocket-Protocol", "chat, superchat")

	if got := negotiateSubprotocol(req, []string{"superchat"}); got != "superchat" {
		t.Errorf("got %q, want superchat", got)
	}
	if got := negotiateSubprotocol(req, []string{"unsupported"}); got != "" {
		t.Errorf("got %q, want empty", got)
	}
	if got := negotiateSubprotocol(req, nil); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
