// Command wsecho-auth is an echo server that requires a valid JWT bearer
// token before completing the WebSocket handshake, demonstrating how an
// application gates access above the handshake layer.
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corewire/wsio/internal/logger"
	"github.com/corewire/wsio/pkg/websocket"
)

const listenAddr = ":8088"

func main() {
	secret := []byte(os.Getenv("WSECHO_JWT_SECRET"))
	if len(secret) == 0 {
		logger.FatalError("startup error", errors.New("WSECHO_JWT_SECRET must be set"))
	}

	http.HandleFunc("/echo", echoHandler(secret))

	slog.Info("listening", slog.String("addr", listenAddr))
	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		logger.FatalError("server error", err)
	}
}

func echoHandler(secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := authenticate(r, secret); err != nil {
			http.Error(w, "unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}

		sess, err := websocket.AcceptServer(w, r)
		if err != nil {
			slog.Error("handshake failed", slog.Any("error", err))
			return
		}
		defer sess.Close(websocket.CloseNormalClosure, "")

		for {
			msg, err := sess.Read()
			if err != nil {
				if !errors.Is(err, websocket.ErrConnectionClosed) {
					slog.Warn("read error", slog.Any("error", err))
				}
				return
			}
			if err := sess.Write(msg); err != nil {
				slog.Warn("write error", slog.Any("error", err))
				return
			}
		}
	}
}

// authenticate validates the bearer token in the Authorization header
// against secret, using HMAC-SHA256 (HS256).
func authenticate(r *http.Request, secret []byte) error {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return errors.New("missing bearer token")
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	return err
}
