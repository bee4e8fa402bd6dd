// Command autobahn-server runs an echo server against the fuzzing
// client of the [Autobahn Testsuite], so the server-side handshake and
// the decode/reassembly path get conformance coverage the client-only
// suite can't reach.
//
// [Autobahn Testsuite]: https://github.com/crossbario/autobahn-testsuite
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/corewire/wsio/internal/logger"
	"github.com/corewire/wsio/pkg/websocket"
	"github.com/corewire/wsio/pkg/wsmetrics"
)

const listenAddr = ":9002"

func main() {
	http.HandleFunc("/", echo)

	slog.Info("listening", slog.String("addr", listenAddr))
	if err := http.ListenAndServe(listenAddr, nil); err != nil {
		logger.FatalError("server error", err)
	}
}

var metricsLogger = zerolog.New(zerolog.NewConsoleWriter())

func echo(w http.ResponseWriter, r *http.Request) {
	sess, err := websocket.AcceptServer(w, r)
	if err != nil {
		slog.Error("handshake failed", slog.Any("error", err))
		return
	}
	wsmetrics.CountConnection(metricsLogger, time.Now(), "server", r.RemoteAddr, "")
	peerClosed := false
	defer func() {
		wsmetrics.CountClosure(metricsLogger, time.Now(),
			uint16(websocket.CloseNormalClosure), uint16(sess.Context().PeerCloseCode()), !peerClosed)
	}()
	defer sess.Close(websocket.CloseNormalClosure, "")

	for {
		msg, err := sess.Read()
		if err != nil {
			if errors.Is(err, websocket.ErrConnectionClosed) {
				peerClosed = true
			} else {
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
