// Command autobahn-client drives this module's WebSocket client against
// the fuzzing server of the [Autobahn Testsuite], exercising every
// conformance case the server reports.
//
// [Autobahn Testsuite]: https://github.com/crossbario/autobahn-testsuite
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/corewire/wsio/internal/logger"
	"github.com/corewire/wsio/pkg/websocket"
)

const (
	baseURL = "ws://127.0.0.1:9001"
	agent   = "wsio"
)

func main() {
	ctx := context.Background()
	n := getCaseCount(ctx)
	slog.Info("case count", slog.Int("n", n))

	for i := 1; i <= n; i++ {
		runCase(ctx, i)
	}

	updateReports(ctx)
}

func dial(ctx context.Context, url string) (*websocket.Session, error) {
	return websocket.DialClient(ctx, url)
}

func getCaseCount(ctx context.Context) int {
	sess, err := dial(ctx, baseURL+"/getCaseCount")
	if err != nil {
		logger.FatalError("dial error", err)
	}
	defer sess.Close(websocket.CloseNormalClosure, "")

	msg, err := sess.Read()
	if err != nil {
		if errors.Is(err, websocket.ErrConnectionClosed) {
			return 0
		}
		logger.FatalError("read error", err)
	}

	n, err := strconv.Atoi(msg.Text())
	if err != nil {
		logger.FatalError("invalid test case count", err)
	}
	return n
}

func updateReports(ctx context.Context) {
	slog.Info("updating reports")

	url := fmt.Sprintf("%s/updateReports?agent=%s", baseURL, agent)
	sess, err := dial(ctx, url)
	if err != nil {
		logger.FatalError("dial error", err)
	}
	_ = sess.Close(websocket.CloseNormalClosure, "")
}

func runCase(ctx context.Context, i int) {
	l := slog.With(slog.Int("case", i))
	l.Info("starting test")

	url := fmt.Sprintf("%s/runCase?case=%d&agent=%s", baseURL, i, agent)
	sess, err := dial(ctx, url)
	if err != nil {
		logger.FatalError("dial error", err)
	}
	defer sess.Close(websocket.CloseNormalClosure, "")

	for {
		msg, err := sess.Read()
		if err != nil {
			if errors.Is(err, websocket.ErrConnectionClosed) {
				l.Debug("connection closed")
				return
			}
			l.Error("echo error", slog.Any("error", err))
			return
		}

		l.Info("received message", slog.String("type", msg.Type.String()), slog.Int("length", len(msg.Data)))

		if err := sess.Write(msg); err != nil {
			l.Error("echo error", slog.Any("error", err))
			_ = sess.Close(websocket.CloseProtocolError, "")
			return
		}
	}
}
