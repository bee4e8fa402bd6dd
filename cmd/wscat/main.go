// Command wscat is an interactive WebSocket client: it dials a URL,
// echoes every message it receives to stdout, and sends every line of
// stdin as a text message.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/corewire/wsio/internal/logger"
	"github.com/corewire/wsio/pkg/websocket"
)

func main() {
	bi, _ := debug.ReadBuildInfo()

	cmd := &cli.Command{
		Name:    "wscat",
		Usage:   "interactive WebSocket client",
		Version: bi.Main.Version,
		Flags:   flags(configFile()),
		Action:  run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	if url == "" {
		return fmt.Errorf("--url is required")
	}

	var opts []websocket.DialOpt
	if origin := cmd.String("origin"); origin != "" {
		opts = append(opts, websocket.WithHTTPHeader("Origin", origin))
	}
	opts = append(opts, websocket.WithConfig(
		websocket.WithMaxMessageSize(uint64(cmd.Int("max-message-size"))),
	))

	sess, err := websocket.DialClient(ctx, url, opts...)
	if err != nil {
		return err
	}
	defer sess.Close(websocket.CloseNormalClosure, "")

	go readLoop(sess)
	return writeLoop(sess)
}

func readLoop(sess *websocket.Session) {
	for {
		msg, err := sess.Read()
		if err != nil {
			slog.Debug("connection closed", slog.Any("error", err))
			return
		}
		fmt.Println(msg.Text())
	}
}

func writeLoop(sess *websocket.Session) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := sess.WriteText(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// configFile returns the path to wscat's configuration file, creating an
// empty one if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	dir, err := os.UserConfigDir()
	if err != nil {
		logger.FatalError("failed to locate user config directory", err)
	}
	dir = filepath.Join(dir, ConfigDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		logger.FatalError("failed to create config directory", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		logger.FatalError("failed to create config file", err)
	}
	_ = f.Close()

	return altsrc.StringSourcer(path)
}
