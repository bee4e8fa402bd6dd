package main

import (
	"errors"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultMaxMessageSize = 16 << 20
	ConfigDirName         = "wscat"
	ConfigFileName        = "config.toml"
)

// flags defines wscat's CLI flags. Each is resolvable from a CLI flag,
// an environment variable, or the configuration file, in that order.
func flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "WebSocket URL to connect to (ws:// or wss://)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSCAT_URL"),
				toml.TOML("wscat.url", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "origin",
			Usage: "Origin header to send with the handshake",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSCAT_ORIGIN"),
				toml.TOML("wscat.origin", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "max-message-size",
			Usage: "maximum reassembled message size, in bytes",
			Value: DefaultMaxMessageSize,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("WSCAT_MAX_MESSAGE_SIZE"),
				toml.TOML("wscat.max_message_size", configFilePath),
			),
			Validator: validatePositive,
		},
	}
}

func validatePositive(n int64) error {
	if n <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
