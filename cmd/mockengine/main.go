// mockengine serves the engine wire protocol with canned responses so
// the bridge can be exercised without the Node wrapper. It honors the
// PORT environment variable the supervisor passes to spawned engines,
// which makes it usable as a drop-in engine command:
//
//	playwright-bridge --engine-command mockengine run script.txt
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/marketsquare/playwright-bridge/internal/enginetest"
)

func main() {
	app := &cli.App{
		Name:  "mockengine",
		Usage: "a fake playwright engine process for developing against the bridge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen-addr",
				Usage: "The address to listen on. Defaults to 127.0.0.1:$PORT, or an ephemeral port.",
			},
		},
		Action: func(c *cli.Context) error {
			addr := c.String("listen-addr")
			if addr == "" {
				if port := os.Getenv("PORT"); port != "" {
					addr = "127.0.0.1:" + port
				} else {
					addr = "127.0.0.1:0"
				}
			}

			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}

			srv, err := enginetest.NewServer(
				enginetest.WithLogger(logger),
				enginetest.WithListenAddr(addr),
			)
			if err != nil {
				return fmt.Errorf("building server: %w", err)
			}
			logger.Sugar().Infow("mock engine listening", "addr", srv.Addr())
			return srv.Run()
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
