package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/marketsquare/playwright-bridge/engine"
	"github.com/marketsquare/playwright-bridge/keywords"
)

func main() {
	app := &cli.App{
		Name:  "playwright-bridge",
		Usage: "runs web-testing keyword scripts against a playwright engine process",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Directory for the engine log file.",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "engine-command",
				Usage: "Command to start the engine process (default: node wrapper/index.js, discovered).",
			},
			&cli.DurationFlag{
				Name:  "probe-interval",
				Usage: "Interval between engine readiness probes.",
				Value: 100 * time.Millisecond,
			},
			&cli.IntFlag{
				Name:  "probe-attempts",
				Usage: "Number of readiness probes before giving up on startup.",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Execute a keyword script: one keyword per line, arguments separated by tabs.",
				ArgsUsage: "<script-file>",
				Action:    runScript,
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func runScript(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one script file, got %d args", c.Args().Len())
	}
	scriptPath := c.Args().First()

	var logger *zap.Logger
	var err error
	if c.Bool("debug") {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithOutputDir(c.String("output-dir")),
		engine.WithProbeInterval(c.Duration("probe-interval")),
		engine.WithProbeAttempts(c.Int("probe-attempts")),
	}
	if cmd := c.String("engine-command"); cmd != "" {
		parts := strings.Fields(cmd)
		opts = append(opts, engine.WithCommand(parts[0], parts[1:]...))
	}
	supervisor, err := engine.New(opts...)
	if err != nil {
		return fmt.Errorf("building supervisor: %w", err)
	}

	bridge, err := keywords.New(supervisor, keywords.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("building bridge: %w", err)
	}
	defer bridge.Close()

	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	sugar := logger.Sugar()
	for i, line := range strings.Split(string(script), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		keyword := strings.TrimSpace(fields[0])
		args := make([]string, 0, len(fields)-1)
		for _, f := range fields[1:] {
			args = append(args, strings.TrimSpace(f))
		}
		if err := execute(c.Context, bridge, keyword, args); err != nil {
			return cli.Exit(fmt.Sprintf("line %d: %s: %s", i+1, keyword, err), 1)
		}
		sugar.Infow("keyword passed", "keyword", keyword)
	}
	return nil
}

func execute(ctx context.Context, b *keywords.Bridge, keyword string, args []string) error {
	get := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	switch strings.ToLower(keyword) {
	case "open browser":
		return b.OpenBrowser(ctx, get(0), get(1))
	case "close browser":
		return b.CloseBrowser(ctx)
	case "go to":
		return b.GoTo(ctx, get(0))
	case "input text":
		return b.InputText(ctx, get(0), get(1))
	case "click button":
		return b.ClickButton(ctx, get(0))
	case "location should be":
		return b.LocationShouldBe(ctx, get(0))
	case "textfield value should be":
		return b.TextfieldValueShouldBe(ctx, get(0), get(1))
	case "title should be":
		return b.TitleShouldBe(ctx, get(0))
	case "page should contain":
		return b.PageShouldContain(ctx, get(0))
	default:
		return fmt.Errorf("unknown keyword %q", keyword)
	}
}
