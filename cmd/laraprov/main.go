package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/irgordon/laraprov/internal/config"
)

func main() {
	cfg := config.Load()

	app := &cli.App{
		Name:  "laraprov",
		Usage: "Provision Laravel projects as local Apache .test sites",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "json or text (default: text on a terminal, json otherwise)",
				Value: cfg.LogFormat,
			},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			runCommand(cfg),
			serveCommand(cfg),
			queueCommand(cfg),
			detectPHPCommand(cfg),
			renderVhostCommand(cfg),
			doctorCommand(cfg),
			healthCommand(cfg),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "laraprov:", err)
		os.Exit(1)
	}
}

// newLogger picks tint for a terminal and JSON otherwise, unless the format
// is forced.
func newLogger(c *cli.Context, level slog.Level) *slog.Logger {
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	tty := term.IsTerminal(int(os.Stderr.Fd()))

	var handler slog.Handler
	switch format := c.String("log-format"); {
	case format == "json", format == "" && !tty:
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	default:
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			NoColor:    !tty,
		})
	}
	return slog.New(handler)
}
