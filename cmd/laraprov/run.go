package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/core/services"
	"github.com/irgordon/laraprov/internal/interaction"
	"github.com/irgordon/laraprov/internal/queuefile"
	"github.com/irgordon/laraprov/internal/terminal"
)

func runCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Provision every queued project, answering prompts on this terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "queue", Aliases: []string{"q"}, Value: cfg.QueueFile, Usage: "queue file"},
			&cli.StringSliceFlag{Name: "project", Aliases: []string{"p"}, Usage: "extra project as NAME=URL (repeatable)"},
		},
		Action: func(c *cli.Context) error {
			// The printer shows run progress; keep the raw log to warnings.
			logger := newLogger(c, slog.LevelWarn)

			queue, err := buildQueue(c.String("queue"), c.StringSlice("project"))
			if err != nil {
				return err
			}

			eng, err := newEngine(cfg, logger, queue)
			if err != nil {
				return err
			}

			stdinFD := int(os.Stdin.Fd())
			styles := terminal.PlainStyles()
			if term.IsTerminal(int(os.Stdout.Fd())) {
				styles = terminal.DefaultStyles()
			}
			if !term.IsTerminal(stdinFD) {
				stdinFD = -1
			}

			ctx, cancel := context.WithCancel(c.Context)
			defer cancel()

			go interaction.Serve(ctx, eng.bridge, terminal.NewPrompter(os.Stdin, os.Stdout, stdinFD, styles))

			printer := terminal.NewPrinter(os.Stdout, styles)
			lines := eng.hub.SubscribeAll()
			printed := make(chan struct{})
			go func() {
				printer.Follow(ctx, lines)
				close(printed)
			}()

			run, err := eng.worker.RunSync(ctx)
			eng.hub.UnsubscribeAll(lines)
			<-printed
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout)
			terminal.PrintSummary(os.Stdout, run, cfg.TLD, styles)

			if _, failed := run.Counts(); failed > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// buildQueue loads the queue file and appends any NAME=URL projects.
func buildQueue(path string, extra []string) (*services.QueueService, error) {
	projects, err := queuefile.Load(path)
	if err != nil {
		return nil, err
	}

	queue := services.NewQueueService()
	for _, p := range projects {
		if _, err := queue.Add(p.Name, p.RepositoryURL); err != nil {
			return nil, fmt.Errorf("queue file %s: %w", path, err)
		}
	}
	for _, arg := range extra {
		name, url, err := queuefile.ParseProject(arg)
		if err != nil {
			return nil, err
		}
		if _, err := queue.Add(name, url); err != nil {
			return nil, err
		}
	}
	return queue, nil
}
