package main

import (
	"fmt"
	"strconv"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/core/services"
	"github.com/irgordon/laraprov/internal/queuefile"
)

func queueCommand(cfg *config.Config) *cli.Command {
	queueFlag := &cli.StringFlag{Name: "queue", Aliases: []string{"q"}, Value: cfg.QueueFile, Usage: "queue file"}

	return &cli.Command{
		Name:  "queue",
		Usage: "Edit the project queue file",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Append a project",
				ArgsUsage: "NAME URL",
				Flags:     []cli.Flag{queueFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: laraprov queue add NAME URL", 2)
					}
					return editQueue(c.String("queue"), func(q *services.QueueService) error {
						p, err := q.Add(c.Args().Get(0), c.Args().Get(1))
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Queued %s at position %d\n", p.Name, q.Len()-1)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove the project at INDEX",
				ArgsUsage: "INDEX",
				Flags:     []cli.Flag{queueFlag},
				Action: func(c *cli.Context) error {
					index, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return cli.Exit("usage: laraprov queue remove INDEX", 2)
					}
					return editQueue(c.String("queue"), func(q *services.QueueService) error {
						p, err := q.Remove(index)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Removed %s\n", p.Name)
						return nil
					})
				},
			},
			{
				Name:  "list",
				Usage: "Show the queue in run order",
				Flags: []cli.Flag{queueFlag},
				Action: func(c *cli.Context) error {
					q, err := buildQueue(c.String("queue"), nil)
					if err != nil {
						return err
					}

					tbl := table.New("#", "Name", "Repository").WithWriter(c.App.Writer)
					for i, p := range q.List() {
						tbl.AddRow(i, p.Name, p.RepositoryURL)
					}
					tbl.Print()
					return nil
				},
			},
		},
	}
}

func editQueue(path string, fn func(*services.QueueService) error) error {
	q, err := buildQueue(path, nil)
	if err != nil {
		return err
	}
	if err := fn(q); err != nil {
		return err
	}
	return queuefile.Save(path, q.List())
}
