package main

import (
	"fmt"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/preflight"
)

func doctorCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check host prerequisites before provisioning",
		Action: func(c *cli.Context) error {
			results := preflight.NewChecker(cfg).Run()

			tbl := table.New("Check", "Status", "Detail").WithWriter(c.App.Writer)
			for _, r := range results {
				tbl.AddRow(r.Check, r.Status, r.Detail)
			}
			tbl.Print()

			if preflight.Failed(results) {
				return cli.Exit("\nhost is not ready: fix the failed checks above", 1)
			}
			fmt.Fprintln(c.App.Writer, "\nhost is ready")
			return nil
		},
	}
}
