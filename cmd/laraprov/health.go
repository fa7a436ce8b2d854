package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/irgordon/laraprov/internal/config"
)

func healthCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Probe a running dashboard; exits non-zero when unreachable",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: cfg.DashboardAddr},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 2*time.Second)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.String("addr")+"/api/v1/health", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return cli.Exit(fmt.Sprintf("unhealthy: %v", err), 1)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return cli.Exit(fmt.Sprintf("unhealthy: %s", resp.Status), 1)
			}
			fmt.Fprintln(c.App.Writer, "healthy")
			return nil
		},
	}
}
