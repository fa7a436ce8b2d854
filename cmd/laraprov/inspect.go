package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/core/services"
)

func detectPHPCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "detect-php",
		Usage:     "Print the PHP version a checkout would be provisioned with",
		ArgsUsage: "PATH",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				path = "."
			}
			php := services.NewPHPService(cfg.DefaultPHPVersion, cfg.PHPBinDir)
			fmt.Fprintln(c.App.Writer, php.DetectVersion(path))
			return nil
		},
	}
}

func renderVhostCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "render-vhost",
		Usage:     "Print the Apache site a project would get",
		ArgsUsage: "NAME",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "php", Value: cfg.DefaultPHPVersion, Usage: "PHP version for the FPM socket"},
		},
		Action: func(c *cli.Context) error {
			name := c.Args().First()
			if name == "" {
				return cli.Exit("usage: laraprov render-vhost NAME", 2)
			}
			apache := services.NewApacheService(cfg.HTMLRoot, cfg.TLD, cfg.FPMSocketDir)
			body, err := services.RenderVirtualHost(apache.VirtualHostFor(name, c.String("php")))
			if err != nil {
				return err
			}
			fmt.Fprint(c.App.Writer, body)
			return nil
		},
	}
}
