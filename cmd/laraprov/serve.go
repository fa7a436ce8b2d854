package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/irgordon/laraprov/internal/api/handlers"
	"github.com/irgordon/laraprov/internal/api/middleware"
	"github.com/irgordon/laraprov/internal/api/router"
	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/core/services"
)

func serveCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the loopback dashboard; prompts are answered through it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: cfg.DashboardAddr, Usage: "listen address"},
			&cli.StringFlag{Name: "queue", Aliases: []string{"q"}, Value: cfg.QueueFile, Usage: "seed the queue from this file"},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c, slog.LevelInfo)

			queue, err := buildQueue(c.String("queue"), nil)
			if err != nil {
				return err
			}
			eng, err := newEngine(cfg, logger, queue)
			if err != nil {
				return err
			}

			tokens, err := services.NewEphemeralTokenService()
			if err != nil {
				return err
			}
			token, err := tokens.Issue("operator")
			if err != nil {
				return err
			}

			// Runs outlive requests but not the process.
			baseCtx, cancelRuns := context.WithCancel(c.Context)
			defer cancelRuns()

			mux := router.NewRouter(router.RouterConfig{
				AllowedOrigins: cfg.AllowedOrigins,
				AuthMiddleware: middleware.NewAuthMiddleware(baseCtx, tokens, eng.logger),
				ProjectHandler: handlers.NewProjectHandler(eng.queue),
				RunHandler:     handlers.NewRunHandler(baseCtx, eng.worker),
				PromptHandler:  handlers.NewPromptHandler(eng.bridge),
				HealthHandler:  handlers.NewHealthHandler(eng.worker),
				WSHandler:      handlers.NewWebSocketHandler(eng.hub, eng.worker, cfg.AllowedOrigins, eng.logger),
				Logger:         eng.logger,
			})

			addr := c.String("addr")
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			fmt.Fprintf(os.Stdout, "Dashboard: http://%s\nToken:     %s\n", addr, token)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Dashboard listening", slog.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("dashboard: %w", err)
				}
				return nil
			case <-c.Context.Done():
			}

			logger.Info("Shutting down dashboard")
			cancelRuns()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("Forced shutdown", slog.String("error", err.Error()))
			}
			return nil
		},
	}
}
