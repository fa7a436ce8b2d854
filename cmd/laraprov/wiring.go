package main

import (
	"io"
	"log/slog"

	"github.com/irgordon/laraprov/internal/adapters"
	"github.com/irgordon/laraprov/internal/config"
	"github.com/irgordon/laraprov/internal/core/services"
	"github.com/irgordon/laraprov/internal/infrastructure/crypto"
	"github.com/irgordon/laraprov/internal/infrastructure/shell"
	"github.com/irgordon/laraprov/internal/interaction"
	"github.com/irgordon/laraprov/internal/telemetry"
	"github.com/irgordon/laraprov/internal/worker"
)

// engine is everything a provisioning run needs, shared by the terminal
// and dashboard front ends.
type engine struct {
	logger *slog.Logger
	hub    *telemetry.Hub
	bridge *interaction.Bridge
	queue  *services.QueueService
	worker *worker.ProvisioningWorker
}

func newEngine(cfg *config.Config, base *slog.Logger, queue *services.QueueService) (*engine, error) {
	hub := telemetry.NewHub()
	logger := slog.New(telemetry.NewHandler(base.Handler(), hub))

	vault, err := crypto.NewSealedVault()
	if err != nil {
		return nil, err
	}

	bridge := interaction.NewBridge(cfg.PromptTimeout, logger)
	runner := shell.NewRunner(shell.OSExecutor{}, vault, bridge, logger)

	php := services.NewPHPService(cfg.DefaultPHPVersion, cfg.PHPBinDir)
	pipeline := services.NewProvisioningService(services.Layout{
		WebRoot:    cfg.WebRoot,
		HTMLRoot:   cfg.HTMLRoot,
		Owner:      cfg.Owner,
		Extensions: cfg.PHPExtensions,
	}, services.ProvisioningDeps{
		Fetcher:  adapters.NewGitAdapter(runner, io.Discard, logger),
		Runner:   runner,
		Env:      services.NewEnvVarService(logger),
		PHP:      php,
		Composer: services.NewComposerService(runner, php, bridge, cfg.ComposerBin, logger),
		Apache:   services.NewApacheService(cfg.HTMLRoot, cfg.TLD, cfg.FPMSocketDir),
		Web:      adapters.NewApacheAdapter(runner, cfg.SitesAvailable, logger),
		Hosts:    services.NewHostsService(runner, cfg.HostsFile, cfg.TLD, logger),
	}, logger)

	return &engine{
		logger: logger,
		hub:    hub,
		bridge: bridge,
		queue:  queue,
		worker: worker.NewProvisioningWorker(queue, pipeline, hub, logger),
	}, nil
}
