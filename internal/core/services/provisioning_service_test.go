package services_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/laraprov/internal/adapters"
	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/core/services"
	"github.com/irgordon/laraprov/internal/telemetry"
)

// skeletonFetcher lays down a minimal Laravel checkout on first fetch and
// does nothing on later ones, like a pull with no upstream changes.
type skeletonFetcher struct {
	composerJSON string
	fetches      int
	err          error
}

func (f *skeletonFetcher) Fetch(_ context.Context, _ string, dir string) error {
	f.fetches++
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(dir, "public"), 0o755); err != nil {
		return err
	}
	writeFile(filepath.Join(dir, "composer.json"), f.composerJSON)
	writeFile(filepath.Join(dir, ".env.example"), "APP_NAME=Shop\n")
	return nil
}

type pipelineEnv struct {
	root     string
	layout   services.Layout
	sites    string
	hosts    string
	bin      string
	runner   *localRunner
	fetcher  *skeletonFetcher
	chooser  *fakeChooser
	hub      *telemetry.Hub
	pipeline *services.ProvisioningService
}

func newPipelineEnv(t *testing.T) *pipelineEnv {
	t.Helper()
	root := t.TempDir()

	e := &pipelineEnv{
		root: root,
		layout: services.Layout{
			WebRoot:    filepath.Join(root, "www"),
			HTMLRoot:   filepath.Join(root, "www", "html"),
			Owner:      "alice",
			Extensions: []string{"mbstring", "xml"},
		},
		sites:   filepath.Join(root, "sites-available"),
		hosts:   filepath.Join(root, "hosts"),
		bin:     filepath.Join(root, "bin"),
		runner:  &localRunner{},
		fetcher: &skeletonFetcher{composerJSON: `{"require": {"php": "^8.1"}}`},
		chooser: &fakeChooser{},
		hub:     telemetry.NewHub(),
	}
	for _, dir := range []string{e.layout.HTMLRoot, e.sites, e.bin} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	writeFile(e.hosts, "127.0.0.1 localhost\n")

	log := slog.New(telemetry.NewHandler(nil, e.hub))
	php := services.NewPHPService("8.3", e.bin)
	e.pipeline = services.NewProvisioningService(e.layout, services.ProvisioningDeps{
		Fetcher:  e.fetcher,
		Runner:   e.runner,
		Env:      services.NewEnvVarService(log),
		PHP:      php,
		Composer: services.NewComposerService(e.runner, php, e.chooser, "composer", log),
		Apache:   services.NewApacheService(e.layout.HTMLRoot, "test", "/var/run/php"),
		Web:      adapters.NewApacheAdapter(e.runner, e.sites, log),
		Hosts:    services.NewHostsService(e.runner, e.hosts, "test", log),
	}, log)
	return e
}

var shop = domain.Project{Name: "shop", RepositoryURL: "https://example.com/shop.git"}

func TestProvision_Shop(t *testing.T) {
	e := newPipelineEnv(t)

	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)

	require.Equal(t, domain.StateDone, out.State, out.Error)
	assert.Equal(t, "8.1", out.PHPVersion)
	assert.Empty(t, out.Warnings)

	checkout := filepath.Join(e.layout.WebRoot, "shop")
	assert.DirExists(t, checkout)
	assert.FileExists(t, filepath.Join(checkout, ".env"))

	vhost, err := os.ReadFile(filepath.Join(e.sites, "shop.conf"))
	require.NoError(t, err)
	assert.Contains(t, string(vhost), "ServerName shop.test")
	assert.Contains(t, string(vhost), "php8.1-fpm.sock")

	target, err := os.Readlink(filepath.Join(e.layout.HTMLRoot, "shop"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(checkout, "public"), target)

	calls := e.runner.Calls()
	assert.Contains(t, calls, "sudo apt-get install -y php8.1-mbstring")
	assert.Contains(t, calls, "sudo apt-get install -y php8.1-xml")
	assert.Contains(t, calls, filepath.Join(e.bin, "php8.1")+" composer install -d "+checkout)
	assert.Contains(t, calls, "sudo chmod -R 775 "+checkout)
	assert.Contains(t, calls, "sudo chown -R www-data:alice "+checkout)
	assert.Contains(t, calls, "git config --global --add safe.directory "+checkout)
	assert.Contains(t, calls, "sudo a2ensite shop.conf")
	assert.Contains(t, calls, "sudo systemctl reload apache2")
}

func TestProvision_TwiceRegistersHostOnce(t *testing.T) {
	e := newPipelineEnv(t)

	for i := 0; i < 2; i++ {
		out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)
		require.Equal(t, domain.StateDone, out.State, out.Error)
	}

	hosts, err := os.ReadFile(e.hosts)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(hosts), "127.0.0.1 shop.test"))

	// The second run replaces the existing link rather than failing on it.
	assert.Contains(t, e.runner.Calls(), "sudo rm -rf "+filepath.Join(e.layout.HTMLRoot, "shop"))
	assert.Equal(t, 2, e.fetcher.fetches)
}

func TestProvision_FetchFailureStopsProject(t *testing.T) {
	e := newPipelineEnv(t)
	e.fetcher.err = errors.New("repository not found")

	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)

	assert.Equal(t, domain.StateFailed, out.State)
	assert.Contains(t, out.Error, "repository not found")
	assert.Empty(t, e.runner.Calls())
}

func TestProvision_ExtensionFailureIsWarning(t *testing.T) {
	e := newPipelineEnv(t)
	e.runner.hook = func(argv []string) error {
		if strings.Join(argv, " ") == "apt-get install -y php8.1-xml" {
			return &domain.CommandFailedError{Command: "apt-get", ExitCode: 100, Stderr: "Unable to locate package"}
		}
		return nil
	}

	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)

	require.Equal(t, domain.StateDone, out.State, out.Error)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "php8.1-xml")
}

func TestProvision_AbandonedAuthenticationFails(t *testing.T) {
	e := newPipelineEnv(t)
	e.runner.hook = func(argv []string) error {
		if argv[0] == "apt-get" {
			return domain.ErrAuthenticationAbandoned
		}
		return nil
	}

	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)

	assert.Equal(t, domain.StateFailed, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrAuthenticationAbandoned)
	assert.Len(t, e.runner.Calls(), 1)
}

func TestProvision_ComposerAbandonedContinues(t *testing.T) {
	e := newPipelineEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.bin, "php7.4"), nil, 0o755))
	e.runner.hook = func(argv []string) error {
		if filepath.Base(argv[0]) == "php8.1" {
			return fmt.Errorf("composer: %w", &domain.CommandFailedError{Command: "composer", ExitCode: 2})
		}
		return nil
	}

	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)

	require.Equal(t, domain.StateDone, out.State, out.Error)
	assert.Equal(t, "8.1", out.PHPVersion)
	require.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "composer")
	assert.Equal(t, 1, e.chooser.asked)
}

func TestProvision_ComposerRetryUsesChosenVersion(t *testing.T) {
	e := newPipelineEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.bin, "php7.4"), nil, 0o755))
	e.chooser.answer = "7.4"
	e.runner.hook = func(argv []string) error {
		if filepath.Base(argv[0]) == "php8.1" {
			return &domain.CommandFailedError{Command: "composer", ExitCode: 2}
		}
		return nil
	}

	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, nil)

	require.Equal(t, domain.StateDone, out.State, out.Error)
	assert.Equal(t, "7.4", out.PHPVersion)

	vhost, err := os.ReadFile(filepath.Join(e.sites, "shop.conf"))
	require.NoError(t, err)
	assert.Contains(t, string(vhost), "php7.4-fpm.sock")
}

func TestProvision_ReportsEachState(t *testing.T) {
	e := newPipelineEnv(t)

	var states []domain.ProjectState
	out := e.pipeline.Provision(context.Background(), uuid.New(), shop, func(s domain.ProjectState) {
		states = append(states, s)
	})

	require.Equal(t, domain.StateDone, out.State, out.Error)
	assert.Equal(t, []domain.ProjectState{
		domain.StateFetching,
		domain.StateConfiguring,
		domain.StateInstallingDeps,
		domain.StateLinking,
		domain.StatePublishing,
		domain.StateDone,
	}, states)
}

func TestProvision_CollaboratorLogsReachRunStream(t *testing.T) {
	e := newPipelineEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.bin, "php7.4"), nil, 0o755))
	e.chooser.answer = "7.4"
	e.runner.hook = func(argv []string) error {
		if filepath.Base(argv[0]) == "php8.1" {
			return &domain.CommandFailedError{Command: "composer", ExitCode: 2}
		}
		return nil
	}

	runID := uuid.New()
	lines := e.hub.Subscribe(runID.String())
	out := e.pipeline.Provision(context.Background(), runID, shop, nil)
	require.Equal(t, domain.StateDone, out.State, out.Error)

	var messages []string
	for len(lines) > 0 {
		l := <-lines
		assert.Equal(t, "shop", l.Project)
		messages = append(messages, l.Message)
	}
	joined := strings.Join(messages, "\n")
	assert.Contains(t, joined, "Retrying composer install")
	assert.Contains(t, joined, "Installed virtual host")
	assert.Contains(t, joined, "Registered hosts entry")
	assert.Contains(t, joined, "Bootstrapped .env from .env.example")
}
