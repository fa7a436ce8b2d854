package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/telemetry"
)

// Layout is the filesystem and ownership layout projects are provisioned into.
type Layout struct {
	WebRoot    string
	HTMLRoot   string
	Owner      string
	Extensions []string
}

// ProvisioningService takes a single project from repository URL to a
// served .test site.
type ProvisioningService struct {
	layout   Layout
	fetcher  domain.Fetcher
	runner   domain.CommandRunner
	env      *EnvVarService
	php      *PHPService
	composer *ComposerService
	apache   *ApacheService
	web      domain.WebServerManager
	hosts    *HostsService
	logger   *slog.Logger
}

// ProvisioningDeps groups the collaborators of a ProvisioningService.
type ProvisioningDeps struct {
	Fetcher  domain.Fetcher
	Runner   domain.CommandRunner
	Env      *EnvVarService
	PHP      *PHPService
	Composer *ComposerService
	Apache   *ApacheService
	Web      domain.WebServerManager
	Hosts    *HostsService
}

func NewProvisioningService(layout Layout, deps ProvisioningDeps, logger *slog.Logger) *ProvisioningService {
	return &ProvisioningService{
		layout:   layout,
		fetcher:  deps.Fetcher,
		runner:   deps.Runner,
		env:      deps.Env,
		php:      deps.PHP,
		composer: deps.Composer,
		apache:   deps.Apache,
		web:      deps.Web,
		hosts:    deps.Hosts,
		logger:   logger,
	}
}

// ProjectPath is where name is checked out.
func (s *ProvisioningService) ProjectPath(name string) string {
	return filepath.Join(s.layout.WebRoot, name)
}

// LinkPath is the symlink Apache serves for name.
func (s *ProvisioningService) LinkPath(name string) string {
	return filepath.Join(s.layout.HTMLRoot, name)
}

// Provision runs every step for p. It never returns an error: an
// unrecovered failure leaves the outcome in StateFailed and the caller moves
// on to the next project. observe, if set, sees each state as it is entered.
func (s *ProvisioningService) Provision(ctx context.Context, runID uuid.UUID, p domain.Project, observe domain.StateObserver) *domain.Outcome {
	out := &domain.Outcome{Project: p, State: domain.StatePending}
	log := s.logger.With(
		slog.String("run_id", runID.String()),
		slog.String("project", p.Name),
	)
	ctx = telemetry.ContextWithRun(ctx, runID.String(), p.Name)
	path := s.ProjectPath(p.Name)
	enter := func(state domain.ProjectState) {
		out.State = state
		log.Info("Entering step", slog.String("state", string(state)))
		if observe != nil {
			observe(state)
		}
	}

	enter(domain.StateFetching)
	if err := s.fetcher.Fetch(ctx, p.RepositoryURL, path); err != nil {
		return s.fail(log, out, fmt.Errorf("fetch %s: %w", p.RepositoryURL, err))
	}

	enter(domain.StateConfiguring)
	if _, err := s.env.Bootstrap(ctx, path); err != nil {
		return s.fail(log, out, err)
	}
	out.PHPVersion = s.php.DetectVersion(path)
	log.Info("Detected PHP version", slog.String("php", out.PHPVersion))
	if err := s.installExtensions(ctx, log, out); err != nil {
		return s.fail(log, out, err)
	}

	enter(domain.StateInstallingDeps)
	res, err := s.composer.Install(ctx, p.Name, path, out.PHPVersion)
	if err != nil {
		return s.fail(log, out, err)
	}
	if res.Abandoned {
		s.warn(log, out, "composer install failed and no PHP version was selected; dependencies not installed")
	} else {
		out.PHPVersion = res.Version
	}

	enter(domain.StateLinking)
	if err := s.link(ctx, log, p.Name, path); err != nil {
		return s.fail(log, out, err)
	}
	if err := s.normalizePermissions(ctx, log, out, path); err != nil {
		return s.fail(log, out, err)
	}

	enter(domain.StatePublishing)
	if err := s.web.ApplyConfig(ctx, s.apache.VirtualHostFor(p.Name, out.PHPVersion)); err != nil {
		return s.fail(log, out, err)
	}
	if _, err := s.hosts.Register(ctx, p.Name); err != nil {
		return s.fail(log, out, err)
	}

	enter(domain.StateDone)
	log.Info("Project provisioned",
		slog.String("url", "http://"+s.apache.VirtualHostFor(p.Name, out.PHPVersion).ServerName),
		slog.Int("warnings", len(out.Warnings)))
	return out
}

// installExtensions installs php<ver>-<ext> for each configured extension.
// A failed package is only a warning; abandoning authentication is not.
func (s *ProvisioningService) installExtensions(ctx context.Context, log *slog.Logger, out *domain.Outcome) error {
	for _, ext := range s.layout.Extensions {
		pkg := fmt.Sprintf("php%s-%s", out.PHPVersion, ext)
		_, err := s.runner.RunPrivileged(ctx, "apt-get", "install", "-y", pkg)
		if err == nil {
			continue
		}
		if ctx.Err() != nil || errors.Is(err, domain.ErrAuthenticationAbandoned) {
			return err
		}
		s.warn(log, out, fmt.Sprintf("could not install %s: %v", pkg, err))
	}
	return nil
}

// link replaces whatever sits at the served path with a symlink to public/.
func (s *ProvisioningService) link(ctx context.Context, log *slog.Logger, name, path string) error {
	linkPath := s.LinkPath(name)

	if _, err := os.Lstat(linkPath); err == nil {
		log.Info("Removing existing served path", slog.String("path", linkPath))
		if _, err := s.runner.RunPrivileged(ctx, "rm", "-rf", linkPath); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", linkPath, err)
	}

	if _, err := s.runner.RunPrivileged(ctx, "ln", "-s", filepath.Join(path, "public"), linkPath); err != nil {
		return err
	}
	log.Info("Linked public directory", slog.String("link", linkPath))
	return nil
}

func (s *ProvisioningService) normalizePermissions(ctx context.Context, log *slog.Logger, out *domain.Outcome, path string) error {
	if _, err := s.runner.RunPrivileged(ctx, "chmod", "-R", "775", path); err != nil {
		return err
	}
	if _, err := s.runner.RunPrivileged(ctx, "chown", "-R", "www-data:"+s.layout.Owner, path); err != nil {
		return err
	}
	if _, err := s.runner.Run(ctx, "git", "config", "--global", "--add", "safe.directory", path); err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.warn(log, out, fmt.Sprintf("could not mark %s as a safe git directory: %v", path, err))
	}
	return nil
}

func (s *ProvisioningService) warn(log *slog.Logger, out *domain.Outcome, msg string) {
	out.Warn(msg)
	log.Warn(msg, slog.String("state", string(out.State)))
}

func (s *ProvisioningService) fail(log *slog.Logger, out *domain.Outcome, err error) *domain.Outcome {
	log.Error("Project failed",
		slog.String("state", string(out.State)),
		slog.String("error", err.Error()))
	out.Fail(err)
	return out
}
