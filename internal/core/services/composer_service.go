package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// VersionChooser asks the user to pick a PHP version from options. An empty
// answer means no selection.
type VersionChooser interface {
	ChooseVersion(ctx context.Context, project string, options []string) (string, error)
}

// ComposerResult describes how the dependency step ended.
type ComposerResult struct {
	Version   string
	Retried   bool
	Abandoned bool
}

// ComposerService installs a project's PHP dependencies.
type ComposerService struct {
	runner      domain.CommandRunner
	php         *PHPService
	chooser     VersionChooser
	composerBin string
	logger      *slog.Logger
}

func NewComposerService(runner domain.CommandRunner, php *PHPService, chooser VersionChooser, composerBin string, logger *slog.Logger) *ComposerService {
	return &ComposerService{
		runner:      runner,
		php:         php,
		chooser:     chooser,
		composerBin: composerBin,
		logger:      logger,
	}
}

// Install runs `composer install` with the interpreter for version. If that
// fails it offers the installed interpreters and retries exactly once with
// the chosen one. No selection abandons the step without failing it.
func (s *ComposerService) Install(ctx context.Context, project, projectPath, version string) (ComposerResult, error) {
	err := s.install(ctx, projectPath, version)
	if err == nil {
		return ComposerResult{Version: version}, nil
	}
	if fatal(ctx, err) {
		return ComposerResult{}, err
	}

	s.logger.WarnContext(ctx, "Composer install failed",
		slog.String("project", project),
		slog.String("php", version),
		slog.String("error", err.Error()))

	options, listErr := s.php.InstalledVersions()
	if listErr != nil || len(options) == 0 {
		s.logger.WarnContext(ctx, "No alternative PHP interpreters found", slog.String("project", project))
		return ComposerResult{Version: version, Abandoned: true}, nil
	}

	choice, askErr := s.chooser.ChooseVersion(ctx, project, options)
	if askErr != nil && !errors.Is(askErr, domain.ErrPromptTimeout) {
		return ComposerResult{}, fmt.Errorf("choose php version: %w", askErr)
	}
	if choice == "" {
		return ComposerResult{Version: version, Abandoned: true}, nil
	}

	s.logger.InfoContext(ctx, "Retrying composer install",
		slog.String("project", project),
		slog.String("php", choice))
	if err := s.install(ctx, projectPath, choice); err != nil {
		return ComposerResult{}, fmt.Errorf("composer install with php %s: %w", choice, err)
	}
	return ComposerResult{Version: choice, Retried: true}, nil
}

func (s *ComposerService) install(ctx context.Context, projectPath, version string) error {
	_, err := s.runner.Run(ctx, s.php.Binary(version), s.composerBin, "install", "-d", projectPath)
	return err
}

// fatal reports errors that must stop the project rather than trigger a
// fallback: cancellation, abandoned authentication, a declined install.
func fatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, domain.ErrAuthenticationAbandoned) {
		return true
	}
	var missing *domain.MissingDependencyError
	return errors.As(err, &missing)
}
