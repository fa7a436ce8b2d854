package adapters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-git/go-git/v5"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/infrastructure/shell"
)

// GitAdapter implements domain.Fetcher as the invoking user. Clones go
// through go-git. Pulls run the git CLI with core.fileMode off, since the
// permission step leaves a mode change on every tracked file and go-git
// treats those as unstaged changes.
type GitAdapter struct {
	runner   domain.CommandRunner
	progress io.Writer
	logger   *slog.Logger
}

func NewGitAdapter(runner domain.CommandRunner, progress io.Writer, logger *slog.Logger) *GitAdapter {
	return &GitAdapter{runner: runner, progress: progress, logger: logger}
}

// progressFor routes go-git's sideband output to the per-call sink when one
// is attached, falling back to the adapter's writer.
func (g *GitAdapter) progressFor(ctx context.Context) io.Writer {
	if sink := shell.SinkFromContext(ctx); sink != nil {
		return shell.SinkWriter(sink, shell.Stderr)
	}
	return g.progress
}

// Fetch clones repoURL into dir if dir does not exist, otherwise pulls origin.
func (g *GitAdapter) Fetch(ctx context.Context, repoURL, dir string) error {
	_, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return g.clone(ctx, repoURL, dir)
	case err != nil:
		return fmt.Errorf("stat %s: %w", dir, err)
	default:
		return g.pull(ctx, dir)
	}
}

func (g *GitAdapter) clone(ctx context.Context, repoURL, dir string) error {
	g.logger.InfoContext(ctx, "Cloning repository", slog.String("url", repoURL), slog.String("dir", dir))

	_, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:      repoURL,
		Progress: g.progressFor(ctx),
	})
	if err != nil {
		return fmt.Errorf("git clone failed: %w", err)
	}
	return nil
}

func (g *GitAdapter) pull(ctx context.Context, dir string) error {
	g.logger.InfoContext(ctx, "Pulling latest changes", slog.String("dir", dir))

	if _, err := git.PlainOpen(dir); err != nil {
		return fmt.Errorf("open repository %s: %w", dir, err)
	}
	if _, err := g.runner.Run(ctx, "git", "-C", dir, "-c", "core.fileMode=false", "pull"); err != nil {
		return fmt.Errorf("git pull failed: %w", err)
	}
	return nil
}
