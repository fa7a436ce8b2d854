package adapters

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/core/services"
)

// ApacheAdapter implements domain.WebServerManager for a Debian-style
// Apache layout (sites-available + a2ensite).
type ApacheAdapter struct {
	runner         domain.CommandRunner
	sitesAvailable string
	tempDir        string
	logger         *slog.Logger
}

// NewApacheAdapter wires the adapter to a privileged runner.
func NewApacheAdapter(runner domain.CommandRunner, sitesAvailable string, logger *slog.Logger) *ApacheAdapter {
	return &ApacheAdapter{
		runner:         runner,
		sitesAvailable: sitesAvailable,
		logger:         logger,
	}
}

// SitePath is where the rendered config for name ends up.
func (a *ApacheAdapter) SitePath(name string) string {
	return filepath.Join(a.sitesAvailable, name+".conf")
}

// ApplyConfig renders the vhost to a temp file, moves it into
// sites-available, enables the site and reloads Apache.
func (a *ApacheAdapter) ApplyConfig(ctx context.Context, vh domain.VirtualHost) error {
	body, err := services.RenderVirtualHost(vh)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(a.tempDir, vh.Name+"-*.conf")
	if err != nil {
		return fmt.Errorf("create temp vhost: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp vhost: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp vhost: %w", err)
	}
	// CreateTemp uses 0600; Apache reads sites as root, but keep the usual mode.
	_ = os.Chmod(tmpPath, 0o644)

	dest := a.SitePath(vh.Name)
	if _, err := a.runner.RunPrivileged(ctx, "mv", tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("install vhost: %w", err)
	}
	a.logger.InfoContext(ctx, "Installed virtual host", slog.String("path", dest), slog.String("server_name", vh.ServerName))

	if _, err := a.runner.RunPrivileged(ctx, "a2ensite", vh.Name+".conf"); err != nil {
		return fmt.Errorf("enable site: %w", err)
	}
	if _, err := a.runner.RunPrivileged(ctx, "systemctl", "reload", "apache2"); err != nil {
		return fmt.Errorf("reload apache: %w", err)
	}
	return nil
}
