package domain

import "context"

// WebServerManager publishes rendered site configuration to the local web server.
type WebServerManager interface {
	ApplyConfig(ctx context.Context, config VirtualHost) error
}

// VirtualHost carries everything the vhost template needs.
type VirtualHost struct {
	Name         string // project name, also the sites-available file stem
	ServerName   string // e.g. "shop.test"
	DocumentRoot string // the web-root alias, not the checkout
	PHPVersion   string
	FPMSocketDir string
}
