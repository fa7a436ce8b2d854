package config

import (
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPHPExtensions are the packages a stock Laravel app needs beyond php-cli.
var DefaultPHPExtensions = []string{
	"curl", "dom", "gd", "xml", "mbstring", "zip", "pdo", "xmlwriter", "xmlreader", "xsl",
}

// Config holds every host path and behaviour knob the pipeline touches.
type Config struct {
	Environment string // "development" or "production"

	// Host layout
	WebRoot        string // checkouts live at <WebRoot>/<name>
	HTMLRoot       string // public symlinks live at <HTMLRoot>/<name>
	SitesAvailable string
	HostsFile      string
	TLD            string

	// PHP toolchain
	DefaultPHPVersion string
	PHPBinDir         string
	FPMSocketDir      string
	ComposerBin       string
	PHPExtensions     []string

	Owner         string // group owner in chown www-data:<Owner>
	PromptTimeout time.Duration

	// Dashboard
	DashboardAddr  string
	AllowedOrigins []string

	QueueFile string
	LogFormat string // "json", "text", or "" for auto
}

// Load reads an optional .env in the working directory, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Ignoring unreadable .env", slog.Any("error", err))
	}

	timeout, err := time.ParseDuration(getEnv("LARAPROV_PROMPT_TIMEOUT", "10m"))
	if err != nil {
		slog.Warn("Invalid LARAPROV_PROMPT_TIMEOUT, using 10m", slog.Any("error", err))
		timeout = 10 * time.Minute
	}

	addr := getEnv("LARAPROV_DASHBOARD_ADDR", "127.0.0.1:8765")

	return &Config{
		Environment: getEnv("LARAPROV_ENV", "development"),

		WebRoot:        getEnv("LARAPROV_WEB_ROOT", "/var/www"),
		HTMLRoot:       getEnv("LARAPROV_HTML_ROOT", "/var/www/html"),
		SitesAvailable: getEnv("LARAPROV_SITES_AVAILABLE", "/etc/apache2/sites-available"),
		HostsFile:      getEnv("LARAPROV_HOSTS_FILE", "/etc/hosts"),
		TLD:            getEnv("LARAPROV_TLD", "test"),

		DefaultPHPVersion: getEnv("LARAPROV_DEFAULT_PHP", "8.2"),
		PHPBinDir:         getEnv("LARAPROV_PHP_BIN_DIR", "/usr/bin"),
		FPMSocketDir:      getEnv("LARAPROV_FPM_SOCKET_DIR", "/var/run/php"),
		ComposerBin:       getEnv("LARAPROV_COMPOSER_BIN", lookupComposer()),
		PHPExtensions:     splitList(getEnv("LARAPROV_PHP_EXTENSIONS", ""), DefaultPHPExtensions),

		Owner:         getEnv("LARAPROV_OWNER", currentOwner()),
		PromptTimeout: timeout,

		DashboardAddr:  addr,
		AllowedOrigins: splitList(getEnv("LARAPROV_ALLOWED_ORIGINS", ""), []string{"http://" + addr}),

		QueueFile: getEnv("LARAPROV_QUEUE_FILE", "laraprov.yaml"),
		LogFormat: strings.ToLower(getEnv("LARAPROV_LOG_FORMAT", "")),
	}
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(raw string, fallback []string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func lookupComposer() string {
	if p, err := exec.LookPath("composer"); err == nil {
		return p
	}
	return "/usr/local/bin/composer"
}

// currentOwner prefers the invoking user when laraprov itself runs under sudo.
func currentOwner() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
