package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// appendLineScript appends $1 as a line to the file named by $2. Values are
// passed positionally so they never become part of the script text.
const appendLineScript = `printf '%s\n' "$1" >> "$2"`

// HostsService registers loopback host names in the system hosts file.
type HostsService struct {
	runner    domain.CommandRunner
	hostsFile string
	tld       string
	logger    *slog.Logger
}

func NewHostsService(runner domain.CommandRunner, hostsFile, tld string, logger *slog.Logger) *HostsService {
	return &HostsService{runner: runner, hostsFile: hostsFile, tld: tld, logger: logger}
}

// Entry returns the hosts line for a project name.
func (s *HostsService) Entry(name string) string {
	return fmt.Sprintf("127.0.0.1 %s.%s", name, s.tld)
}

// Register appends the loopback entry for name unless an equivalent line
// is already present. It reports whether the file was changed.
func (s *HostsService) Register(ctx context.Context, name string) (bool, error) {
	entry := s.Entry(name)

	content, err := os.ReadFile(s.hostsFile)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", s.hostsFile, err)
	}
	if strings.Contains(string(content), entry) {
		s.logger.InfoContext(ctx, "Hosts entry already present", slog.String("entry", entry))
		return false, nil
	}

	// Make sure we start on a fresh line if the file lacks a trailing newline.
	line := entry
	if len(content) > 0 && content[len(content)-1] != '\n' {
		line = "\n" + entry
	}

	if _, err := s.runner.RunPrivileged(ctx, "sh", "-c", appendLineScript, "laraprov", line, s.hostsFile); err != nil {
		return false, fmt.Errorf("append hosts entry: %w", err)
	}
	s.logger.InfoContext(ctx, "Registered hosts entry", slog.String("entry", entry))
	return true, nil
}
