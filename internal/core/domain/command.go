package domain

import (
	"context"
	"strings"
)

// CommandResult is the captured outcome of one subprocess.
type CommandResult struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandLine joins the argument vector for logging and error messages.
func (r *CommandResult) CommandLine() string {
	return strings.Join(r.Argv, " ")
}

// CommandRunner executes OS commands one at a time.
// Non-zero exits are returned as *CommandFailedError.
type CommandRunner interface {
	Run(ctx context.Context, argv ...string) (*CommandResult, error)
	RunPrivileged(ctx context.Context, argv ...string) (*CommandResult, error)
}
