package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthenticationAbandoned means the operator declined or closed the password prompt.
	ErrAuthenticationAbandoned = errors.New("authentication abandoned: no sudo password supplied")

	// ErrPromptTimeout means nobody answered an interaction request in time.
	ErrPromptTimeout = errors.New("interaction request timed out")

	ErrRunActive  = errors.New("a provisioning run is already active")
	ErrQueueEmpty = errors.New("no projects queued")
)

// ValidationError reports required fields that were empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s required", strings.Join(e.Fields, ", "))
}

// IndexError reports an out-of-range queue position.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range for queue of length %d", e.Index, e.Len)
}

// CommandFailedError is returned for any subprocess that exits non-zero.
type CommandFailedError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandFailedError) Error() string {
	msg := fmt.Sprintf("command %q failed with exit code %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ":\n" + s
	}
	return msg
}

// MissingDependencyError is raised when a command could not run because its binary is absent.
type MissingDependencyError struct {
	Binary  string
	Package string
	Cause   error
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing dependency %q (package %s)", e.Binary, e.Package)
}

func (e *MissingDependencyError) Unwrap() error { return e.Cause }
