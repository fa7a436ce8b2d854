package services_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/irgordon/laraprov/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type runCall struct {
	Argv       []string
	Privileged bool
}

func (c runCall) String() string {
	if c.Privileged {
		return "sudo " + strings.Join(c.Argv, " ")
	}
	return strings.Join(c.Argv, " ")
}

// localRunner records every command and performs the filesystem effects of
// the few commands the pipeline relies on, so tests can assert on end state.
type localRunner struct {
	mu    sync.Mutex
	calls []runCall
	hook  func(argv []string) error
}

func (r *localRunner) Run(ctx context.Context, argv ...string) (*domain.CommandResult, error) {
	return r.do(false, argv)
}

func (r *localRunner) RunPrivileged(ctx context.Context, argv ...string) (*domain.CommandResult, error) {
	return r.do(true, argv)
}

func (r *localRunner) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.String()
	}
	return out
}

func (r *localRunner) do(privileged bool, argv []string) (*domain.CommandResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, runCall{Argv: argv, Privileged: privileged})
	hook := r.hook
	r.mu.Unlock()

	res := &domain.CommandResult{Argv: argv}
	if hook != nil {
		if err := hook(argv); err != nil {
			res.ExitCode = 1
			return res, err
		}
	}

	var err error
	switch argv[0] {
	case "mv":
		err = moveFile(argv[1], argv[2])
	case "ln":
		err = os.Symlink(argv[2], argv[3])
	case "rm":
		err = os.RemoveAll(argv[len(argv)-1])
	case "sh":
		err = appendLine(argv[5], argv[4])
	}
	if err != nil {
		res.ExitCode = 1
		return res, &domain.CommandFailedError{Command: res.CommandLine(), ExitCode: 1, Stderr: err.Error()}
	}
	return res, nil
}

func moveFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return err
	}
	return os.Remove(src)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s\n", line)
	return err
}

type fakeChooser struct {
	answer  string
	err     error
	offered []string
	asked   int
}

func (c *fakeChooser) ChooseVersion(_ context.Context, _ string, options []string) (string, error) {
	c.asked++
	c.offered = options
	return c.answer, c.err
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		panic(err)
	}
}
