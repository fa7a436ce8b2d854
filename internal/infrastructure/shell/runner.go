package shell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/irgordon/laraprov/internal/core/domain"
)

var (
	notFoundPattern    = regexp.MustCompile(`(\S+): (?:command )?not found`)
	badPasswordPattern = regexp.MustCompile(`(?i)incorrect password|sorry, try again`)
	phpBinaryPattern   = regexp.MustCompile(`^php\d+\.\d+$`)
)

// packageAliases maps binaries whose Debian package is named differently.
var packageAliases = map[string]string{
	"a2ensite":  "apache2",
	"a2dissite": "apache2",
	"a2enmod":   "apache2",
	"apachectl": "apache2",
	"systemctl": "systemd",
}

// Asker is the slice of the interaction bridge the runner needs.
type Asker interface {
	AskPassword(ctx context.Context) (string, error)
	ConfirmDependency(ctx context.Context, binary, pkg string) (bool, error)
}

// Runner executes commands sequentially, elevating through sudo when asked.
type Runner struct {
	exec     Executor
	vault    domain.CredentialVault
	asker    Asker
	sink     LineSink
	logger   *slog.Logger
	recovery bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithMissingBinaryRecovery enables the install-and-retry-once behaviour.
func WithMissingBinaryRecovery(enabled bool) Option {
	return func(r *Runner) { r.recovery = enabled }
}

// WithLineSink streams every output line to sink.
func WithLineSink(sink LineSink) Option {
	return func(r *Runner) { r.sink = sink }
}

func NewRunner(executor Executor, vault domain.CredentialVault, asker Asker, logger *slog.Logger, opts ...Option) *Runner {
	if executor == nil {
		executor = OSExecutor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		exec:     executor,
		vault:    vault,
		asker:    asker,
		logger:   logger,
		recovery: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes argv as the current user.
func (r *Runner) Run(ctx context.Context, argv ...string) (*domain.CommandResult, error) {
	return r.execute(ctx, argv, false)
}

// RunPrivileged executes argv through `sudo -S`, feeding the cached password on stdin.
func (r *Runner) RunPrivileged(ctx context.Context, argv ...string) (*domain.CommandResult, error) {
	return r.execute(ctx, argv, true)
}

func (r *Runner) execute(ctx context.Context, argv []string, privileged bool) (*domain.CommandResult, error) {
	res, err := r.once(ctx, argv, privileged)
	if err == nil || !r.recovery {
		return res, err
	}

	started := argv[0]
	if privileged {
		started = "sudo"
	}
	missing := detectMissing(started, res, err)
	if missing == nil {
		return res, err
	}

	r.logger.WarnContext(ctx, "Command binary missing",
		slog.String("binary", missing.Binary),
		slog.String("package", missing.Package))

	if missing.Binary == "sudo" || missing.Binary == "apt-get" {
		return res, missing
	}

	ok, askErr := r.asker.ConfirmDependency(ctx, missing.Binary, missing.Package)
	if askErr != nil {
		return res, fmt.Errorf("confirming install of %s: %w", missing.Package, askErr)
	}
	if !ok {
		return res, missing
	}

	if _, installErr := r.once(ctx, []string{"apt-get", "install", "-y", missing.Package}, true); installErr != nil {
		return res, fmt.Errorf("installing %s: %w", missing.Package, installErr)
	}

	r.logger.InfoContext(ctx, "Installed missing package, retrying command",
		slog.String("package", missing.Package),
		slog.String("command", strings.Join(argv, " ")))

	// Exactly one retry; a second failure is returned untouched.
	return r.once(ctx, argv, privileged)
}

func (r *Runner) once(ctx context.Context, argv []string, privileged bool) (*domain.CommandResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("shell: empty argument vector")
	}

	inv := Invocation{Argv: argv}
	if privileged {
		pw, err := r.password(ctx)
		if err != nil {
			return nil, err
		}
		inv.Argv = append([]string{"sudo", "-S", "-p", ""}, argv...)
		inv.Stdin = pw + "\n"
	}

	res := &domain.CommandResult{Argv: argv}
	r.logger.DebugContext(ctx, "Running command",
		slog.String("command", res.CommandLine()),
		slog.Bool("privileged", privileged))

	sink := r.sink
	if s := SinkFromContext(ctx); s != nil {
		sink = s
	}

	out, err := r.exec.Execute(ctx, inv, sink)
	if out != nil {
		res.ExitCode = out.ExitCode
		res.Stdout = out.Stdout
		res.Stderr = out.Stderr
	}
	if err != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("starting %s: %w", inv.Argv[0], err)
	}

	if res.ExitCode != 0 {
		if privileged && badPasswordPattern.MatchString(res.Stderr) {
			r.logger.WarnContext(ctx, "sudo rejected the cached password; it will be requested again")
			r.vault.Forget()
		}
		return res, &domain.CommandFailedError{
			Command:  res.CommandLine(),
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

func (r *Runner) password(ctx context.Context) (string, error) {
	if pw, ok := r.vault.Reveal(); ok {
		return pw, nil
	}

	pw, err := r.asker.AskPassword(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAuthenticationAbandoned, err)
	}
	if pw == "" {
		return "", domain.ErrAuthenticationAbandoned
	}
	if err := r.vault.Store(pw); err != nil {
		return "", err
	}
	return pw, nil
}

// detectMissing recognises both a binary that could not be started at all
// and a shell/sudo "command not found" report on stderr. started is the
// program actually exec'd, which is sudo for privileged calls.
func detectMissing(started string, res *domain.CommandResult, err error) *domain.MissingDependencyError {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return newMissing(started, err)
	}
	var failed *domain.CommandFailedError
	if res == nil || !errors.As(err, &failed) {
		return nil
	}
	m := notFoundPattern.FindStringSubmatch(res.Stderr)
	if m == nil {
		return nil
	}
	return newMissing(m[1], err)
}

func newMissing(binary string, cause error) *domain.MissingDependencyError {
	return &domain.MissingDependencyError{
		Binary:  binary,
		Package: PackageFor(binary),
		Cause:   cause,
	}
}

// PackageFor derives the apt package that provides binary.
func PackageFor(binary string) string {
	base := filepath.Base(binary)
	if pkg, ok := packageAliases[base]; ok {
		return pkg
	}
	if phpBinaryPattern.MatchString(base) {
		return base + "-cli"
	}
	return base
}
