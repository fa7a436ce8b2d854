package shell_test

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/infrastructure/shell"
)

// fakeExecutor replays scripted responses keyed by the joined argv.
type fakeExecutor struct {
	mu        sync.Mutex
	calls     []shell.Invocation
	responses map[string][]fakeResponse
}

type fakeResponse struct {
	out *shell.Output
	err error
}

func (f *fakeExecutor) on(cmd string, out *shell.Output, err error) {
	if f.responses == nil {
		f.responses = map[string][]fakeResponse{}
	}
	f.responses[cmd] = append(f.responses[cmd], fakeResponse{out: out, err: err})
}

func (f *fakeExecutor) Execute(_ context.Context, inv shell.Invocation, sink shell.LineSink) (*shell.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, inv)

	key := strings.Join(inv.Argv, " ")
	queue := f.responses[key]
	if len(queue) == 0 {
		return &shell.Output{}, nil
	}
	resp := queue[0]
	if len(queue) > 1 {
		f.responses[key] = queue[1:]
	}
	if sink != nil && resp.out != nil && resp.out.Stdout != "" {
		sink(shell.Stdout, strings.TrimSpace(resp.out.Stdout))
	}
	return resp.out, resp.err
}

func (f *fakeExecutor) argvs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c.Argv, " ")
	}
	return out
}

type memVault struct{ secret string }

func (v *memVault) Store(s string) error   { v.secret = s; return nil }
func (v *memVault) Reveal() (string, bool) { return v.secret, v.secret != "" }
func (v *memVault) Forget()                { v.secret = "" }

type fakeAsker struct {
	password      string
	passwordAsks  int
	confirm       bool
	confirmations []string
}

func (a *fakeAsker) AskPassword(context.Context) (string, error) {
	a.passwordAsks++
	return a.password, nil
}

func (a *fakeAsker) ConfirmDependency(_ context.Context, binary, pkg string) (bool, error) {
	a.confirmations = append(a.confirmations, binary+"->"+pkg)
	return a.confirm, nil
}

func TestRunner_Run_Success(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("git --version", &shell.Output{Stdout: "git version 2.43.0\n"}, nil)

	var lines []string
	r := shell.NewRunner(fx, &memVault{}, &fakeAsker{}, nil,
		shell.WithLineSink(func(_ shell.Stream, line string) { lines = append(lines, line) }))

	res, err := r.Run(context.Background(), "git", "--version")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "git version 2.43.0\n", res.Stdout)
	assert.Equal(t, []string{"git version 2.43.0"}, lines)
	assert.Empty(t, fx.calls[0].Stdin, "unprivileged commands get no stdin")
}

func TestRunner_Run_NonZeroExit(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("composer install", &shell.Output{ExitCode: 2, Stderr: "Your lock file is out of sync\n"}, nil)

	r := shell.NewRunner(fx, &memVault{}, &fakeAsker{}, nil)
	res, err := r.Run(context.Background(), "composer", "install")

	var failed *domain.CommandFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "composer install", failed.Command)
	assert.Equal(t, 2, failed.ExitCode)
	assert.Contains(t, failed.Stderr, "lock file")
	assert.Equal(t, 2, res.ExitCode)
}

func TestRunner_RunPrivileged_PasswordOnStdin(t *testing.T) {
	fx := &fakeExecutor{}
	asker := &fakeAsker{password: "hunter2"}
	vault := &memVault{}
	r := shell.NewRunner(fx, vault, asker, nil)

	_, err := r.RunPrivileged(context.Background(), "systemctl", "reload", "apache2")
	require.NoError(t, err)
	_, err = r.RunPrivileged(context.Background(), "a2ensite", "shop.conf")
	require.NoError(t, err)

	assert.Equal(t, 1, asker.passwordAsks, "password is cached after the first prompt")
	require.Len(t, fx.calls, 2)
	assert.Equal(t, []string{"sudo", "-S", "-p", "", "systemctl", "reload", "apache2"}, fx.calls[0].Argv)
	assert.Equal(t, "hunter2\n", fx.calls[0].Stdin)
	for _, c := range fx.calls {
		assert.NotContains(t, c.Argv, "hunter2", "password must never be an argument")
	}
}

func TestRunner_RunPrivileged_EmptyPasswordAbandons(t *testing.T) {
	fx := &fakeExecutor{}
	r := shell.NewRunner(fx, &memVault{}, &fakeAsker{password: ""}, nil)

	_, err := r.RunPrivileged(context.Background(), "ln", "-s", "a", "b")
	assert.ErrorIs(t, err, domain.ErrAuthenticationAbandoned)
	assert.Empty(t, fx.calls, "nothing runs without a password")
}

func TestRunner_RunPrivileged_RejectedPasswordIsForgotten(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("sudo -S -p  chmod -R 775 /var/www/shop", &shell.Output{ExitCode: 1, Stderr: "Sorry, try again.\nsudo: 1 incorrect password attempt\n"}, nil)

	vault := &memVault{}
	asker := &fakeAsker{password: "wrong"}
	r := shell.NewRunner(fx, vault, asker, nil)

	_, err := r.RunPrivileged(context.Background(), "chmod", "-R", "775", "/var/www/shop")
	var failed *domain.CommandFailedError
	require.ErrorAs(t, err, &failed)

	_, cached := vault.Reveal()
	assert.False(t, cached)
}

func TestRunner_MissingBinary_InstallsAndRetriesOnce(t *testing.T) {
	fx := &fakeExecutor{}
	notFound := &shell.Output{ExitCode: 127, Stderr: "bash: line 1: composer: command not found\n"}
	fx.on("composer install -d /var/www/shop", notFound, nil)
	fx.on("composer install -d /var/www/shop", &shell.Output{Stdout: "Nothing to install\n"}, nil)

	asker := &fakeAsker{password: "pw", confirm: true}
	r := shell.NewRunner(fx, &memVault{}, asker, nil)

	res, err := r.Run(context.Background(), "composer", "install", "-d", "/var/www/shop")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)

	assert.Equal(t, []string{"composer->composer"}, asker.confirmations)
	assert.Equal(t, []string{
		"composer install -d /var/www/shop",
		"sudo -S -p  apt-get install -y composer",
		"composer install -d /var/www/shop",
	}, fx.argvs())
}

func TestRunner_MissingBinary_NoUnboundedLoop(t *testing.T) {
	fx := &fakeExecutor{}
	notFound := &shell.Output{ExitCode: 127, Stderr: "/bin/sh: 1: composer: not found\n"}
	fx.on("composer install", notFound, nil) // replays forever

	asker := &fakeAsker{password: "pw", confirm: true}
	r := shell.NewRunner(fx, &memVault{}, asker, nil)

	_, err := r.Run(context.Background(), "composer", "install")
	var failed *domain.CommandFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, 127, failed.ExitCode)

	assert.Len(t, asker.confirmations, 1)
	assert.Len(t, fx.argvs(), 3, "original, install, exactly one retry")
}

func TestRunner_MissingBinary_Declined(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("a2ensite shop.conf", nil, &exec.Error{Name: "a2ensite", Err: exec.ErrNotFound})

	asker := &fakeAsker{confirm: false}
	r := shell.NewRunner(fx, &memVault{}, asker, nil)

	_, err := r.Run(context.Background(), "a2ensite", "shop.conf")
	var missing *domain.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "a2ensite", missing.Binary)
	assert.Equal(t, "apache2", missing.Package)
	assert.Len(t, fx.argvs(), 1)
}

func TestRunner_MissingSudoIsNotOfferedForInstall(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("sudo -S -p  rm -rf /var/www/html/shop", nil, &exec.Error{Name: "sudo", Err: exec.ErrNotFound})

	asker := &fakeAsker{password: "pw", confirm: true}
	r := shell.NewRunner(fx, &memVault{}, asker, nil)

	_, err := r.RunPrivileged(context.Background(), "rm", "-rf", "/var/www/html/shop")
	var missing *domain.MissingDependencyError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "sudo", missing.Binary)
	assert.Empty(t, asker.confirmations)
	assert.Len(t, fx.argvs(), 1)
}

func TestRunner_RecoveryDisabled(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("composer install", &shell.Output{ExitCode: 127, Stderr: "composer: command not found"}, nil)

	asker := &fakeAsker{confirm: true}
	r := shell.NewRunner(fx, &memVault{}, asker, nil, shell.WithMissingBinaryRecovery(false))

	_, err := r.Run(context.Background(), "composer", "install")
	require.Error(t, err)
	assert.Empty(t, asker.confirmations)
}

func TestRunner_StartFailureIsNotMissingBinary(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("git pull", nil, errors.New("permission denied"))

	asker := &fakeAsker{confirm: true}
	r := shell.NewRunner(fx, &memVault{}, asker, nil)

	_, err := r.Run(context.Background(), "git", "pull")
	require.Error(t, err)
	assert.Empty(t, asker.confirmations)
}

func TestPackageFor(t *testing.T) {
	cases := map[string]string{
		"composer":           "composer",
		"/usr/sbin/a2ensite": "apache2",
		"/usr/bin/php8.1":    "php8.1-cli",
		"git":                "git",
		"systemctl":          "systemd",
	}
	for binary, want := range cases {
		assert.Equal(t, want, shell.PackageFor(binary), binary)
	}
}

func TestRunner_ContextSinkWins(t *testing.T) {
	fx := &fakeExecutor{}
	fx.on("php -v", &shell.Output{Stdout: "PHP 8.1.2\n"}, nil)

	var fromOption, fromContext []string
	r := shell.NewRunner(fx, &memVault{}, &fakeAsker{}, nil,
		shell.WithLineSink(func(_ shell.Stream, l string) { fromOption = append(fromOption, l) }))

	ctx := shell.ContextWithSink(context.Background(), func(_ shell.Stream, l string) { fromContext = append(fromContext, l) })
	_, err := r.Run(ctx, "php", "-v")
	require.NoError(t, err)

	assert.Empty(t, fromOption)
	assert.Equal(t, []string{"PHP 8.1.2"}, fromContext)
}

func TestSinkWriter_SplitsLines(t *testing.T) {
	var got []string
	w := shell.SinkWriter(func(_ shell.Stream, l string) { got = append(got, l) }, shell.Stderr)

	_, _ = w.Write([]byte("Counting objects: 10%\rCounting objects: 100%\nDone"))
	_, _ = w.Write([]byte("\n"))

	assert.Equal(t, []string{"Counting objects: 10%", "Counting objects: 100%", "Done"}, got)
}
