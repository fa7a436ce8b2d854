package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// Stream identifies which pipe a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// LineSink receives output as it is produced. It must not block for long;
// the child process stalls while a sink call is in flight.
type LineSink func(stream Stream, line string)

// Invocation is one subprocess to start.
type Invocation struct {
	Argv  []string
	Stdin string
	Dir   string
}

// Output is the captured result of an invocation that started.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor starts processes. A returned error means the process never ran
// (binary missing, permission denied, cancelled before start); a started
// process that exits non-zero is reported through Output.ExitCode.
type Executor interface {
	Execute(ctx context.Context, inv Invocation, sink LineSink) (*Output, error)
}

// OSExecutor runs real processes via os/exec.
type OSExecutor struct{}

func (OSExecutor) Execute(ctx context.Context, inv Invocation, sink LineSink) (*Output, error) {
	if len(inv.Argv) == 0 {
		return nil, errors.New("shell: empty argument vector")
	}

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir
	if inv.Stdin != "" {
		cmd.Stdin = strings.NewReader(inv.Stdin)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go pump(&wg, stdoutPipe, &stdout, Stdout, sink)
	go pump(&wg, stderrPipe, &stderr, Stderr, sink)
	wg.Wait()

	out := &Output{}
	waitErr := cmd.Wait()
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		out.ExitCode = exitErr.ExitCode()
	default:
		return out, waitErr
	}
	return out, nil
}

func pump(wg *sync.WaitGroup, r io.Reader, buf *bytes.Buffer, stream Stream, sink LineSink) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')
		if sink != nil {
			sink(stream, line)
		}
	}
	// Drain anything the scanner refused (over-long line) so the child never blocks on a full pipe.
	_, _ = io.Copy(buf, r)
}
