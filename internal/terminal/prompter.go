package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/irgordon/laraprov/internal/interaction"
)

// Prompter answers interaction requests on a terminal.
type Prompter struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	styles Styles

	// pendingLine and pendingPassword hold reads left running by a cancelled
	// prompt, so the next prompt never starts a second reader on the same
	// input. Input that completed while no prompt was showing is dropped.
	pendingLine     chan lineResult
	pendingPassword chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewPrompter reads answers from in and writes questions to out. fd is the
// descriptor used for echo-free password entry; pass -1 when in is not a
// terminal.
func NewPrompter(in io.Reader, out io.Writer, fd int, styles Styles) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, fd: fd, styles: styles}
}

func (p *Prompter) Prompt(ctx context.Context, req *interaction.Request) (string, error) {
	switch req.Kind {
	case interaction.KindPassword:
		return p.password(ctx, req)
	case interaction.KindDependency:
		fmt.Fprintf(p.out, "%s %s [y/N] ", p.styles.Prompt.Render("?"), req.Message)
		return p.readLine(ctx)
	case interaction.KindPHPVersion:
		return p.version(ctx, req)
	default:
		return "", fmt.Errorf("unsupported request kind %q", req.Kind)
	}
}

func (p *Prompter) password(ctx context.Context, req *interaction.Request) (string, error) {
	fmt.Fprintf(p.out, "%s %s ", p.styles.Prompt.Render("?"), req.Message)
	if p.fd < 0 || !term.IsTerminal(p.fd) {
		return p.readLine(ctx)
	}

	pw, err := p.await(ctx, &p.pendingPassword, func() (string, error) {
		b, err := term.ReadPassword(p.fd)
		return string(b), err
	})
	fmt.Fprintln(p.out)
	if err != nil && ctx.Err() == nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, err
}

// version lists the options and accepts either a list number or the
// version itself. Anything else is no selection.
func (p *Prompter) version(ctx context.Context, req *interaction.Request) (string, error) {
	fmt.Fprintf(p.out, "%s %s\n", p.styles.Prompt.Render("?"), req.Message)
	for i, opt := range req.Options {
		fmt.Fprintf(p.out, "  %d) PHP %s\n", i+1, opt)
	}
	fmt.Fprint(p.out, "Select a version (blank to skip): ")

	answer, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n >= 1 && n <= len(req.Options) {
			return req.Options[n-1], nil
		}
		return "", nil
	}
	return answer, nil
}

func (p *Prompter) readLine(ctx context.Context) (string, error) {
	line, err := p.await(ctx, &p.pendingLine, func() (string, error) {
		return p.in.ReadString('\n')
	})
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// await runs read in the background, or adopts the read a cancelled prompt
// left in *pending, and waits for it or for ctx.
func (p *Prompter) await(ctx context.Context, pending *chan lineResult, read func() (string, error)) (string, error) {
	ch := *pending
	if ch != nil {
		select {
		case <-ch:
			ch = nil // answered to a prompt that no longer exists
		default:
		}
	}
	if ch == nil {
		ch = make(chan lineResult, 1)
		go func() {
			line, err := read()
			ch <- lineResult{line, err}
		}()
	}

	select {
	case <-ctx.Done():
		*pending = ch
		fmt.Fprintln(p.out, p.styles.Output.Render("(prompt closed)"))
		return "", ctx.Err()
	case r := <-ch:
		*pending = nil
		return r.line, r.err
	}
}
