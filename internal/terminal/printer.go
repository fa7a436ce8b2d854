package terminal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/irgordon/laraprov/internal/telemetry"
)

// Printer writes hub log lines to a terminal.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
}

func NewPrinter(out io.Writer, styles Styles) *Printer {
	return &Printer{out: out, styles: styles}
}

// Print writes one line, prefixed with its project.
func (p *Printer) Print(line telemetry.LogLine) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := ""
	if line.Project != "" {
		prefix = p.styles.Project.Render("["+line.Project+"]") + " "
	}

	var body string
	switch line.Level {
	case telemetry.LevelWarn:
		body = p.styles.Warn.Render("warning: " + line.Message)
	case telemetry.LevelError:
		body = p.styles.Error.Render("error: " + line.Message)
	case telemetry.LevelOut:
		body = p.styles.Output.Render("  " + line.Message)
	default:
		body = p.styles.Info.Render(line.Message)
	}
	fmt.Fprintln(p.out, prefix+body)
}

// Follow prints lines from ch until it is closed or ctx ends.
func (p *Printer) Follow(ctx context.Context, ch <-chan telemetry.LogLine) {
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-ch:
			if !ok {
				return
			}
			p.Print(line)
		}
	}
}
