package interaction

import (
	"context"
	"log/slog"
)

// Prompter renders one request to the operator and returns the answer.
// Implementations may be a terminal, a test script, or anything else that
// can block until a human responds.
type Prompter interface {
	Prompt(ctx context.Context, req *Request) (string, error)
}

// Serve answers requests from b with p until ctx is done.
// A prompter error is logged and treated as a declined prompt. Each Prompt
// call is cancelled as soon as its request is answered elsewhere, times out,
// or is abandoned by the worker.
func Serve(ctx context.Context, b *Bridge, p Prompter) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-b.Requests():
			select {
			case <-req.Done():
				continue
			default:
			}
			value, err := prompt(ctx, p, req)
			if err != nil {
				select {
				case <-req.Done():
					b.logger.Debug("Prompt closed after request ended", slog.String("kind", string(req.Kind)))
					continue
				default:
				}
				b.logger.Warn("Prompt failed, treating as declined",
					slog.String("kind", string(req.Kind)),
					slog.Any("error", err))
				value = ""
			}
			req.Resolve(value)
		}
	}
}

func prompt(ctx context.Context, p Prompter, req *Request) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-req.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return p.Prompt(ctx, req)
}
