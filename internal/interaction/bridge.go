package interaction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// Kind tags what the worker is asking the operator for.
type Kind string

const (
	KindPassword   Kind = "ask_password"
	KindDependency Kind = "ask_dependency"
	KindPHPVersion Kind = "ask_php_version"
)

// Request is a single outstanding question from the worker.
type Request struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Options   []string  `json:"options,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	reply chan string
	done  chan struct{}
	once  sync.Once
}

func newRequest(kind Kind, message string, options []string) *Request {
	return &Request{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		Options:   options,
		CreatedAt: time.Now(),
		reply:     make(chan string, 1),
		done:      make(chan struct{}),
	}
}

// Resolve answers the request. Only the first call has any effect; it
// reports whether this call was the one that answered. An empty value
// means the operator declined or closed the prompt.
func (r *Request) Resolve(value string) bool {
	answered := false
	r.once.Do(func() {
		r.reply <- value
		close(r.done)
		answered = true
	})
	return answered
}

// Done is closed once the request is answered or abandoned by the worker.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

func (r *Request) abandon() {
	r.once.Do(func() { close(r.done) })
}

// Bridge is a single-slot, blocking request/response channel from the
// worker to whichever front end is attached.
type Bridge struct {
	requests chan *Request
	timeout  time.Duration
	logger   *slog.Logger

	askMu   sync.Mutex // serialises Ask so at most one request is outstanding
	mu      sync.RWMutex
	pending *Request
}

// NewBridge creates a bridge. A zero timeout waits forever.
func NewBridge(timeout time.Duration, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		requests: make(chan *Request, 1),
		timeout:  timeout,
		logger:   logger,
	}
}

// Requests delivers each new request to a front end.
func (b *Bridge) Requests() <-chan *Request {
	return b.requests
}

// Pending returns the outstanding request, if any.
func (b *Bridge) Pending() *Request {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pending
}

// Resolve answers the pending request with the given ID.
func (b *Bridge) Resolve(id uuid.UUID, value string) bool {
	req := b.Pending()
	if req == nil || req.ID != id {
		return false
	}
	return req.Resolve(value)
}

// Ask blocks until the operator answers, ctx is cancelled, or the timeout elapses.
func (b *Bridge) Ask(ctx context.Context, kind Kind, message string, options []string) (string, error) {
	b.askMu.Lock()
	defer b.askMu.Unlock()

	req := newRequest(kind, message, options)

	b.mu.Lock()
	b.pending = req
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.pending = nil
		b.mu.Unlock()
		// Nobody may have taken it off the slot (dashboard answers via Resolve).
		select {
		case <-b.requests:
		default:
		}
	}()

	b.requests <- req
	b.logger.DebugContext(ctx, "Interaction requested", slog.String("kind", string(kind)), slog.String("id", req.ID.String()))

	var timeout <-chan time.Time
	if b.timeout > 0 {
		t := time.NewTimer(b.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case v := <-req.reply:
		return v, nil
	case <-ctx.Done():
		req.abandon()
		return "", ctx.Err()
	case <-timeout:
		req.abandon()
		b.logger.WarnContext(ctx, "Interaction request timed out", slog.String("kind", string(kind)), slog.Duration("timeout", b.timeout))
		return "", domain.ErrPromptTimeout
	}
}

// AskPassword asks for the sudo password. An empty answer is returned as-is;
// callers decide whether that is fatal.
func (b *Bridge) AskPassword(ctx context.Context) (string, error) {
	return b.Ask(ctx, KindPassword, "Enter your sudo password:", nil)
}

// ConfirmDependency asks whether the missing package should be installed.
func (b *Bridge) ConfirmDependency(ctx context.Context, binary, pkg string) (bool, error) {
	msg := fmt.Sprintf("%q is not installed. Install package %q now?", binary, pkg)
	v, err := b.Ask(ctx, KindDependency, msg, []string{"yes", "no"})
	if err != nil {
		return false, err
	}
	return IsAffirmative(v), nil
}

// ChooseVersion asks the operator to pick one of the installed PHP versions.
// Anything outside options is treated as no selection.
func (b *Bridge) ChooseVersion(ctx context.Context, project string, options []string) (string, error) {
	msg := fmt.Sprintf("composer install failed for %s. Pick another PHP version to retry with:", project)
	v, err := b.Ask(ctx, KindPHPVersion, msg, options)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if !lo.Contains(options, v) {
		return "", nil
	}
	return v, nil
}

// IsAffirmative interprets a yes/no answer.
func IsAffirmative(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
