package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	runIDKey   = "run_id"
	projectKey = "project"
)

// Handler is a slog.Handler that mirrors run-scoped records onto a Hub
// before passing them to next. A record is run-scoped when it carries a
// "run_id" attribute, either directly or through Logger.With, or when it
// was logged with a context from ContextWithRun.
type Handler struct {
	next    slog.Handler
	hub     *Hub
	runID   string
	project string
	attrs   []slog.Attr
}

func NewHandler(next slog.Handler, hub *Hub) *Handler {
	return &Handler{next: next, hub: hub}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= slog.LevelInfo {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	runID, project := h.runID, h.project
	extra := append([]slog.Attr(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case runIDKey:
			runID = a.Value.String()
		case projectKey:
			project = a.Value.String()
		default:
			extra = append(extra, a)
		}
		return true
	})

	if sc, ok := scopeFrom(ctx); ok {
		if runID == "" {
			runID = sc.runID
		}
		if project == "" {
			project = sc.project
		}
	}

	if runID != "" && r.Level >= slog.LevelInfo {
		h.hub.Broadcast(LogLine{
			RunID:   runID,
			Project: project,
			Level:   levelOf(r.Level),
			Message: formatMessage(r.Message, extra),
			Time:    r.Time,
		})
	}

	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		switch a.Key {
		case runIDKey:
			c.runID = a.Value.String()
		case projectKey:
			c.project = a.Value.String()
		default:
			c.attrs = append(c.attrs, a)
		}
	}
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	c := *h
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}

func levelOf(l slog.Level) Level {
	switch {
	case l >= slog.LevelError:
		return LevelError
	case l >= slog.LevelWarn:
		return LevelWarn
	default:
		return LevelInfo
	}
}

func formatMessage(msg string, attrs []slog.Attr) string {
	if len(attrs) == 0 {
		return msg
	}
	var b strings.Builder
	b.WriteString(msg)
	for _, a := range attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	return b.String()
}
