package telemetry

import (
	"sync"
	"time"
)

// allRuns is the subscription key for listeners that want every run.
const allRuns = "*"

// Level classifies a log line for the front ends.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelOut   Level = "output" // raw subprocess output
)

// LogLine is one message from the worker to the operator.
type LogLine struct {
	RunID   string    `json:"run_id"`
	Project string    `json:"project,omitempty"`
	Level   Level     `json:"level"`
	Stream  string    `json:"stream,omitempty"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Hub fans worker log lines out to whichever front ends are listening.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string][]chan LogLine // runID -> listener channels
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]chan LogLine),
	}
}

// Subscribe adds a listener for a single run.
func (h *Hub) Subscribe(runID string) chan LogLine {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan LogLine, 256) // buffered so a slow listener never blocks the worker
	h.subscribers[runID] = append(h.subscribers[runID], ch)
	return ch
}

// SubscribeAll adds a listener that sees every run.
func (h *Hub) SubscribeAll() chan LogLine {
	return h.Subscribe(allRuns)
}

// Unsubscribe removes and closes a listener channel.
func (h *Hub) Unsubscribe(runID string, ch chan LogLine) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[runID]
	for i, sub := range subs {
		if sub == ch {
			h.subscribers[runID] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
	if len(h.subscribers[runID]) == 0 {
		delete(h.subscribers, runID)
	}
}

// Broadcast sends a line to listeners of its run and to catch-all listeners.
func (h *Hub) Broadcast(line LogLine) {
	if line.Time.IsZero() {
		line.Time = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range []string{line.RunID, allRuns} {
		for _, ch := range h.subscribers[key] {
			select {
			case ch <- line:
			default: // drop rather than stall the pipeline
			}
		}
	}
}

// Complete closes and removes every listener of runID. Catch-all listeners
// are unaffected.
func (h *Hub) Complete(runID string) {
	if runID == allRuns {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers[runID] {
		close(ch)
	}
	delete(h.subscribers, runID)
}

// UnsubscribeAll removes a listener created by SubscribeAll.
func (h *Hub) UnsubscribeAll(ch chan LogLine) {
	h.Unsubscribe(allRuns, ch)
}
