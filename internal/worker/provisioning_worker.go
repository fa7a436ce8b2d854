package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/infrastructure/shell"
	"github.com/irgordon/laraprov/internal/telemetry"
)

// Provisioner takes one project through the pipeline.
type Provisioner interface {
	Provision(ctx context.Context, runID uuid.UUID, p domain.Project, observe domain.StateObserver) *domain.Outcome
}

// Snapshotter yields the queue contents a run works through.
type Snapshotter interface {
	List() []domain.Project
}

// ProvisioningWorker executes runs one at a time, in queue order.
type ProvisioningWorker struct {
	queue    Snapshotter
	pipeline Provisioner
	hub      *telemetry.Hub
	logger   *slog.Logger

	active  atomic.Bool
	mu      sync.RWMutex
	current *domain.Run
}

func NewProvisioningWorker(queue Snapshotter, pipeline Provisioner, hub *telemetry.Hub, logger *slog.Logger) *ProvisioningWorker {
	return &ProvisioningWorker{
		queue:    queue,
		pipeline: pipeline,
		hub:      hub,
		logger:   logger,
	}
}

// Active reports whether a run is in progress.
func (w *ProvisioningWorker) Active() bool {
	return w.active.Load()
}

// Start claims the worker, snapshots the queue and executes the run in the
// background. It returns the new run immediately.
func (w *ProvisioningWorker) Start(ctx context.Context) (*domain.Run, error) {
	run, projects, err := w.begin()
	if err != nil {
		return nil, err
	}
	snapshot := w.Current()
	go w.execute(ctx, run, projects)
	return snapshot, nil
}

// RunSync is Start without the goroutine: it returns once every project has
// reached a terminal state.
func (w *ProvisioningWorker) RunSync(ctx context.Context) (*domain.Run, error) {
	run, projects, err := w.begin()
	if err != nil {
		return nil, err
	}
	w.execute(ctx, run, projects)
	return w.Current(), nil
}

// Current returns a copy of the latest run, or nil if none has started.
func (w *ProvisioningWorker) Current() *domain.Run {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.current == nil {
		return nil
	}
	c := *w.current
	c.Outcomes = make([]*domain.Outcome, len(w.current.Outcomes))
	for i, o := range w.current.Outcomes {
		oc := *o
		oc.Warnings = append([]string(nil), o.Warnings...)
		c.Outcomes[i] = &oc
	}
	return &c
}

func (w *ProvisioningWorker) begin() (*domain.Run, []domain.Project, error) {
	if !w.active.CompareAndSwap(false, true) {
		return nil, nil, domain.ErrRunActive
	}

	projects := w.queue.List()
	if len(projects) == 0 {
		w.active.Store(false)
		return nil, nil, domain.ErrQueueEmpty
	}

	run := &domain.Run{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Outcomes:  make([]*domain.Outcome, len(projects)),
	}
	for i, p := range projects {
		run.Outcomes[i] = &domain.Outcome{Project: p, State: domain.StatePending}
	}

	w.mu.Lock()
	w.current = run
	w.mu.Unlock()
	return run, projects, nil
}

func (w *ProvisioningWorker) execute(ctx context.Context, run *domain.Run, projects []domain.Project) {
	log := w.logger.With(slog.String("run_id", run.ID.String()))
	log.Info("Provisioning run started", slog.Int("projects", len(projects)))

	for i, p := range projects {
		if err := ctx.Err(); err != nil {
			w.abandon(log, run, i, err)
			break
		}

		observe := func(state domain.ProjectState) {
			w.update(run, i, func(o *domain.Outcome) { o.State = state })
		}
		observe(domain.StateFetching)

		pctx := shell.ContextWithSink(ctx, w.sinkFor(run.ID, p.Name))
		out := w.pipeline.Provision(pctx, run.ID, p, observe)

		w.update(run, i, func(o *domain.Outcome) { *o = *out })
	}

	w.mu.Lock()
	finished := time.Now()
	run.FinishedAt = &finished
	done, failed := run.Counts()
	w.mu.Unlock()

	log.Info("Provisioning run finished",
		slog.Int("done", done),
		slog.Int("failed", failed),
		slog.Duration("elapsed", finished.Sub(run.StartedAt)))
	w.active.Store(false)
	w.hub.Complete(run.ID.String())
}

// abandon fails every project from index start onwards.
func (w *ProvisioningWorker) abandon(log *slog.Logger, run *domain.Run, start int, err error) {
	log.Warn("Run cancelled", slog.Int("remaining", len(run.Outcomes)-start))
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range run.Outcomes[start:] {
		o.Fail(err)
	}
}

func (w *ProvisioningWorker) update(run *domain.Run, i int, fn func(*domain.Outcome)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(run.Outcomes[i])
}

// sinkFor streams raw subprocess output for one project onto the hub.
func (w *ProvisioningWorker) sinkFor(runID uuid.UUID, project string) shell.LineSink {
	id := runID.String()
	return func(stream shell.Stream, line string) {
		w.hub.Broadcast(telemetry.LogLine{
			RunID:   id,
			Project: project,
			Level:   telemetry.LevelOut,
			Stream:  string(stream),
			Message: line,
		})
	}
}
