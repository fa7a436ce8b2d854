package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Project is a single queued Laravel checkout.
// Name is used verbatim as a directory under the web root and as the host label.
type Project struct {
	ID            uuid.UUID `json:"id" yaml:"-"`
	Name          string    `json:"name" yaml:"name" validate:"required"`
	RepositoryURL string    `json:"repository_url" yaml:"repository_url" validate:"required"`
}

// ProjectState tracks a project's progress through the pipeline.
type ProjectState string

const (
	StatePending        ProjectState = "pending"
	StateFetching       ProjectState = "fetching"
	StateConfiguring    ProjectState = "configuring"
	StateInstallingDeps ProjectState = "installing_deps"
	StateLinking        ProjectState = "linking"
	StatePublishing     ProjectState = "publishing"
	StateDone           ProjectState = "done"
	StateFailed         ProjectState = "failed"
)

// StateObserver is called each time a project enters a new state.
type StateObserver func(ProjectState)

// Terminal reports whether no further transitions are possible.
func (s ProjectState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Outcome is the in-memory result of provisioning one project.
type Outcome struct {
	Project    Project      `json:"project"`
	State      ProjectState `json:"state"`
	PHPVersion string       `json:"php_version,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Err        error        `json:"-"`
	Error      string       `json:"error,omitempty"`
}

// Fail moves the outcome to StateFailed and records the cause.
func (o *Outcome) Fail(err error) {
	o.State = StateFailed
	o.Err = err
	if err != nil {
		o.Error = err.Error()
	}
}

// Warn records a non-fatal problem.
func (o *Outcome) Warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

// Run is one pass of the pipeline over a snapshot of the queue.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Outcomes   []*Outcome `json:"outcomes"`
}

// Counts returns how many projects finished and how many failed.
func (r *Run) Counts() (done, failed int) {
	for _, o := range r.Outcomes {
		switch o.State {
		case StateDone:
			done++
		case StateFailed:
			failed++
		}
	}
	return done, failed
}

// Fetcher brings a project's source tree up to date on disk.
type Fetcher interface {
	// Fetch clones repoURL into dir when dir is absent and pulls otherwise.
	Fetch(ctx context.Context, repoURL, dir string) error
}
