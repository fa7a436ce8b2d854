package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/irgordon/laraprov/internal/core/domain"
	"github.com/irgordon/laraprov/internal/interaction"
)

// ProjectQueue is the queue surface the dashboard edits.
type ProjectQueue interface {
	List() []domain.Project
	Add(name, repoURL string) (domain.Project, error)
	Remove(index int) (domain.Project, error)
}

// RunController starts runs and reports on them.
type RunController interface {
	Start(ctx context.Context) (*domain.Run, error)
	Current() *domain.Run
	Active() bool
}

// PromptBroker exposes the pending interaction request.
type PromptBroker interface {
	Pending() *interaction.Request
	Resolve(id uuid.UUID, value string) bool
}
