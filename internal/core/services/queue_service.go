package services

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// Use a single instance of Validate, it caches struct info
var validate = validator.New()

// QueueService holds the operator's ordered list of projects to provision.
type QueueService struct {
	mu       sync.RWMutex
	projects []domain.Project
}

func NewQueueService() *QueueService {
	return &QueueService{}
}

// Add appends a project. Empty fields are rejected and leave the queue untouched.
func (q *QueueService) Add(name, repoURL string) (domain.Project, error) {
	p := domain.Project{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(name),
		RepositoryURL: strings.TrimSpace(repoURL),
	}

	if err := validate.Struct(p); err != nil {
		return domain.Project{}, toValidationError(err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.projects = append(q.projects, p)
	return p, nil
}

// Remove deletes the project at index.
func (q *QueueService) Remove(index int) (domain.Project, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if index < 0 || index >= len(q.projects) {
		return domain.Project{}, &domain.IndexError{Index: index, Len: len(q.projects)}
	}
	p := q.projects[index]
	q.projects = append(q.projects[:index], q.projects[index+1:]...)
	return p, nil
}

// RemoveByID deletes the project with the given ID.
func (q *QueueService) RemoveByID(id uuid.UUID) (domain.Project, error) {
	q.mu.RLock()
	index := -1
	for i, p := range q.projects {
		if p.ID == id {
			index = i
			break
		}
	}
	q.mu.RUnlock()

	return q.Remove(index)
}

// List returns a snapshot of the queue in insertion order.
func (q *QueueService) List() []domain.Project {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]domain.Project, len(q.projects))
	copy(out, q.projects)
	return out
}

// Len reports how many projects are queued.
func (q *QueueService) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.projects)
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldLabel(fe.Field()))
	}
	return &domain.ValidationError{Fields: fields}
}

func fieldLabel(field string) string {
	switch field {
	case "Name":
		return "name"
	case "RepositoryURL":
		return "repository_url"
	}
	return strings.ToLower(field)
}
