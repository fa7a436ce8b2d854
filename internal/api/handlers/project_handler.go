package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/irgordon/laraprov/internal/core/domain"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type CreateProjectRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	RepositoryURL string `json:"repository_url" validate:"required,max=2048"`
}

type projectView struct {
	Index int `json:"index"`
	domain.Project
}

// ==============================================================================
// 2. Handler
// ==============================================================================

type ProjectHandler struct {
	Queue ProjectQueue
}

func NewProjectHandler(queue ProjectQueue) *ProjectHandler {
	return &ProjectHandler{Queue: queue}
}

// List handles GET /api/v1/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects := h.Queue.List()
	out := make([]projectView, len(projects))
	for i, p := range projects {
		out[i] = projectView{Index: i, Project: p}
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/v1/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, `{"message": "Invalid JSON payload"}`, http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	p, err := h.Queue.Add(req.Name, req.RepositoryURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Delete handles DELETE /api/v1/projects/{index}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, `{"message": "Invalid index"}`, http.StatusBadRequest)
		return
	}
	if _, err := h.Queue.Remove(index); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
