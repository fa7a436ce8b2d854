package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ResolvePromptRequest struct {
	Value string `json:"value"`
}

type PromptHandler struct {
	Prompts PromptBroker
}

func NewPromptHandler(prompts PromptBroker) *PromptHandler {
	return &PromptHandler{Prompts: prompts}
}

// Pending handles GET /api/v1/prompts/pending
func (h *PromptHandler) Pending(w http.ResponseWriter, r *http.Request) {
	req := h.Prompts.Pending()
	if req == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Resolve handles POST /api/v1/prompts/{id}. An empty value is a valid
// answer: it declines or abandons the request.
func (h *PromptHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"message": "Invalid prompt ID format"}`, http.StatusBadRequest)
		return
	}

	var body ResolvePromptRequest
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, `{"message": "Invalid JSON payload"}`, http.StatusBadRequest)
		return
	}

	if !h.Prompts.Resolve(id, body.Value) {
		http.Error(w, `{"message": "No such pending prompt"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
