package handlers

import "net/http"

type HealthHandler struct {
	Runs RunController
}

func NewHealthHandler(runs RunController) *HealthHandler {
	return &HealthHandler{Runs: runs}
}

// Check handles GET /api/v1/health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"run_active": h.Runs.Active(),
	})
}
