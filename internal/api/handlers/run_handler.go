package handlers

import (
	"context"
	"net/http"
)

type RunHandler struct {
	Runs RunController
	// BaseCtx outlives individual requests; runs started from the dashboard
	// are bound to it rather than to the request that started them.
	BaseCtx context.Context
}

func NewRunHandler(ctx context.Context, runs RunController) *RunHandler {
	return &RunHandler{Runs: runs, BaseCtx: ctx}
}

// Start handles POST /api/v1/runs
func (h *RunHandler) Start(w http.ResponseWriter, r *http.Request) {
	run, err := h.Runs.Start(h.BaseCtx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": run.ID.String()})
}

// Current handles GET /api/v1/runs/current
func (h *RunHandler) Current(w http.ResponseWriter, r *http.Request) {
	run := h.Runs.Current()
	if run == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	done, failed := run.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"run":    run,
		"active": h.Runs.Active(),
		"done":   done,
		"failed": failed,
	})
}
