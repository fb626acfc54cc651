package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coursepilot/coursepilot/internal/optimizer"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// Optimize builds ranked, conflict-free schedules for the requested courses.
func (h *Handlers) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", types.ErrValidation, err))
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}
