package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coursepilot/coursepilot/pkg/types"
)

type syncRequest struct {
	EntityType  types.EntityType `json:"entityType"`
	Term        string           `json:"term"`
	Institution string           `json:"institution"`
	Force       bool             `json:"force,omitempty"`
}

// TriggerSync starts a background refresh for a tuple and acknowledges with
// 202. Status is pollable via SyncStatus on the same tuple.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", types.ErrValidation, err))
		return
	}

	if err := h.orch.TriggerSync(r.Context(), req.EntityType, req.Term, req.Institution, req.Force); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"tuple":  types.SyncTuple(req.EntityType, req.Term, req.Institution),
	})
}

// SyncStatus returns the sync metadata for one tuple, or every known tuple
// for an institution when entityType is omitted.
func (h *Handlers) SyncStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	et := types.EntityType(q.Get("entityType"))
	term := q.Get("term")
	institution := q.Get("institution")

	if et == "" {
		metas, err := h.store.ListSyncMetadata(r.Context(), institution)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: %v", types.ErrStore, err))
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"tuples": metas})
		return
	}

	meta, err := h.orch.SyncStatus(r.Context(), et, term, institution)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if meta == nil {
		h.writeError(w, fmt.Errorf("%w: tuple %s never synced",
			types.ErrDataNotFound, types.SyncTuple(et, term, institution)))
		return
	}
	h.writeJSON(w, http.StatusOK, meta)
}
