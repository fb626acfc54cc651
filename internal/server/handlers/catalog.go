package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coursepilot/coursepilot/pkg/types"
)

// Catalog serves catalog entities through the retrieval fallback chain.
// Query parameters: term, institution, courses (comma-separated codes),
// instructors (comma-separated names), autoPopulate.
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	et := types.EntityType(chi.URLParam(r, "entityType"))

	q := types.Query{
		Term:            r.URL.Query().Get("term"),
		Institution:     r.URL.Query().Get("institution"),
		CourseCodes:     splitList(r.URL.Query().Get("courses")),
		InstructorNames: splitList(r.URL.Query().Get("instructors")),
	}
	autoPopulate, _ := strconv.ParseBool(r.URL.Query().Get("autoPopulate"))

	result, meta, err := h.orch.Fetch(r.Context(), et, q, autoPopulate)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":     result,
		"metadata": meta,
	})
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
