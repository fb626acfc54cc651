package handlers

import (
	"net/http"
)

// Health reports the store connectivity, breaker states, and cache hit rate.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if err := h.store.Ping(r.Context()); err != nil {
		status = "degraded"
	}

	stats := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"breakers":     h.breakers.Snapshot(),
		"cacheHitRate": stats.HitRate(),
	})
}

// Breakers returns the per-dependency circuit breaker snapshots.
func (h *Handlers) Breakers(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"breakers": h.breakers.Snapshot(),
	})
}

// CacheStats returns the query cache counters.
func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.cache.Stats()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
		"size":      stats.Size,
		"hitRate":   stats.HitRate(),
	})
}
