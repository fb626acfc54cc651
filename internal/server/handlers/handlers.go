// Package handlers implements HTTP request handlers for the coursepilot API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coursepilot/coursepilot/internal/breaker"
	"github.com/coursepilot/coursepilot/internal/cache"
	"github.com/coursepilot/coursepilot/internal/optimizer"
	"github.com/coursepilot/coursepilot/internal/orchestrator"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// Handlers contains all HTTP handler dependencies.
type Handlers struct {
	orch      *orchestrator.Orchestrator
	optimizer *optimizer.Optimizer
	store     store.Store
	cache     *cache.Cache
	breakers  *breaker.Registry
	logger    *slog.Logger
}

// New creates a new Handlers instance.
func New(orch *orchestrator.Orchestrator, opt *optimizer.Optimizer, st store.Store, c *cache.Cache, br *breaker.Registry) *Handlers {
	return &Handlers{
		orch:      orch,
		optimizer: opt,
		store:     st,
		cache:     c,
		breakers:  br,
		logger:    slog.Default(),
	}
}

// SetLogger overrides the default logger.
func (h *Handlers) SetLogger(l *slog.Logger) {
	if l != nil {
		h.logger = l
	}
}

// writeJSON encodes v with the given status code.
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encoding response failed", "error", err)
	}
}

// writeError logs the internal error and returns a sanitized JSON error with
// its wire-level code to the client.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := types.CodeFor(err)
	if errors.Is(err, types.ErrSyncInProgress) {
		code = "SYNC_IN_PROGRESS"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "status", status)
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(code),
	})
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrDataNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, types.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrCollector):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
