// Package server implements the coursepilot HTTP API server.
package server

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coursepilot/coursepilot/internal/breaker"
	"github.com/coursepilot/coursepilot/internal/cache"
	"github.com/coursepilot/coursepilot/internal/optimizer"
	"github.com/coursepilot/coursepilot/internal/orchestrator"
	"github.com/coursepilot/coursepilot/internal/store"
	"github.com/coursepilot/coursepilot/pkg/types"
)

// DefaultMaxRequestBody bounds request bodies when config leaves it unset.
const DefaultMaxRequestBody = 1 << 20 // 1 MiB

// Server is the coursepilot HTTP API server.
type Server struct {
	orch      *orchestrator.Orchestrator
	optimizer *optimizer.Optimizer
	store     store.Store
	cache     *cache.Cache
	breakers  *breaker.Registry
	router    chi.Router
	addr      string
	srv       *http.Server
}

// New creates a new HTTP server.
func New(cfg *types.ServerConfig, orch *orchestrator.Orchestrator, opt *optimizer.Optimizer, st store.Store, c *cache.Cache, br *breaker.Registry) *Server {
	addr := ":8080"
	apiKey := ""
	maxBody := int64(DefaultMaxRequestBody)
	if cfg != nil {
		if cfg.Addr != "" {
			addr = cfg.Addr
		}
		apiKey = cfg.APIKey
		if cfg.MaxRequestBody > 0 {
			maxBody = cfg.MaxRequestBody
		}
	}

	s := &Server{
		orch:      orch,
		optimizer: opt,
		store:     st,
		cache:     c,
		breakers:  br,
		addr:      addr,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(MaxBodyMiddleware(maxBody))
	r.Use(APIKeyMiddleware(apiKey))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	s.router = r
	s.registerRoutes(r)
	return s
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	fmt.Printf("coursepilot server listening on %s\n", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// metricsHandler serves the expvar counters.
func metricsHandler() http.Handler {
	return expvar.Handler()
}
