// Package server wires the HTTP facade together: manual http.ServeMux
// routing in the teacher's style (no router framework), grounded on
// internal/server/server.go and routes.go.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/disruptio/cne-pipeline/internal/handlers"
	"github.com/disruptio/cne-pipeline/internal/ratelimit"
)

// Dependencies bundles the handlers the server dispatches to.
type Dependencies struct {
	Jobs       *handlers.JobHandler
	Approval   *handlers.ApprovalHandler
	Artifacts  *handlers.ArtifactHandler
	Master     *handlers.MasterHandler
	Registry   *handlers.RegistryHandler
	Stream     *handlers.StreamHandler
	RateLimit  *ratelimit.Limiter
	Logger     arbor.ILogger
}

// Server owns the HTTP listener.
type Server struct {
	deps   Dependencies
	router *http.ServeMux
	server *http.Server
}

// New builds a Server bound to host:port with the given read/write/idle
// timeouts, matching the teacher's server.go convention.
func New(host string, port int, readTimeout, writeTimeout, idleTimeout time.Duration, deps Dependencies) *Server {
	s := &Server{deps: deps}
	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", host, port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", handlers.Health)

	mux.HandleFunc("/jobs/", s.handleJobsCollection)
	mux.HandleFunc("/jobs/stream", s.deps.Stream.ServeHTTP)

	mux.HandleFunc("/preview/", s.handlePreview)
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/approval/", s.handleApproval)

	mux.HandleFunc("/master-data/", s.handleMasterData)
	mux.HandleFunc("/models/history", s.deps.Registry.History)

	return mux
}

// handleJobsCollection dispatches GET/POST /jobs/ and GET /jobs/{id}.
// /jobs/stream is registered separately and takes priority via ServeMux's
// longest-match rule.
func (s *Server) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/jobs/")
	switch {
	case id == "" && r.Method == http.MethodGet:
		s.deps.Jobs.List(w, r)
	case id == "" && r.Method == http.MethodPost:
		s.deps.RateLimit.Middleware(http.HandlerFunc(s.deps.Jobs.Create)).ServeHTTP(w, r)
	case id != "" && r.Method == http.MethodGet:
		s.deps.Jobs.Get(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/preview/")
	if id == "" || r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.deps.Artifacts.Preview(w, r, id)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/download/")
	if id == "" || r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.deps.Artifacts.Download(w, r, id)
}

func (s *Server) handleApproval(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/approval/")
	if id == "" || r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.deps.Approval.Approve(w, r, id)
}

func (s *Server) handleMasterData(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.deps.Master.List(w, r)
	case http.MethodPost:
		s.deps.Master.Create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Start begins serving and blocks until the server is shut down.
func (s *Server) Start() error {
	s.deps.Logger.Info().Str("address", s.server.Addr).Msg("HTTP server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.deps.Logger.Info().Msg("shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
