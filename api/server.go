// Package api provides the HTTP REST API for trispace.
//
// This package exposes the retrieval core via HTTP endpoints, enabling
// programmatic access from UIs and automation pipelines.
//
// Endpoints:
//
//	GET  /health                            → liveness probe
//	GET  /ready                             → readiness probe (DB ping)
//	POST /api/ask                           → answer a question (JSON or SSE)
//	GET  /api/interactions                  → list recorded interactions
//	POST /api/interactions/{id}/feedback    → attach a rating / correction
//	DELETE /api/interactions/{id}           → delete an interaction
//	GET  /api/questions/frequent            → frequently asked questions
//	GET  /api/questions/quality             → high-quality Q/A pairs
//	GET  /api/intent/pairs                  → curated intent pairs on disk
//	POST /api/index/knowledge/refresh       → rebuild the knowledge space
//	POST /api/index/intent/refresh          → promote into the intent space
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, request ID, logging)
//   - health.go: health check endpoints
//   - ask.go: the question-answering endpoint
//   - interactions.go: feedback log endpoints
//   - questions.go: aggregate question endpoints
//   - rebuild.go: index refresh endpoints
//   - sse.go: Server-Sent Events streaming
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/trispace-io/trispace/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// It covers a full generation round-trip, streamed or not.
	WriteTimeout = 180 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Deps collects everything the server's handlers need.
type Deps struct {
	DB           Pinger
	Orchestrator Answerer
	Feedback     FeedbackLog
	Promoter     IntentRebuilder
	Lifecycle    KnowledgeRefresher
	IntentSource IntentPairSource
	IntentDir    string
	Logger       log.Logger
}

// Server is the HTTP server for the trispace REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	// Handlers
	health       *HealthHandler
	ask          *AskHandler
	interactions *InteractionHandler
	questions    *QuestionHandler
	indexes      *IndexHandler
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:          mux,
		logger:       logger,
		health:       NewHealthHandler(deps.DB, logger),
		ask:          NewAskHandler(deps.Orchestrator, deps.Feedback, logger),
		interactions: NewInteractionHandler(deps.Feedback, deps.Promoter, logger),
		questions:    NewQuestionHandler(deps.Feedback, deps.IntentSource, deps.IntentDir, logger),
		indexes:      NewIndexHandler(deps.Lifecycle, deps.Promoter, logger),
	}

	// Register all routes
	s.health.RegisterRoutes(mux)
	s.ask.RegisterRoutes(mux)
	s.interactions.RegisterRoutes(mux)
	s.questions.RegisterRoutes(mux)
	s.indexes.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → request ID → logging → handler
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
