// Package app provides application initialization and dependency injection.
//
// App is the container that wires every component together: Genkit, the
// database pool, the vector index, the feedback log, and the retrieval
// orchestrator. Components never reach for globals; everything they need
// is handed to them here.
package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trispace-io/trispace/internal/config"
	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/llm"
	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/rag"
)

// App is the core application container.
type App struct {
	Config *config.Config

	// Core services
	Genkit   *genkit.Genkit
	Provider string // the provider that won the priority scan
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Domain components
	Index        *index.Store
	Feedback     *feedback.Log
	Generator    *llm.Generator
	Orchestrator *rag.Orchestrator
	Promoter     *rag.Promoter
	Lifecycle    *rag.Lifecycle

	Logger log.Logger

	// Lifecycle management
	ctx         context.Context
	cancel      context.CancelFunc
	otelCleanup func()
}

// Close gracefully shuts down all resources.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.DBPool != nil {
		a.DBPool.Close()
		if a.Logger != nil {
			a.Logger.Info("database pool closed")
		}
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
