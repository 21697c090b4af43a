// Package app provides application initialization and dependency wiring.
//
// App is the container every entry point (CLI, HTTP server) builds on:
// it initializes tracing, the database pool, Genkit, the knowledge
// store, and the conversational flows, and owns their teardown order.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakhealth/aftercare/internal/assistant"
	"github.com/oakhealth/aftercare/internal/config"
	"github.com/oakhealth/aftercare/internal/genai"
	"github.com/oakhealth/aftercare/internal/knowledge"
	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/patient"
	"github.com/oakhealth/aftercare/internal/retrieval"
	"github.com/oakhealth/aftercare/internal/session"
	"github.com/oakhealth/aftercare/internal/websearch"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	// Domain components
	Knowledge    *knowledge.Store
	WebSearch    *websearch.Client // nil when web search is disabled
	Generator    *genai.Generator
	Orchestrator *retrieval.Orchestrator
	Patients     *patient.Store
	Sessions     *session.Store
	Conversation *assistant.Manager

	otelCleanup func()
}

// Close gracefully shuts down all resources.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	// Flush traces last so shutdown spans are exported.
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
