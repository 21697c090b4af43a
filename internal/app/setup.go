package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakhealth/aftercare/db"
	"github.com/oakhealth/aftercare/internal/assistant"
	"github.com/oakhealth/aftercare/internal/config"
	"github.com/oakhealth/aftercare/internal/genai"
	"github.com/oakhealth/aftercare/internal/knowledge"
	"github.com/oakhealth/aftercare/internal/log"
	"github.com/oakhealth/aftercare/internal/observability"
	"github.com/oakhealth/aftercare/internal/patient"
	"github.com/oakhealth/aftercare/internal/retrieval"
	"github.com/oakhealth/aftercare/internal/session"
	"github.com/oakhealth/aftercare/internal/sqlc"
	"github.com/oakhealth/aftercare/internal/websearch"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(sqlc.New(pool), embedder, logger)

	if cfg.WebSearchEnabled {
		a.WebSearch = websearch.New(logger, websearch.WithBaseURL(cfg.WebSearchBaseURL))
	}

	generator, err := genai.New(genai.Config{
		Genkit:      g,
		ModelName:   cfg.FullModelName(),
		Temperature: float64(cfg.Temperature),
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	a.Generator = generator

	orchestrator, err := provideOrchestrator(a, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orchestrator

	patients, err := patient.NewStore(cfg.PatientsFile, logger)
	if err != nil {
		return nil, fmt.Errorf("loading patient records: %w", err)
	}
	a.Patients = patients

	a.Sessions = session.NewStore()
	a.Conversation = assistant.NewManager(
		a.Sessions,
		assistant.NewReceptionist(patients, logger),
		assistant.NewClinical(orchestrator, logger),
		logger,
	)

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit initialization,
// so Genkit's TracerProvider picks up the span processor.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if !cfg.Observability.Enabled {
		return func() {}
	}

	shutdown, err := observability.SetupTracing(ctx, observability.Config{
		CollectorHost: cfg.Observability.AgentHost,
		Environment:   cfg.Observability.Environment,
		ServiceName:   cfg.Observability.ServiceName,
	})
	if err != nil {
		logger.Warn("tracing setup failed, continuing without", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Gemini provider.
// Call ordering in Setup ensures tracing is set up first.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}
	return g, nil
}

// knowledgeIndex adapts the knowledge store to the answering pipeline's
// Index contract.
type knowledgeIndex struct {
	store *knowledge.Store
}

func (k knowledgeIndex) Search(ctx context.Context, query string, limit int) ([]knowledge.Result, error) {
	return k.store.Search(ctx, query, knowledge.WithTopK(limit))
}

func provideOrchestrator(a *App, cfg *config.Config, logger log.Logger) (*retrieval.Orchestrator, error) {
	rcfg := retrieval.Config{
		Index:     knowledgeIndex{store: a.Knowledge},
		Generator: a.Generator,
		Logger:    logger,
		TopK:      cfg.TopK,
	}
	// Assign only when enabled: a typed nil would defeat the
	// orchestrator's nil check.
	if a.WebSearch != nil {
		rcfg.Web = a.WebSearch
	}

	orchestrator, err := retrieval.New(rcfg)
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	return orchestrator, nil
}
