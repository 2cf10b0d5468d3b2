package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/danpun9/memocore/db"
	"github.com/danpun9/memocore/internal/agent"
	"github.com/danpun9/memocore/internal/config"
	"github.com/danpun9/memocore/internal/docstore"
	"github.com/danpun9/memocore/internal/llm"
	"github.com/danpun9/memocore/internal/log"
	"github.com/danpun9/memocore/internal/retrieval"
)

// app bundles the long-lived components a command needs. Callers must invoke
// cleanup when done.
type app struct {
	cfg     *config.Config
	logger  log.Logger
	pool    *pgxpool.Pool
	docs    *retrieval.Service
	agent   *agent.Agent
	cleanup func()
}

// setup loads configuration, migrates and connects the database, initializes
// the embedder and model backend, and assembles the agent.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := log.New(log.Config{Level: parseLevel(cfg.LogLevel)})

	// Embeddings always go through the Gemini embedder, so the API key is
	// required for both model types.
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: set GEMINI_API_KEY or gemini_api_key in ~/.memocore/config.yaml",
			config.ErrMissingAPIKey)
	}

	pool, poolCleanup, err := providePool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := provideEmbedder(ctx, cfg)
	if err != nil {
		poolCleanup()
		return nil, err
	}

	docs, err := retrieval.New(retrieval.Config{
		Store:        docstore.New(pool, logger),
		Embedder:     embedder,
		Logger:       logger,
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	})
	if err != nil {
		poolCleanup()
		return nil, err
	}

	backend, err := provideBackend(ctx, cfg)
	if err != nil {
		poolCleanup()
		return nil, err
	}

	ag, err := agent.New(agent.Config{Backend: backend, Docs: docs, Logger: logger})
	if err != nil {
		poolCleanup()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		docs:    docs,
		agent:   ag,
		cleanup: poolCleanup,
	}, nil
}

// providePool runs migrations and opens the connection pool.
func providePool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideEmbedder initializes Genkit with the Google AI plugin and returns
// the configured embedding model.
func provideEmbedder(ctx context.Context, cfg *config.Config) (ai.Embedder, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.GeminiAPIKey}))
	if g == nil {
		return nil, fmt.Errorf("initializing genkit with Google AI plugin")
	}
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel), nil
}

// provideBackend constructs the generation backend selected by model_type.
func provideBackend(ctx context.Context, cfg *config.Config) (llm.Backend, error) {
	switch cfg.ModelType {
	case config.ModelTypeLocal:
		local := llm.NewLocal(cfg.LocalEndpoint, cfg.LocalModel)
		if !local.Loaded() {
			return nil, fmt.Errorf("%w: set local_endpoint and local_model", llm.ErrModelNotLoaded)
		}
		return local, nil
	default:
		return llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:            cfg.GeminiAPIKey,
			Model:             cfg.GeminiModel,
			SystemInstruction: agent.SystemInstruction(time.Now()),
			// The free-tier Gemini API allows 15 requests per minute.
			Limiter: rate.NewLimiter(rate.Every(4*time.Second), 1),
		})
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
