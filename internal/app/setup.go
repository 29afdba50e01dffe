package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/trispace-io/trispace/db"
	"github.com/trispace-io/trispace/internal/config"
	"github.com/trispace-io/trispace/internal/docs"
	"github.com/trispace-io/trispace/internal/feedback"
	"github.com/trispace-io/trispace/internal/index"
	"github.com/trispace-io/trispace/internal/llm"
	"github.com/trispace-io/trispace/internal/log"
	"github.com/trispace-io/trispace/internal/postgres"
	"github.com/trispace-io/trispace/internal/rag"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.New(log.Config{})
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

	provider, g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Provider = provider
	a.Genkit = g

	embedder := provideEmbedder(g, provider, cfg)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, provider)
	}
	a.Embedder = embedder

	queries := postgres.New(pool)
	a.Index = index.New(queries, pool, embedder, logger.With("component", "index"))
	a.Feedback = feedback.New(queries, logger.With("component", "feedback"))

	gen, err := llm.New(g, llm.Config{
		ModelName:   qualifiedModelName(provider, cfg.ModelName),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     time.Duration(cfg.GenerateTimeoutSeconds) * time.Second,
	}, logger.With("component", "llm"))
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	a.Generator = gen

	orch, err := rag.New(a.Index, gen, rag.Config{
		DefaultKIntent:         cfg.DefaultKIntent,
		DefaultKKnowledge:      cfg.DefaultKKnowledge,
		DefaultIntentThreshold: cfg.DefaultIntentThreshold,
	}, logger.With("component", "rag"))
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	a.Orchestrator = orch

	loader := docs.NewLoader(nil, logger.With("component", "docs"))
	a.Lifecycle = rag.NewLifecycle(a.Index, loader, loader, rag.LifecycleConfig{
		KnowledgeDir: cfg.KnowledgeDir,
		IntentDir:    cfg.IntentDir,
	}, logger.With("component", "lifecycle"))
	a.Promoter = rag.NewPromoter(loader, a.Feedback, a.Index, rag.PromoterConfig{
		IntentDir: cfg.IntentDir,
		MinRating: cfg.PromotionMinRating,
	}, logger.With("component", "promoter"))

	appCtx, cancel := context.WithCancel(ctx)
	a.ctx = appCtx
	a.cancel = cancel

	return a, nil
}

// provideOtelShutdown wires trace export to a local OTLP agent. Export is
// opt-in: with no agent host configured this is a no-op. The returned
// function flushes and shuts the tracer provider down.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	agentHost := cfg.OTLPAgentHost
	if agentHost == "" {
		return func() {}
	}

	// Genkit's TracerProvider reads OTEL_* from the environment. Setenv is
	// not concurrent-safe but Setup runs once before goroutines start.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(agentHost),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating otlp exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled", "agent", agentHost, "service", cfg.ServiceName)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit walks the configured provider priority order and
// initializes Genkit with the first provider whose credentials are
// present. Returns the winning provider name alongside the instance.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (string, *genkit.Genkit, error) {
	providers := cfg.Providers
	if len(providers) == 0 {
		providers = []string{config.ProviderGemini}
	}

	var tried []string
	for _, provider := range providers {
		if !providerAvailable(provider, cfg) {
			tried = append(tried, provider)
			continue
		}

		var g *genkit.Genkit
		switch provider {
		case config.ProviderOllama:
			ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
			g = genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
			if g == nil {
				return "", nil, errors.New("initializing genkit with ollama provider")
			}
			// Ollama requires explicit model registration (no auto-discovery)
			ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
				Name: cfg.ModelName,
				Type: "chat",
			}, nil)
			// Register embedder for retrieval
			ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
			logger.Info("initialized Genkit with ollama provider",
				"model", cfg.ModelName, "host", cfg.OllamaHost)

		case config.ProviderOpenAI:
			g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
			if g == nil {
				return "", nil, errors.New("initializing genkit with openai provider")
			}
			logger.Info("initialized Genkit with openai provider", "model", cfg.ModelName)

		case config.ProviderGemini:
			g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
			if g == nil {
				return "", nil, errors.New("initializing genkit with gemini provider")
			}
			logger.Info("initialized Genkit with gemini provider", "model", cfg.ModelName)

		default:
			return "", nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, provider)
		}

		return provider, g, nil
	}

	return "", nil, fmt.Errorf("%w: no provider has credentials (tried %s)",
		llm.ErrUnavailable, strings.Join(tried, ", "))
}

// providerAvailable reports whether the provider's credentials are present
// in the environment.
func providerAvailable(provider string, cfg *config.Config) bool {
	switch provider {
	case config.ProviderGemini:
		return os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != ""
	case config.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY") != ""
	case config.ProviderOllama:
		// Local server, no credentials; reachable host is checked lazily.
		return cfg.OllamaHost != ""
	default:
		return false
	}
}

// provideEmbedder looks up the embedder registered by the AI provider plugin.
// Each provider registers embedders differently:
//   - gemini: GoogleAIEmbedder(g, modelName)
//   - ollama: registered in provideGenkit, keyed by server address
//   - openai: auto-registered in Init(), looked up by model name
func provideEmbedder(g *genkit.Genkit, provider string, cfg *config.Config) ai.Embedder {
	switch provider {
	case config.ProviderOllama:
		return ollama.Embedder(g, cfg.OllamaHost)
	case config.ProviderOpenAI:
		return genkit.LookupEmbedder(g, api.NewName("openai", cfg.EmbedderModel))
	default:
		return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	}
}

// qualifiedModelName prefixes the model with its provider namespace when
// the config gives a bare name.
func qualifiedModelName(provider, model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	switch provider {
	case config.ProviderGemini:
		return "googleai/" + model
	case config.ProviderOpenAI:
		return "openai/" + model
	case config.ProviderOllama:
		return "ollama/" + model
	default:
		return model
	}
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
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
