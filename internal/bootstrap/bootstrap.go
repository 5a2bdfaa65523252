package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	httpadapter "github.com/palona-labs/commerce-agent/internal/adapters/http"
	"github.com/palona-labs/commerce-agent/internal/config"
	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
	"github.com/palona-labs/commerce-agent/internal/core/usecase"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/catalog/csvfile"
	catalogpg "github.com/palona-labs/commerce-agent/internal/infrastructure/catalog/postgres"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/llm/ollama"
	natspub "github.com/palona-labs/commerce-agent/internal/infrastructure/messaging/nats"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/resilience"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/session/memory"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/vector/precomputed"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/vector/qdrant"
	"github.com/palona-labs/commerce-agent/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Handler http.Handler
	Catalog []domain.Product
	Engine  *usecase.RetrievalEngine

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	ollamaClient := ollama.NewWithExecutor(
		cfg.OllamaURL,
		cfg.OllamaChatModel,
		cfg.OllamaVisionModel,
		cfg.OllamaEmbedModel,
		executor,
	)
	completer := ollama.NewCompleter(ollamaClient)
	vision := ollama.NewVision(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)

	catalogSource, closeCatalog, err := buildCatalogSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	catalog, err := catalogSource.Load(ctx)
	if err != nil {
		closeCatalog()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	slog.Info("catalog_loaded", "source", cfg.CatalogSource, "products", len(catalog))

	qdrantBackend := usecase.Backend{
		Name:   "qdrant",
		Ranker: qdrant.NewBackend(qdrant.New(cfg.QdrantURL, cfg.QdrantCollection), catalog, embedder),
	}
	precomputedBackend := usecase.Backend{
		Name:   "precomputed",
		Ranker: precomputed.New(cfg.EmbeddingsPath, catalog, embedder),
	}

	primary, fallback := qdrantBackend, precomputedBackend
	if cfg.RetrievalBackend == "precomputed" {
		primary, fallback = precomputedBackend, qdrantBackend
	}
	engine := usecase.NewRetrievalEngine(primary, fallback, cfg.SearchTopK, cfg.SearchMinScore)

	intents := usecase.NewIntentRouter(completer)
	agent := usecase.NewChatUseCase(intents, engine, completer, vision, cfg.SessionMaxMessages)
	sessions := memory.NewStore(cfg.SessionMaxMessages, cfg.SessionMaxProducts)
	serverMetrics := metrics.NewHTTPServerMetrics("api", sessions.Active)

	var events ports.EventPublisher
	var closePublisher func()
	if cfg.EventsEnabled {
		publisher, err := natspub.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natspub.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			closeCatalog()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
		closePublisher = publisher.Close
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := httpadapter.NewRouter(httpadapter.RouterConfig{
		Agent:    agent,
		Sessions: sessions,
		Catalog:  catalog,
		Ready:    engine.Ready,
		Events:   events,
		Metrics:  serverMetrics,
		Service:  "api",
		Limiter:  limiter,
	})

	return &App{
		Config:  cfg,
		Handler: router.Handler(),
		Catalog: catalog,
		Engine:  engine,

		closeFn: func() {
			if closePublisher != nil {
				closePublisher()
			}
			closeCatalog()
		},
	}, nil
}

func buildCatalogSource(ctx context.Context, cfg config.Config) (ports.CatalogSource, func(), error) {
	switch cfg.CatalogSource {
	case "postgres":
		db, err := catalogpg.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := catalogpg.NewProductRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	case "csv":
		return csvfile.NewLoader(cfg.CatalogCSVPaths), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog source %q", cfg.CatalogSource)
	}
}

// WarmRetrieval initializes the retrieval backend without blocking startup.
// The HTTP surface reports warming_up until it completes.
func (a *App) WarmRetrieval(ctx context.Context) {
	go func() {
		if err := a.Engine.Warm(ctx); err != nil {
			slog.Error("retrieval_warmup_failed", "error", err)
			return
		}
		slog.Info("retrieval_warmup_complete", "backend", a.Engine.ActiveBackend())
	}()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
