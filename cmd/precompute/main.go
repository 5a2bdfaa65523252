// Command precompute embeds the product catalog and writes the id to vector
// table consumed by the precomputed retrieval backend.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/palona-labs/commerce-agent/internal/config"
	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/catalog/csvfile"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/llm/ollama"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/resilience"
	"github.com/palona-labs/commerce-agent/internal/observability/logging"
)

const batchSize = 32

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("commerce-agent-precompute", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := csvfile.NewLoader(cfg.CatalogCSVPaths)
	catalog, err := loader.Load(ctx)
	if err != nil {
		slog.Error("catalog_load_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog_loaded", "products", len(catalog))

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	embedder := ollama.NewEmbedder(ollama.NewWithExecutor(
		cfg.OllamaURL,
		cfg.OllamaChatModel,
		cfg.OllamaVisionModel,
		cfg.OllamaEmbedModel,
		executor,
	))

	table, err := embedCatalog(ctx, embedder, catalog)
	if err != nil {
		slog.Error("embed_catalog_failed", "error", err)
		os.Exit(1)
	}

	raw, err := json.Marshal(table)
	if err != nil {
		slog.Error("marshal_table_failed", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(cfg.EmbeddingsPath, raw, 0o644); err != nil {
		slog.Error("write_table_failed", "path", cfg.EmbeddingsPath, "error", err)
		os.Exit(1)
	}
	slog.Info("embeddings_written", "path", cfg.EmbeddingsPath, "vectors", len(table))
}

func embedCatalog(ctx context.Context, embedder *ollama.Embedder, catalog []domain.Product) (map[string][]float32, error) {
	table := make(map[string][]float32, len(catalog))
	for start := 0; start < len(catalog); start += batchSize {
		end := start + batchSize
		if end > len(catalog) {
			end = len(catalog)
		}
		batch := catalog[start:end]

		texts := make([]string, 0, len(batch))
		for _, product := range batch {
			texts = append(texts, product.SearchableText())
		}
		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i, product := range batch {
			if i < len(vectors) {
				table[product.ID] = vectors[i]
			}
		}
		slog.Info("batch_embedded", "done", end, "total", len(catalog))
	}
	return table, nil
}
