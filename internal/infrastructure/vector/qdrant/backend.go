package qdrant

import (
	"context"
	"fmt"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
)

const indexBatchSize = 32

// Backend ranks products through a Qdrant collection. Init embeds the catalog
// and upserts it; queries embed once and let Qdrant do the nearest-neighbor
// work.
type Backend struct {
	client   *Client
	catalog  []domain.Product
	embedder ports.Embedder
	byID     map[string]domain.Product
}

func NewBackend(client *Client, catalog []domain.Product, embedder ports.Embedder) *Backend {
	byID := make(map[string]domain.Product, len(catalog))
	for _, product := range catalog {
		byID[product.ID] = product
	}
	return &Backend{
		client:   client,
		catalog:  catalog,
		embedder: embedder,
		byID:     byID,
	}
}

func (b *Backend) Init(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return err
	}
	if len(b.catalog) == 0 {
		return fmt.Errorf("catalog is empty")
	}

	for start := 0; start < len(b.catalog); start += indexBatchSize {
		end := start + indexBatchSize
		if end > len(b.catalog) {
			end = len(b.catalog)
		}
		batch := b.catalog[start:end]

		texts := make([]string, 0, len(batch))
		ids := make([]string, 0, len(batch))
		for _, product := range batch {
			texts = append(texts, product.SearchableText())
			ids = append(ids, product.ID)
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed catalog batch: %w", err)
		}
		if len(vectors) != len(ids) {
			return fmt.Errorf("embed catalog batch: got %d vectors for %d products", len(vectors), len(ids))
		}
		if err := b.client.UpsertProducts(ctx, ids, vectors); err != nil {
			return fmt.Errorf("index catalog batch: %w", err)
		}
	}
	return nil
}

func (b *Backend) Rank(ctx context.Context, query string, topK int, minScore float64) ([]domain.Product, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVector, err := b.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch to absorb duplicate payloads from re-indexed points.
	hits, err := b.client.SearchSimilar(ctx, queryVector, topK*2, minScore)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(hits))
	products := make([]domain.Product, 0, topK)
	for _, hit := range hits {
		if _, dup := seen[hit.ProductID]; dup {
			continue
		}
		product, ok := b.byID[hit.ProductID]
		if !ok {
			continue
		}
		seen[hit.ProductID] = struct{}{}
		products = append(products, product)
		if len(products) == topK {
			break
		}
	}
	return products, nil
}
