// Package precomputed ranks products against an embeddings table generated
// offline. It needs no index service at query time, which makes it the
// fallback when the ANN backend is unreachable.
package precomputed

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
)

type Backend struct {
	path     string
	catalog  []domain.Product
	embedder ports.Embedder
	vectors  map[string][]float32
}

func New(path string, catalog []domain.Product, embedder ports.Embedder) *Backend {
	return &Backend{
		path:     path,
		catalog:  catalog,
		embedder: embedder,
	}
}

// Init loads the product id to vector table. Catalog entries without a vector
// are tolerated here and skipped at ranking time.
func (b *Backend) Init(_ context.Context) error {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return fmt.Errorf("read embeddings table: %w", err)
	}
	vectors := make(map[string][]float32)
	if err := json.Unmarshal(raw, &vectors); err != nil {
		return fmt.Errorf("parse embeddings table %s: %w", b.path, err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("embeddings table %s is empty", b.path)
	}
	b.vectors = vectors
	return nil
}

type scoredProduct struct {
	product domain.Product
	score   float64
}

func (b *Backend) Rank(ctx context.Context, query string, topK int, minScore float64) ([]domain.Product, error) {
	if topK <= 0 {
		return nil, nil
	}

	queryVector, err := b.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := make([]scoredProduct, 0, len(b.catalog))
	for _, product := range b.catalog {
		vector, ok := b.vectors[product.ID]
		if !ok || len(vector) != len(queryVector) {
			continue
		}
		score := cosineSimilarity(queryVector, vector)
		if score >= minScore {
			scored = append(scored, scoredProduct{product: product, score: score})
		}
	}

	// Stable sort keeps catalog order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}

	products := make([]domain.Product, 0, len(scored))
	for _, s := range scored {
		products = append(products, s.product)
	}
	return products, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + 1e-9)
}
