package ports

import (
	"context"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

// CompletionClient sends a message sequence to the completion provider.
// Temperature 0 must produce deterministic classification replies.
type CompletionClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage, temperature float64) (string, error)
}

// VisionClient converts an uploaded image into a short product-search query.
// Accepts raw base64 or data-URL-prefixed input.
type VisionClient interface {
	DescribeImage(ctx context.Context, imageData string) (string, error)
}

// Embedder builds vectors for catalog texts and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ProductRanker is one retrieval backend. Init runs exactly once before the
// first Rank; vectors from different rankers are never mixed in one pass.
type ProductRanker interface {
	Init(ctx context.Context) error
	Rank(ctx context.Context, query string, topK int, minScore float64) ([]domain.Product, error)
}

// ProductSearcher ranks the catalog against a free-text query.
type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]domain.Product, error)
}

// CatalogSource supplies the immutable product list at startup.
type CatalogSource interface {
	Load(ctx context.Context) ([]domain.Product, error)
}

// SessionStore owns all mutable conversational state, keyed by session id.
// It is volatile and process-lifetime-scoped; nothing here is durable.
type SessionStore interface {
	GetOrCreate(sessionID string) (string, domain.SessionState)
	Update(sessionID string, update domain.SessionUpdate)
	Clear(sessionID string)
	Active() int
}

// EventPublisher emits turn-completed events for downstream consumers.
type EventPublisher interface {
	PublishTurnCompleted(ctx context.Context, event domain.TurnEvent) error
}
