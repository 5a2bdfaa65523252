package ports

import (
	"context"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

// ConversationAgent is the inbound contract for processing one user turn.
type ConversationAgent interface {
	ProcessTurn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error)
}
