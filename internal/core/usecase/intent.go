package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
)

const intentDetectionPrompt = `Classify the user's intent. Reply with EXACTLY one word.

CHAT: greetings, small talk, questions about you, or anything not about finding/buying products.
SEARCH: product questions, shopping requests, or anything about finding, comparing, or buying items.

Reply with only: CHAT or SEARCH. No other text.`

// IntentRouter decides whether a turn is conversational or a product search.
// Image turns are always routed to image search without consulting the model.
type IntentRouter struct {
	completions ports.CompletionClient
}

func NewIntentRouter(completions ports.CompletionClient) *IntentRouter {
	return &IntentRouter{completions: completions}
}

func (r *IntentRouter) Classify(ctx context.Context, message string, hasImage bool) (domain.Intent, error) {
	if hasImage {
		return domain.IntentImageSearch, nil
	}

	text := strings.TrimSpace(message)
	if text == "" {
		text = "hello"
	}

	reply, err := r.completions.Chat(ctx, []domain.ChatMessage{
		{Role: "system", Content: intentDetectionPrompt},
		{Role: "user", Content: text},
	}, 0)
	if err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}

	if strings.Contains(strings.ToUpper(reply), "SEARCH") {
		return domain.IntentSearch, nil
	}
	return domain.IntentChat, nil
}
