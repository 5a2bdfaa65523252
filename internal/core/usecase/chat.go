package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
)

const (
	responseTemperature = 0.7
	followUpWindow      = 5
)

// ChatUseCase runs one conversational turn end to end: intent routing,
// follow-up resolution, retrieval, and response composition.
type ChatUseCase struct {
	intents     *IntentRouter
	searcher    ports.ProductSearcher
	completions ports.CompletionClient
	vision      ports.VisionClient
	maxHistory  int
}

func NewChatUseCase(
	intents *IntentRouter,
	searcher ports.ProductSearcher,
	completions ports.CompletionClient,
	vision ports.VisionClient,
	maxHistory int,
) *ChatUseCase {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &ChatUseCase{
		intents:     intents,
		searcher:    searcher,
		completions: completions,
		vision:      vision,
		maxHistory:  maxHistory,
	}
}

func (u *ChatUseCase) ProcessTurn(ctx context.Context, request domain.TurnRequest) (*domain.TurnResult, error) {
	history := request.History
	if len(history) > u.maxHistory {
		history = history[len(history)-u.maxHistory:]
	}

	hasImage := strings.TrimSpace(request.ImageBase64) != ""

	var (
		intent      domain.Intent
		searchQuery = request.Message
	)
	if hasImage {
		description, err := u.vision.DescribeImage(ctx, request.ImageBase64)
		if err != nil {
			return nil, fmt.Errorf("describe image: %w", err)
		}
		searchQuery = description
		intent = domain.IntentImageSearch
	} else {
		classified, err := u.intents.Classify(ctx, request.Message, false)
		if err != nil {
			return nil, err
		}
		intent = classified
	}

	if intent == domain.IntentChat {
		response, err := u.completions.Chat(ctx, composeChatContext(history, request.Message), responseTemperature)
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		return &domain.TurnResult{
			Response: response,
			Products: []domain.Product{},
			Intent:   intent,
		}, nil
	}

	query := searchQuery
	if query == "" {
		query = request.Message
	}

	var products []domain.Product
	reusedPrevious := false
	if !hasImage && IsFollowUp(request.Message, request.PreviousProducts) {
		reusedPrevious = true
		products = request.PreviousProducts
		if len(products) > followUpWindow {
			products = products[:followUpWindow]
		}
		slog.Info("follow_up_reuse", "products", len(products))
	} else {
		ranked, err := u.searcher.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		products = ranked
	}

	var currentTurn string
	if len(products) == 0 {
		currentTurn = composeNoMatchTurn(request.Message, searchQuery, hasImage)
	} else {
		currentTurn = composeResultsTurn(request.Message, searchQuery, hasImage, products)
	}

	response, err := u.completions.Chat(ctx, composeTurnMessages(history, currentTurn), responseTemperature)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}
	return &domain.TurnResult{
		Response:       response,
		Products:       products,
		Intent:         intent,
		ReusedPrevious: reusedPrevious,
	}, nil
}
