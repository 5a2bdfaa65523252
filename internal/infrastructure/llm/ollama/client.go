package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/resilience"
)

const visionPrompt = "Describe this image in detail for product search. " +
	"Focus on: clothing style, colors, type of product, materials, occasion, " +
	"and any visible features. Output a short product search query (1-2 sentences)."

type Client struct {
	baseURL     string
	chatModel   string
	visionModel string
	embedModel  string
	httpClient  *http.Client
	executor    *resilience.Executor
}

func New(baseURL, chatModel, visionModel, embedModel string) *Client {
	return NewWithExecutor(baseURL, chatModel, visionModel, embedModel, nil)
}

func NewWithExecutor(baseURL, chatModel, visionModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		chatModel:   chatModel,
		visionModel: visionModel,
		embedModel:  embedModel,
		httpClient:  &http.Client{Timeout: 90 * time.Second},
		executor:    executor,
	}
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// Completer implements the completion contract against the chat model.
type Completer struct {
	client *Client
}

func NewCompleter(client *Client) *Completer {
	return &Completer{client: client}
}

func (c *Completer) Chat(ctx context.Context, messages []domain.ChatMessage, temperature float64) (string, error) {
	payload := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, chatMessage{Role: msg.Role, Content: msg.Content})
	}
	return c.client.chat(ctx, c.client.chatModel, payload, map[string]any{"temperature": temperature})
}

// Vision describes an uploaded image with the vision model. Input may be raw
// base64 or a data URL; the prefix is stripped before the call.
type Vision struct {
	client *Client
}

func NewVision(client *Client) *Vision {
	return &Vision{client: client}
}

func (v *Vision) DescribeImage(ctx context.Context, imageData string) (string, error) {
	raw := extractBase64(strings.TrimSpace(imageData))
	if raw == "" {
		return "", fmt.Errorf("describe image: empty image data")
	}
	messages := []chatMessage{{
		Role:    "user",
		Content: visionPrompt,
		Images:  []string{raw},
	}}
	return v.client.chat(ctx, v.client.visionModel, messages, nil)
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	call := func(callCtx context.Context) error {
		return e.client.postJSON(callCtx, "/api/embed", request, &response, "embed")
	}
	if err := e.client.execute(ctx, "ollama.embed", call); err != nil {
		return nil, wrapTemporaryIfNeeded("ollama embed", err)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) chat(ctx context.Context, model string, messages []chatMessage, options map[string]any) (string, error) {
	request := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
	}
	if options != nil {
		request["options"] = options
	}

	var response struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, "/api/chat", request, &response, "chat")
	}
	if err := c.execute(ctx, "ollama.chat", call); err != nil {
		return "", wrapTemporaryIfNeeded("ollama chat", err)
	}
	return strings.TrimSpace(response.Message.Content), nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	if c.executor == nil {
		return call(ctx)
	}
	return c.executor.Execute(ctx, operation, call, classifyProviderError)
}

func extractBase64(imageData string) string {
	if !strings.HasPrefix(imageData, "data:") {
		return imageData
	}
	parts := strings.SplitN(imageData, ",", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return imageData
}
