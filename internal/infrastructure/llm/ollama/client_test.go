package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

func TestCompleterChatSendsTemperature(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": "  hi there  "},
		})
	}))
	defer server.Close()

	completer := NewCompleter(New(server.URL, "chat-model", "vision-model", "embed-model"))
	got, err := completer.Chat(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "persona"},
		{Role: "user", Content: "hello"},
	}, 0)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if got != "hi there" {
		t.Fatalf("expected trimmed content, got %q", got)
	}
	if captured["model"] != "chat-model" {
		t.Fatalf("expected chat model, got %v", captured["model"])
	}
	if captured["stream"] != false {
		t.Fatalf("expected stream false, got %v", captured["stream"])
	}
	options, ok := captured["options"].(map[string]any)
	if !ok {
		t.Fatalf("expected options in request, got %v", captured["options"])
	}
	if options["temperature"] != 0.0 {
		t.Fatalf("expected temperature 0, got %v", options["temperature"])
	}
}

func TestVisionDescribeImageStripsDataURL(t *testing.T) {
	var captured struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": "blue denim jacket"},
		})
	}))
	defer server.Close()

	vision := NewVision(New(server.URL, "chat-model", "vision-model", "embed-model"))
	got, err := vision.DescribeImage(context.Background(), "data:image/png;base64,aGVsbG8=")
	if err != nil {
		t.Fatalf("describe image: %v", err)
	}
	if got != "blue denim jacket" {
		t.Fatalf("unexpected description %q", got)
	}
	if captured.Model != "vision-model" {
		t.Fatalf("expected vision model, got %q", captured.Model)
	}
	if len(captured.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(captured.Messages))
	}
	if len(captured.Messages[0].Images) != 1 || captured.Messages[0].Images[0] != "aGVsbG8=" {
		t.Fatalf("expected stripped base64 payload, got %v", captured.Messages[0].Images)
	}
	if !strings.Contains(captured.Messages[0].Content, "product search") {
		t.Fatalf("expected vision prompt, got %q", captured.Messages[0].Content)
	}
}

func TestVisionDescribeImageRejectsEmptyInput(t *testing.T) {
	vision := NewVision(New("http://localhost:1", "c", "v", "e"))
	if _, err := vision.DescribeImage(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty image data")
	}
}

func TestEmbedderEmbedQueryReturnsFirstVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float32{{0.1, 0.2, 0.3}},
		})
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "chat-model", "vision-model", "embed-model"))
	vector, err := embedder.EmbedQuery(context.Background(), "wireless headphones")
	if err != nil {
		t.Fatalf("embed query: %v", err)
	}
	if len(vector) != 3 || vector[1] != 0.2 {
		t.Fatalf("unexpected vector %v", vector)
	}
}

func TestChatSurfacesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	completer := NewCompleter(New(server.URL, "chat-model", "vision-model", "embed-model"))
	_, err := completer.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}}, 0.7)
	if err == nil {
		t.Fatal("expected error")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", statusErr.StatusCode)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("404 must not be classified temporary: %v", err)
	}
}

func TestChatWrapsRetryableStatusAsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	completer := NewCompleter(New(server.URL, "chat-model", "vision-model", "embed-model"))
	_, err := completer.Chat(context.Background(), []domain.ChatMessage{{Role: "user", Content: "hi"}}, 0.7)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
