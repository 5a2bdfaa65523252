package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

type scriptedCompletion struct {
	replies []string
	err     error
	calls   [][]domain.ChatMessage
	temps   []float64
}

func (f *scriptedCompletion) Chat(_ context.Context, messages []domain.ChatMessage, temperature float64) (string, error) {
	f.calls = append(f.calls, messages)
	f.temps = append(f.temps, temperature)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func TestClassifyImageBypassesModel(t *testing.T) {
	completion := &scriptedCompletion{}
	router := NewIntentRouter(completion)

	intent, err := router.Classify(context.Background(), "anything", true)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if intent != domain.IntentImageSearch {
		t.Fatalf("expected IMAGE_SEARCH, got %s", intent)
	}
	if len(completion.calls) != 0 {
		t.Fatalf("image turn must not call the model, got %d calls", len(completion.calls))
	}
}

func TestClassifyContainmentAndTemperature(t *testing.T) {
	cases := []struct {
		reply string
		want  domain.Intent
	}{
		{"SEARCH", domain.IntentSearch},
		{"search", domain.IntentSearch},
		{"The intent is SEARCH.", domain.IntentSearch},
		{"CHAT", domain.IntentChat},
		{"something unexpected", domain.IntentChat},
	}
	for _, tc := range cases {
		completion := &scriptedCompletion{replies: []string{tc.reply}}
		router := NewIntentRouter(completion)
		intent, err := router.Classify(context.Background(), "find me headphones", false)
		if err != nil {
			t.Fatalf("classify: %v", err)
		}
		if intent != tc.want {
			t.Errorf("reply %q: got %s, want %s", tc.reply, intent, tc.want)
		}
		if completion.temps[0] != 0 {
			t.Errorf("reply %q: classification must run at temperature 0, got %v", tc.reply, completion.temps[0])
		}
	}
}

func TestClassifyEmptyMessageDefaultsToHello(t *testing.T) {
	completion := &scriptedCompletion{replies: []string{"CHAT"}}
	router := NewIntentRouter(completion)

	if _, err := router.Classify(context.Background(), "   ", false); err != nil {
		t.Fatalf("classify: %v", err)
	}
	messages := completion.calls[0]
	if len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(messages))
	}
	if messages[1].Content != "hello" {
		t.Fatalf("expected fallback user content %q, got %q", "hello", messages[1].Content)
	}
}

func TestClassifyPropagatesModelError(t *testing.T) {
	wantErr := errors.New("model down")
	router := NewIntentRouter(&scriptedCompletion{err: wantErr})

	_, err := router.Classify(context.Background(), "find headphones", false)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}
