package domain

import "time"

type Intent string

const (
	IntentChat        Intent = "CHAT"
	IntentSearch      Intent = "SEARCH"
	IntentImageSearch Intent = "IMAGE_SEARCH"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is one inbound conversational turn. History and PreviousProducts
// carry the session window resolved by the caller.
type TurnRequest struct {
	Message          string
	ImageBase64      string
	History          []ChatMessage
	PreviousProducts []Product
}

type TurnResult struct {
	Response string    `json:"response"`
	Products []Product `json:"products"`
	Intent   Intent    `json:"intent"`

	// ReusedPrevious marks turns answered from the previously shown products
	// instead of a fresh retrieval pass.
	ReusedPrevious bool `json:"-"`
}

// SessionState is the bounded per-session window: recent turns newest last,
// plus the last ranked product list.
type SessionState struct {
	Messages []ChatMessage `json:"messages"`
	Products []Product     `json:"products"`
}

// SessionUpdate applies after a processed turn. Nil message pointers skip the
// append; a nil Products slice keeps the stored list, non-nil replaces it.
type SessionUpdate struct {
	UserMessage      *string
	AssistantMessage *string
	Products         []Product
}

// TurnEvent is published for downstream analytics after each processed turn.
type TurnEvent struct {
	SessionID    string    `json:"session_id"`
	Intent       Intent    `json:"intent"`
	ProductCount int       `json:"product_count"`
	ProcessedAt  time.Time `json:"processed_at"`
}
