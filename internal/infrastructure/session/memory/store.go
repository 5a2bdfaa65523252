// Package memory keeps per-session conversation windows in process memory.
// State is bounded per session and lost on restart, which is acceptable for
// conversational context.
package memory

import (
	"hash/fnv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

const shardCount = 16

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*domain.SessionState
}

// Store is a sharded in-memory session map. Shards keep unrelated sessions
// from contending on one lock under concurrent chat traffic.
type Store struct {
	shards      [shardCount]*shard
	maxMessages int
	maxProducts int
}

func NewStore(maxMessages, maxProducts int) *Store {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	if maxProducts <= 0 {
		maxProducts = 10
	}
	store := &Store{
		maxMessages: maxMessages,
		maxProducts: maxProducts,
	}
	for i := range store.shards {
		store.shards[i] = &shard{sessions: make(map[string]*domain.SessionState)}
	}
	return store
}

func (s *Store) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%shardCount]
}

// GetOrCreate resolves a session id to its state. A blank id mints a fresh
// one; an unknown id creates empty state under that id. The returned state is
// a copy, safe to read without holding the shard lock.
func (s *Store) GetOrCreate(sessionID string) (string, domain.SessionState) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.sessions[sessionID]
	if !ok {
		state = &domain.SessionState{}
		sh.sessions[sessionID] = state
	}
	return sessionID, copyState(state)
}

// Update applies the turn outcome to an existing session. The user message is
// appended before the assistant message, then the window is trimmed from the
// oldest end.
func (s *Store) Update(sessionID string, update domain.SessionUpdate) {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.sessions[sessionID]
	if !ok {
		return
	}

	if update.UserMessage != nil {
		state.Messages = append(state.Messages, domain.ChatMessage{Role: "user", Content: *update.UserMessage})
	}
	if update.AssistantMessage != nil {
		state.Messages = append(state.Messages, domain.ChatMessage{Role: "assistant", Content: *update.AssistantMessage})
	}
	if len(state.Messages) > s.maxMessages {
		trimmed := make([]domain.ChatMessage, s.maxMessages)
		copy(trimmed, state.Messages[len(state.Messages)-s.maxMessages:])
		state.Messages = trimmed
	}

	if update.Products != nil {
		products := update.Products
		if len(products) > s.maxProducts {
			products = products[:s.maxProducts]
		}
		state.Products = append([]domain.Product(nil), products...)
	}
}

// Clear resets a session's window without deleting the session id.
func (s *Store) Clear(sessionID string) {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if state, ok := sh.sessions[sessionID]; ok {
		state.Messages = nil
		state.Products = nil
	}
}

// Active returns the number of tracked sessions.
func (s *Store) Active() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return total
}

func copyState(state *domain.SessionState) domain.SessionState {
	out := domain.SessionState{}
	if len(state.Messages) > 0 {
		out.Messages = append([]domain.ChatMessage(nil), state.Messages...)
	}
	if len(state.Products) > 0 {
		out.Products = append([]domain.Product(nil), state.Products...)
	}
	return out
}
