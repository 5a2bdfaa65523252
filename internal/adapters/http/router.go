package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
	"github.com/palona-labs/commerce-agent/internal/observability/metrics"
)

type Router struct {
	agent    ports.ConversationAgent
	sessions ports.SessionStore
	catalog  []domain.Product
	ready    func() bool
	events   ports.EventPublisher
	metrics  *metrics.HTTPServerMetrics
	service  string
	limiter  *rate.Limiter
}

type RouterConfig struct {
	Agent    ports.ConversationAgent
	Sessions ports.SessionStore
	Catalog  []domain.Product
	Ready    func() bool
	Events   ports.EventPublisher
	Metrics  *metrics.HTTPServerMetrics
	Service  string
	Limiter  *rate.Limiter
}

func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		agent:    cfg.Agent,
		sessions: cfg.Sessions,
		catalog:  cfg.Catalog,
		ready:    cfg.Ready,
		events:   cfg.Events,
		metrics:  cfg.Metrics,
		service:  cfg.Service,
		limiter:  cfg.Limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", rt.health)
	mux.HandleFunc("GET /api/products", rt.listProducts)
	mux.Handle("POST /api/chat", rateLimitMiddleware(rt.limiter, http.HandlerFunc(rt.chat)))
	mux.HandleFunc("DELETE /api/sessions/{session_id}", rt.clearSession)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = corsMiddleware(handler)
	return handler
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	ready := rt.ready()
	status := "ok"
	if !ready {
		status = "warming_up"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"ready":        ready,
		"catalog_size": len(rt.catalog),
	})
}

func (rt *Router) listProducts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"products": rt.catalog})
}

type chatRequest struct {
	Message          string               `json:"message"`
	ImageBase64      string               `json:"image_base64"`
	SessionID        string               `json:"session_id"`
	History          []domain.ChatMessage `json:"history"`
	PreviousProducts []domain.Product     `json:"previous_products"`
}

type chatResponse struct {
	Response  string           `json:"response"`
	Products  []domain.Product `json:"products"`
	Intent    domain.Intent    `json:"intent"`
	SessionID string           `json:"session_id"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if !rt.ready() {
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"detail": "Service warming up. Please retry in 60 seconds.",
			"ready":  false,
		})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	// Server-side session state wins; request-carried history and products
	// are a fallback for stateless clients.
	sessionID, state := rt.sessions.GetOrCreate(req.SessionID)
	history := state.Messages
	if len(history) == 0 && len(req.History) > 0 {
		history = req.History
	}
	previousProducts := state.Products
	if len(previousProducts) == 0 && len(req.PreviousProducts) > 0 {
		previousProducts = req.PreviousProducts
	}

	start := time.Now()
	result, err := rt.agent.ProcessTurn(r.Context(), domain.TurnRequest{
		Message:          req.Message,
		ImageBase64:      req.ImageBase64,
		History:          history,
		PreviousProducts: previousProducts,
	})
	if err != nil {
		rt.writeError(w, err)
		return
	}

	rt.sessions.Update(sessionID, domain.SessionUpdate{
		UserMessage:      &req.Message,
		AssistantMessage: &result.Response,
		Products:         result.Products,
	})

	if rt.metrics != nil {
		rt.metrics.RecordTurn(rt.service, string(result.Intent), len(result.Products), time.Since(start))
		if result.ReusedPrevious {
			rt.metrics.RecordFollowUpReuse(rt.service)
		}
	}
	if rt.events != nil {
		event := domain.TurnEvent{
			SessionID:    sessionID,
			Intent:       result.Intent,
			ProductCount: len(result.Products),
			ProcessedAt:  time.Now().UTC(),
		}
		if err := rt.events.PublishTurnCompleted(r.Context(), event); err != nil {
			slog.Warn("turn_event_publish_failed", "session_id", sessionID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Response,
		Products:  result.Products,
		Intent:    result.Intent,
		SessionID: sessionID,
	})
}

func (rt *Router) clearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	rt.sessions.Clear(sessionID)
	if rt.metrics != nil {
		rt.metrics.RecordSessionClear(rt.service)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		w.Header().Set("Retry-After", "60")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case domain.IsKind(err, domain.ErrTemporary):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
