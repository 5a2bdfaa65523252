package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
	"github.com/palona-labs/commerce-agent/internal/core/ports"
)

// Backend pairs a ranker with the name used in logs.
type Backend struct {
	Name   string
	Ranker ports.ProductRanker
}

// RetrievalEngine ranks catalog products for a query. It initializes its
// primary backend lazily on first use; if that fails it switches to the
// fallback backend once and stays there. Results from the two backends are
// never mixed within a deployment.
type RetrievalEngine struct {
	primary  Backend
	fallback Backend
	topK     int
	minScore float64

	initOnce sync.Once
	initErr  error
	active   Backend
	ready    atomic.Bool
}

func NewRetrievalEngine(primary, fallback Backend, topK int, minScore float64) *RetrievalEngine {
	return &RetrievalEngine{
		primary:  primary,
		fallback: fallback,
		topK:     topK,
		minScore: minScore,
	}
}

// Warm forces backend initialization ahead of the first query.
func (e *RetrievalEngine) Warm(ctx context.Context) error {
	e.ensureBackend(ctx)
	return e.initErr
}

// Ready reports whether a backend finished initializing. It never triggers
// initialization itself.
func (e *RetrievalEngine) Ready() bool {
	return e.ready.Load()
}

// ActiveBackend returns the name of the backend serving queries, or "" before
// initialization.
func (e *RetrievalEngine) ActiveBackend() string {
	if !e.ready.Load() {
		return ""
	}
	return e.active.Name
}

func (e *RetrievalEngine) Search(ctx context.Context, query string) ([]domain.Product, error) {
	e.ensureBackend(ctx)
	if e.initErr != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "search products", e.initErr)
	}

	effective := trimCompoundQuery(query)
	if effective != query {
		slog.Debug("compound_query_trimmed", "original", query, "effective", effective)
	}

	products, err := e.active.Ranker.Rank(ctx, effective, e.topK, e.minScore)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "search products", err)
	}
	return products, nil
}

func (e *RetrievalEngine) ensureBackend(ctx context.Context) {
	e.initOnce.Do(func() {
		primaryErr := e.primary.Ranker.Init(ctx)
		if primaryErr == nil {
			e.active = e.primary
			e.ready.Store(true)
			slog.Info("retrieval_backend_ready", "backend", e.primary.Name)
			return
		}
		slog.Warn("retrieval_backend_fallback",
			"primary", e.primary.Name,
			"fallback", e.fallback.Name,
			"error", primaryErr,
		)

		if err := e.fallback.Ranker.Init(ctx); err != nil {
			e.initErr = err
			slog.Error("retrieval_backend_unavailable", "backend", e.fallback.Name, "error", err)
			return
		}
		e.active = e.fallback
		e.ready.Store(true)
		slog.Info("retrieval_backend_ready", "backend", e.fallback.Name)
	})
}

// compoundQuestionWords marks queries whose tail is a question about the
// results rather than part of the search itself.
var compoundQuestionWords = []string{"how", "what", "reviews", "ratings", "specs", "compare"}

// trimCompoundQuery cuts a compound request like "how do these headphones
// sound, also are they waterproof" down to its first clause. The prefix must
// be long enough to stand alone as a query; otherwise the message passes
// through unchanged.
func trimCompoundQuery(query string) string {
	if !strings.Contains(query, ",") {
		return query
	}
	lowered := strings.ToLower(query)
	matched := false
	for _, word := range compoundQuestionWords {
		if strings.Contains(lowered, word) {
			matched = true
			break
		}
	}
	if !matched {
		return query
	}
	beforeComma := strings.TrimSpace(strings.SplitN(query, ",", 2)[0])
	if len(beforeComma) > 10 {
		return beforeComma
	}
	return query
}
