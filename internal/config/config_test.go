package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_BACKEND", "")
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("SEARCH_MIN_SCORE", "")
	t.Setenv("SESSION_MAX_MESSAGES", "")
	t.Setenv("SESSION_MAX_PRODUCTS", "")

	cfg := Load()
	if cfg.RetrievalBackend != "qdrant" {
		t.Fatalf("expected default backend qdrant, got %q", cfg.RetrievalBackend)
	}
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.SearchTopK)
	}
	if cfg.SearchMinScore != 0.35 {
		t.Fatalf("expected default min score 0.35, got %v", cfg.SearchMinScore)
	}
	if cfg.SessionMaxMessages != 20 {
		t.Fatalf("expected default session message cap 20, got %d", cfg.SessionMaxMessages)
	}
	if cfg.SessionMaxProducts != 10 {
		t.Fatalf("expected default session product cap 10, got %d", cfg.SessionMaxProducts)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_BACKEND", "precomputed")
	t.Setenv("SEARCH_MIN_SCORE", "0.5")
	t.Setenv("CATALOG_SOURCE", "postgres")
	t.Setenv("CATALOG_CSV_PATHS", " a.csv, b.csv ,")
	t.Setenv("EVENTS_ENABLED", "true")

	cfg := Load()
	if cfg.RetrievalBackend != "precomputed" {
		t.Fatalf("expected backend override, got %q", cfg.RetrievalBackend)
	}
	if cfg.SearchMinScore != 0.5 {
		t.Fatalf("expected min score 0.5, got %v", cfg.SearchMinScore)
	}
	if cfg.CatalogSource != "postgres" {
		t.Fatalf("expected catalog source postgres, got %q", cfg.CatalogSource)
	}
	if len(cfg.CatalogCSVPaths) != 2 || cfg.CatalogCSVPaths[0] != "a.csv" || cfg.CatalogCSVPaths[1] != "b.csv" {
		t.Fatalf("unexpected csv paths: %#v", cfg.CatalogCSVPaths)
	}
	if !cfg.EventsEnabled {
		t.Fatalf("expected events enabled")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SEARCH_TOP_K", "many")
	t.Setenv("SEARCH_MIN_SCORE", "high")

	cfg := Load()
	if cfg.SearchTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.SearchTopK)
	}
	if cfg.SearchMinScore != 0.35 {
		t.Fatalf("expected fallback min score 0.35, got %v", cfg.SearchMinScore)
	}
}
