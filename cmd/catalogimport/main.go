// Command catalogimport loads the CSV catalog exports into the products table
// for deployments running with CATALOG_SOURCE=postgres.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/palona-labs/commerce-agent/internal/config"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/catalog/csvfile"
	"github.com/palona-labs/commerce-agent/internal/infrastructure/catalog/postgres"
	"github.com/palona-labs/commerce-agent/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("commerce-agent-catalogimport", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := csvfile.NewLoader(cfg.CatalogCSVPaths).Load(ctx)
	if err != nil {
		slog.Error("catalog_load_failed", "error", err)
		os.Exit(1)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		slog.Error("postgres_open_failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewProductRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("ensure_schema_failed", "error", err)
		os.Exit(1)
	}
	if err := repo.Import(ctx, catalog); err != nil {
		slog.Error("catalog_import_failed", "error", err)
		os.Exit(1)
	}
	slog.Info("catalog_imported", "products", len(catalog))
}
