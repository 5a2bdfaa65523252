// Package postgres serves the product catalog from a database instead of CSV
// exports, for deployments where the catalog is managed externally.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS products (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	price TEXT NOT NULL,
	price_raw TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	rating DOUBLE PRECISION,
	review_count INTEGER,
	specs_text TEXT NOT NULL DEFAULT '',
	reviews_json TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_position ON products(position);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Load returns the full catalog in its stable position order. Ranking relies
// on that order for tie-breaking, so it must survive the round trip.
func (r *ProductRepository) Load(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, price, price_raw, description, rating, review_count, specs_text, reviews_json, category, image_url, url
FROM products
ORDER BY position ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var (
			product     domain.Product
			rating      sql.NullFloat64
			reviewCount sql.NullInt64
		)
		err := rows.Scan(
			&product.ID, &product.Name, &product.Price, &product.PriceRaw, &product.Description,
			&rating, &reviewCount, &product.SpecsText, &product.ReviewsJSON,
			&product.Category, &product.ImageURL, &product.URL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if rating.Valid {
			value := rating.Float64
			product.Rating = &value
		}
		if reviewCount.Valid {
			value := int(reviewCount.Int64)
			product.ReviewCount = &value
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("products table is empty")
	}
	return products, nil
}

// Import replaces the stored catalog with the given products, keeping their
// slice order as the position column.
func (r *ProductRepository) Import(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}

	const insert = `
INSERT INTO products (
	id, name, price, price_raw, description, rating, review_count, specs_text, reviews_json, category, image_url, url, position
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`
	for i, product := range products {
		var rating any
		if product.Rating != nil {
			rating = *product.Rating
		}
		var reviewCount any
		if product.ReviewCount != nil {
			reviewCount = *product.ReviewCount
		}
		_, err := tx.ExecContext(ctx, insert,
			product.ID, product.Name, product.Price, product.PriceRaw, product.Description,
			rating, reviewCount, product.SpecsText, product.ReviewsJSON,
			product.Category, product.ImageURL, product.URL, i,
		)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", product.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import tx: %w", err)
	}
	return nil
}
