package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ProductRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ProductRepository{db: db}, mock, func() { _ = db.Close() }
}

func productColumns() []string {
	return []string{
		"id", "name", "price", "price_raw", "description", "rating", "review_count",
		"specs_text", "reviews_json", "category", "image_url", "url",
	}
}

func TestLoadScansNullableFields(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows(productColumns()).
		AddRow("B001", "Headphones", "$49.99", "$49.99", "Great sound", 4.5, 14356, "Bluetooth", "[]", "electronics", "https://img/1.jpg", "https://example.com/1").
		AddRow("B002", "Bare Item", "—", "", "Bare Item", nil, nil, "", "", "clothing", "https://img/2.jpg", "")

	mock.ExpectQuery("SELECT id, name, price, price_raw").
		WillReturnRows(rows)

	products, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	first := products[0]
	if first.Rating == nil || *first.Rating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", first.Rating)
	}
	if first.ReviewCount == nil || *first.ReviewCount != 14356 {
		t.Fatalf("expected review count 14356, got %v", first.ReviewCount)
	}

	bare := products[1]
	if bare.Rating != nil || bare.ReviewCount != nil {
		t.Fatalf("expected nil rating and review count, got %+v", bare)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoadFailsOnEmptyTable(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, name, price, price_raw").
		WillReturnRows(sqlmock.NewRows(productColumns()))

	if _, err := repo.Load(context.Background()); err == nil {
		t.Fatal("expected error for empty products table")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestImportReplacesCatalogInOrder(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rating := 4.0
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM products").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO products").
		WithArgs("B001", "First", "$1", "$1", "d", rating, nil, "", "", "", "https://img/1.jpg", "", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO products").
		WithArgs("B002", "Second", "—", "", "d", nil, nil, "", "", "", "https://img/2.jpg", "", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	products := []domain.Product{
		{ID: "B001", Name: "First", Price: "$1", PriceRaw: "$1", Description: "d", Rating: &rating, ImageURL: "https://img/1.jpg"},
		{ID: "B002", Name: "Second", Price: "—", Description: "d", ImageURL: "https://img/2.jpg"},
	}
	if err := repo.Import(context.Background(), products); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
