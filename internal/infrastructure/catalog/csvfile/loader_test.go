package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const sampleCSV = `asin,product_name,image_url,error,rating_overall,review_count,price,description,specs_text,url,reviews_json,category
B001,Wireless Headphones,https://img/1.jpg,,4.5 out of 5 stars,"(14,356)",$49.99,Great sound,Bluetooth 5.3,https://example.com/1,"[{""text"":""love them""}]",electronics
B002,Broken Row,https://img/2.jpg,No product found for query,,,,,,,,
B003,No Image,,,,,,,,,,
B004,Bare Item,https://img/4.jpg,,,not a rating,,,,,[],clothing
`

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadNormalizesRows(t *testing.T) {
	path := writeCSV(t, "catalog.csv", sampleCSV)
	loader := NewLoader([]string{path})

	products, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products (error and missing-image rows skipped), got %d", len(products))
	}

	first := products[0]
	if first.ID != "B001" || first.Name != "Wireless Headphones" {
		t.Fatalf("unexpected first product %+v", first)
	}
	if first.Rating == nil || *first.Rating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", first.Rating)
	}
	if first.ReviewCount == nil || *first.ReviewCount != 14356 {
		t.Fatalf("expected review count 14356, got %v", first.ReviewCount)
	}
	if first.Price != "$49.99" || first.PriceRaw != "$49.99" {
		t.Fatalf("unexpected price fields %+v", first)
	}
	if first.ReviewsJSON == "" {
		t.Fatal("expected reviews json kept")
	}

	bare := products[1]
	if bare.ID != "B004" {
		t.Fatalf("unexpected second product %+v", bare)
	}
	if bare.Price != "—" || bare.PriceRaw != "" {
		t.Fatalf("expected placeholder price fallback, got %+v", bare)
	}
	if bare.Description != "Bare Item" {
		t.Fatalf("expected description fallback to name, got %q", bare.Description)
	}
	if bare.Rating != nil {
		t.Fatalf("unparseable rating must be nil, got %v", bare.Rating)
	}
	if bare.ReviewsJSON != "" {
		t.Fatalf("empty reviews array must collapse to empty string, got %q", bare.ReviewsJSON)
	}
}

func TestLoadDeduplicatesAcrossFiles(t *testing.T) {
	first := writeCSV(t, "a.csv", `asin,product_name,image_url
B001,First Copy,https://img/1.jpg
`)
	second := writeCSV(t, "b.csv", `asin,product_name,image_url
B001,Second Copy,https://img/1b.jpg
B002,Other,https://img/2.jpg
`)
	loader := NewLoader([]string{first, second})

	products, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 unique products, got %d", len(products))
	}
	if products[0].Name != "First Copy" {
		t.Fatalf("first occurrence must win, got %q", products[0].Name)
	}
}

func TestLoadSkipsMissingFiles(t *testing.T) {
	path := writeCSV(t, "catalog.csv", `asin,product_name,image_url
B001,Only,https://img/1.jpg
`)
	loader := NewLoader([]string{filepath.Join(t.TempDir(), "absent.csv"), path})

	products, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
}

func TestLoadFailsWhenNothingLoads(t *testing.T) {
	loader := NewLoader([]string{filepath.Join(t.TempDir(), "absent.csv")})
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error when no products load")
	}
}

func TestParseRating(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"4.5 out of 5 stars", 4.5, true},
		{"3 OUT OF 5", 3, true},
		{"", 0, false},
		{"five stars", 0, false},
	}
	for _, tc := range cases {
		got := parseRating(tc.raw)
		if tc.ok != (got != nil) {
			t.Errorf("parseRating(%q) presence = %v, want %v", tc.raw, got != nil, tc.ok)
			continue
		}
		if got != nil && *got != tc.want {
			t.Errorf("parseRating(%q) = %v, want %v", tc.raw, *got, tc.want)
		}
	}
}

func TestParseReviewCount(t *testing.T) {
	if got := parseReviewCount("(14,356)"); got == nil || *got != 14356 {
		t.Fatalf("expected 14356, got %v", got)
	}
	if got := parseReviewCount("no digits"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
