// Package csvfile loads the product catalog from scraped Amazon CSV exports.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

const (
	maxSpecsLen   = 800
	maxReviewsLen = 2000
)

// Loader reads one or more CSV files in order. Missing files are skipped so a
// deployment can ship with a subset of the exports.
type Loader struct {
	paths []string
}

func NewLoader(paths []string) *Loader {
	return &Loader{paths: paths}
}

func (l *Loader) Load(_ context.Context) ([]domain.Product, error) {
	seen := make(map[string]struct{})
	var products []domain.Product

	for _, path := range l.paths {
		rows, err := loadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("catalog_file_missing", "path", path)
				continue
			}
			return nil, fmt.Errorf("load catalog %s: %w", path, err)
		}
		for _, product := range rows {
			if _, dup := seen[product.ID]; dup {
				continue
			}
			seen[product.ID] = struct{}{}
			products = append(products, product)
		}
	}

	if len(products) == 0 {
		return nil, fmt.Errorf("no products loaded from %d catalog files", len(l.paths))
	}
	return products, nil
}

func loadFile(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	var products []domain.Product
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		field := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		asin := field("asin")
		name := field("product_name")
		imageURL := field("image_url")
		if asin == "" || name == "" || imageURL == "" {
			continue
		}
		if strings.Contains(field("error"), "No product found") {
			continue
		}

		price := field("price")
		description := field("description")
		if description == "" {
			description = name
		}
		displayPrice := price
		if displayPrice == "" {
			displayPrice = "—"
		}
		reviews := field("reviews_json")
		if reviews == "[]" {
			reviews = ""
		}

		products = append(products, domain.Product{
			ID:          asin,
			Name:        name,
			Price:       displayPrice,
			PriceRaw:    price,
			Description: description,
			Rating:      parseRating(field("rating_overall")),
			ReviewCount: parseReviewCount(field("review_count")),
			SpecsText:   truncate(field("specs_text"), maxSpecsLen),
			ReviewsJSON: truncate(reviews, maxReviewsLen),
			Category:    field("category"),
			ImageURL:    imageURL,
			URL:         field("url"),
		})
	}
	return products, nil
}

var ratingPattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*out of 5`)

// parseRating extracts the numeric rating from strings like
// "3.9 out of 5 stars".
func parseRating(raw string) *float64 {
	if raw == "" {
		return nil
	}
	match := ratingPattern.FindStringSubmatch(raw)
	if match == nil {
		return nil
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &value
}

var nonDigits = regexp.MustCompile(`[^\d]`)

// parseReviewCount extracts the count from strings like "(14,356)".
func parseReviewCount(raw string) *int {
	if raw == "" {
		return nil
	}
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return nil
	}
	value, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &value
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}
