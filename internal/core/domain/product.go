package domain

import "strings"

// Product is an immutable catalog record. It is created once at catalog load
// and passed by value through the pipeline; nothing downstream mutates it.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	PriceRaw    string   `json:"price_raw"`
	Description string   `json:"description"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	SpecsText   string   `json:"specs_text"`
	ReviewsJSON string   `json:"reviews_json"`
	Category    string   `json:"category"`
	ImageURL    string   `json:"image_url"`
	URL         string   `json:"url"`
}

// SearchableText is the projection used when building the embedding index.
// It is never used at query time.
func (p Product) SearchableText() string {
	parts := make([]string, 0, 4)
	for _, part := range []string{p.Name, p.Description, p.SpecsText, p.Category} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}
