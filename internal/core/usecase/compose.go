package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

const systemPrompt = `You are Palona, a friendly AI shopping assistant like Amazon Rufus.
You can:
1. Have general conversations - introduce yourself, answer questions about your capabilities
2. Answer product-specific questions - reviews, ratings, specs, features, comparisons (e.g., "how are its reviews?", "what are the specs?")
3. Recommend products based on text descriptions (e.g., "recommend a t-shirt for sports")
4. Find products based on images users upload

When the user asks about a specific product (reviews, ratings, specs, how it works), use the product data provided to answer directly.
When recommending, mention names, key features, prices, and ratings.
Be conversational and helpful. Keep responses concise (2-5 sentences) unless the user asks for more.
If no products match, suggest different keywords.`

const resultsInstructions = `Instructions:
- Recommend ONLY the products listed above. Do NOT mention products not in the list.
- If the user uploaded an image, we already processed it - describe the matches based on the image analysis. Do NOT say you cannot view images.
- If the user asked about reviews/ratings, use the rating and review count.
- If the user asked about specs or features, use the description and specs data.
- If the user asked to COMPARE multiple products (e.g. "compare them", "which one is better"), format your response as a Markdown table with columns: Product | Price | Rating | Key difference. Then add 1-2 sentences summarizing your recommendation.
- Be conversational like Amazon Rufus. Answer the specific question they asked, then offer to help with more.`

// composeTurnMessages assembles the full model input: persona, the recent
// session window, then the current turn content.
func composeTurnMessages(history []domain.ChatMessage, currentTurn string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: "user", Content: currentTurn})
	return messages
}

func composeChatContext(history []domain.ChatMessage, message string) []domain.ChatMessage {
	if strings.TrimSpace(message) == "" {
		message = "Hello!"
	}
	return composeTurnMessages(history, message)
}

// composeNoMatchTurn tells the model to explain the empty result. The image
// variant must keep the model from denying image support: the image was
// already analyzed upstream.
func composeNoMatchTurn(message, imageDescription string, hasImage bool) string {
	if hasImage {
		return fmt.Sprintf(`The user uploaded an image. We analyzed it and described it as: %q

We found no products in our catalog that match this description.

Write a helpful 1-2 sentence response. Say we searched based on the image but don't have matching products. Suggest they try describing what they're looking for in words, or try different keywords. Do NOT say you cannot view images - we already processed the image.`, imageDescription)
	}
	return fmt.Sprintf(`The user asked: %q
We found no products that closely match this query in our catalog.

Write a helpful 1-2 sentence response. Politely explain we don't have good matches and suggest they try different keywords or browse our general selection.`, message)
}

func composeResultsTurn(message, imageDescription string, hasImage bool, products []domain.Product) string {
	blocks := make([]string, 0, len(products))
	for i, product := range products {
		blocks = append(blocks, fmt.Sprintf("Product %d:\n  %s", i+1, productContext(product)))
	}

	var intro string
	if hasImage {
		intro = fmt.Sprintf(`The user uploaded an image. We analyzed it and described it as: %q

Matching products from our catalog:`, imageDescription)
	} else {
		intro = fmt.Sprintf(`The user asked: %q

Matching products from our catalog:`, message)
	}

	return intro + "\n\n" + strings.Join(blocks, "\n\n") + "\n\n" + resultsInstructions
}

// productContext flattens one product into the prompt. Long fields are cut to
// keep the context window predictable for small local models.
func productContext(p domain.Product) string {
	parts := []string{
		"Name: " + p.Name,
		"Price: " + p.Price,
	}
	if p.Rating != nil {
		parts = append(parts, fmt.Sprintf("Rating: %s/5 stars", strconv.FormatFloat(*p.Rating, 'g', -1, 64)))
	}
	if p.ReviewCount != nil {
		parts = append(parts, "Review count: "+groupThousands(*p.ReviewCount))
	}
	if desc := excerpt(p.Description, 200); desc != "" {
		parts = append(parts, "Description: "+desc+"...")
	}
	if specs := excerpt(p.SpecsText, 300); specs != "" {
		parts = append(parts, "Specs: "+specs+"...")
	}
	if reviews := excerpt(p.ReviewsJSON, 500); reviews != "" {
		parts = append(parts, "Review snippets: "+reviews+"...")
	}
	return strings.Join(parts, "\n  ")
}

func excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}

func groupThousands(n int) string {
	digits := strconv.Itoa(n)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	}
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + b.String()
}
