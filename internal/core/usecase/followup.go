package usecase

import (
	"strings"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

// followUpPhrases are anaphoric references to earlier results. Matching is
// plain substring containment on the lowercased message, so longer phrases
// subsume shorter ones harmlessly.
var followUpPhrases = []string{
	"first one",
	"second one",
	"third one",
	"that one",
	"this one",
	"the first",
	"the second",
	"compare them",
	"tell me more",
	"more about",
	"what about that",
	"how about that",
	"between them",
	"which one",
	"the difference",
	"compare the",
	"tell me about the first",
	"tell me about the second",
}

// IsFollowUp reports whether message refers back to previously shown products.
// A turn can never be a follow-up when there is nothing to refer to.
func IsFollowUp(message string, previousProducts []domain.Product) bool {
	if len(previousProducts) == 0 {
		return false
	}
	lowered := strings.ToLower(message)
	for _, phrase := range followUpPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
