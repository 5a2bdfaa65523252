package usecase

import (
	"testing"

	"github.com/palona-labs/commerce-agent/internal/core/domain"
)

func TestIsFollowUpRequiresPreviousProducts(t *testing.T) {
	if IsFollowUp("tell me more about the first one", nil) {
		t.Fatal("no previous products must never be a follow-up")
	}
	if IsFollowUp("compare them", []domain.Product{}) {
		t.Fatal("empty previous products must never be a follow-up")
	}
}

func TestIsFollowUpMatchesPhrases(t *testing.T) {
	previous := []domain.Product{{ID: "p1", Name: "Headphones"}}

	cases := []struct {
		message string
		want    bool
	}{
		{"tell me more about the first one", true},
		{"Compare Them please", true},
		{"what's the difference between them?", true},
		{"which one has better battery life", true},
		{"recommend a waterproof speaker", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsFollowUp(tc.message, previous); got != tc.want {
			t.Errorf("IsFollowUp(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}
