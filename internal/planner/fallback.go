package planner

import (
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// genericTitles are the buyer titles used when the planner cannot produce
// product-specific ones.
var genericTitles = []string{
	"Founder",
	"Head of Operations",
	"VP of Engineering",
	"Product Manager",
	"Director of Marketing",
}

// stopWords excluded when deriving a keyword phrase from a product
// description.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "of": true, "or": true,
	"that": true, "the": true, "to": true, "with": true, "is": true,
	"your": true, "our": true, "in": true, "on": true, "it": true,
}

// FallbackStrategy builds a deterministic template strategy from the product
// description alone: generic queries around the product's keyword phrase, no
// competitors, generic buyer titles. Used when the planner fails or returns
// an empty strategy. When no keyword phrase can be derived the strategy is
// empty and the run has nothing to work with.
func FallbackStrategy(product string) *models.Strategy {
	phrase := keywordPhrase(product, 4)
	if phrase == "" {
		return &models.Strategy{}
	}

	return &models.Strategy{
		ProductCategory: phrase,
		TargetTitles:    append([]string(nil), genericTitles...),
		CommunityQueries: []string{
			fmt.Sprintf("best %s", phrase),
			fmt.Sprintf("%s recommendations", phrase),
			fmt.Sprintf("looking for %s", phrase),
			fmt.Sprintf("alternatives to %s", phrase),
		},
		NewsFocus:   phrase,
		Competitors: nil,
	}
}

// FallbackCompensation is the deterministic compensation choice when the
// planner call fails: another pass over news pages, which is always
// available since the page space is unbounded.
func FallbackCompensation() []models.StrategyTag {
	return []models.StrategyTag{models.TagNews}
}

// keywordPhrase extracts the first maxWords significant words from a product
// description, lowercased.
func keywordPhrase(product string, maxWords int) string {
	var words []string
	for _, word := range strings.Fields(strings.ToLower(product)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" || stopWords[word] {
			continue
		}
		words = append(words, word)
		if len(words) == maxWords {
			break
		}
	}
	return strings.Join(words, " ")
}
