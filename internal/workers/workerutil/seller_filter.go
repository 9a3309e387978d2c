package workerutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// SellerFilter removes candidates whose content shows they are offering a
// product rather than seeking one. The classification is LLM-assisted and
// fails open: a classifier outage keeps every candidate and records a
// warning, never an empty set.
type SellerFilter struct {
	classifier interfaces.Classifier
	logger     arbor.ILogger
}

// NewSellerFilter creates the filter. classifier may be nil, in which case
// every call fails open.
func NewSellerFilter(classifier interfaces.Classifier, logger arbor.ILogger) *SellerFilter {
	return &SellerFilter{
		classifier: classifier,
		logger:     logger,
	}
}

// sellerVerdict is the per-candidate classification row.
type sellerVerdict struct {
	Index    int  `json:"index"`
	IsSeller bool `json:"is_seller"`
}

var sellerSchema = &interfaces.SchemaField{
	Type: interfaces.SchemaArray,
	Items: &interfaces.SchemaField{
		Type: interfaces.SchemaObject,
		Properties: map[string]*interfaces.SchemaField{
			"index":     {Type: interfaces.SchemaInteger, Description: "Candidate index from the prompt"},
			"is_seller": {Type: interfaces.SchemaBoolean, Description: "True when the person is promoting or selling"},
		},
		Required: []string{"index", "is_seller"},
	},
}

// Filter returns the candidates judged to be buyers. On any classifier
// failure the input is returned unchanged along with a warning string for
// the worker trace.
func (f *SellerFilter) Filter(ctx context.Context, leads []models.Lead) ([]models.Lead, string) {
	if len(leads) == 0 {
		return leads, ""
	}
	if f.classifier == nil {
		return leads, "seller filter skipped: no classifier configured"
	}

	prompt := buildSellerPrompt(leads)

	var verdicts []sellerVerdict
	if err := f.classifier.Classify(ctx, prompt, sellerSchema, &verdicts); err != nil {
		f.logger.Warn().
			Err(err).
			Int("candidates", len(leads)).
			Msg("Seller classification failed, keeping all candidates")
		return leads, fmt.Sprintf("seller filter failed open: %v", err)
	}

	sellers := make(map[int]bool)
	for _, v := range verdicts {
		if v.IsSeller && v.Index >= 0 && v.Index < len(leads) {
			sellers[v.Index] = true
		}
	}

	var buyers []models.Lead
	for i, lead := range leads {
		if !sellers[i] {
			buyers = append(buyers, lead)
		}
	}

	f.logger.Debug().
		Int("candidates", len(leads)).
		Int("sellers_removed", len(leads)-len(buyers)).
		Msg("Seller filter applied")
	return buyers, ""
}

func buildSellerPrompt(leads []models.Lead) string {
	var b strings.Builder
	b.WriteString(`Classify each person below as a buyer or a seller. A seller is someone
whose content promotes, markets or offers a product or service. A buyer is someone
seeking a solution, complaining about a tool, or discussing a problem.

Candidates:
`)
	for i, lead := range leads {
		fmt.Fprintf(&b, "%d. %s", i, lead.Name)
		if lead.Title != "" {
			fmt.Fprintf(&b, " (%s)", lead.Title)
		}
		fmt.Fprintf(&b, " -- %q\n", lead.IntentSignal)
	}
	b.WriteString("\nReturn one entry per candidate with its index and is_seller verdict.")
	return b.String()
}
