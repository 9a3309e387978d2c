package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// Planner supplies the strategic decisions a run needs: the initial search
// strategy and, when the first pass comes up short, which sources to go back
// to. Implementations are stateless; per-run state travels through the
// arguments (usage snapshot, compensation history).
//
// Every method may fail. Callers are expected to fall back to deterministic
// defaults rather than abort the run, except where no fallback exists.
type Planner interface {
	// InitialStrategy derives the product category, target titles, community
	// queries, news focus and competitor list for a run.
	InitialStrategy(ctx context.Context, product string, target int, icp string) (*models.Strategy, error)

	// ChooseCompensation returns the ordered source tags worth another pass,
	// given what has been used so far. An empty slice means stop: the planner
	// judges further rounds unlikely to close the gap.
	ChooseCompensation(ctx context.Context, usage models.ResourceUsage, history []models.CompensationRound) ([]models.StrategyTag, error)

	// MoreCompetitors proposes competitor names not present in exclude.
	MoreCompetitors(ctx context.Context, product string, exclude []string) ([]string, error)

	// MoreCommunityQueries proposes community search queries not present in
	// exclude.
	MoreCommunityQueries(ctx context.Context, product string, exclude []string) ([]string, error)
}
