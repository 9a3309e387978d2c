package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// SourceWorker runs one source pipeline (fetch, score, extract, filter) and
// reports everything in the result: worker failures are encoded in
// WorkerResult.Error, not returned, so the supervisor can always inspect the
// last step reached and the partial trace.
type SourceWorker interface {
	// Platform returns the source platform tag the worker's leads carry.
	Platform() string

	// Run executes the pipeline until done, failed or ctx is cancelled.
	// target is the number of leads this worker should aim for.
	Run(ctx context.Context, target int) *models.WorkerResult
}

// WorkerSet builds workers for one run. Each call constructs a fresh
// instance so a retried worker never inherits state from the failed attempt.
type WorkerSet interface {
	Community(queries []string) SourceWorker
	News(pages []int) SourceWorker
	Competitor(names []string) SourceWorker
}

// WorkerProvider binds a run's product and strategy to a WorkerSet.
type WorkerProvider interface {
	ForRun(product string, strategy *models.Strategy) WorkerSet
}
