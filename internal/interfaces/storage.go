// -----------------------------------------------------------------------
// Last Modified: Tuesday, 18th August 2026 9:44:17 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/venator/internal/models"
)

// ErrRunNotFound indicates a run ID has no stored record.
var ErrRunNotFound = errors.New("run not found")

// RunStorage - interface for run and lead persistence
type RunStorage interface {
	// Run operations
	StoreRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*models.Run, error)
	DeleteRun(ctx context.Context, id string) error
	CountRuns(ctx context.Context) (int, error)

	// Lead operations. Leads are stored per run when it completes.
	StoreLeads(ctx context.Context, runID string, leads []models.Lead) error
	GetLeads(ctx context.Context, runID string) ([]models.Lead, error)
	SearchLeads(ctx context.Context, query string, limit int) ([]models.LeadRecord, error)

	// Event audit trail, capped per run.
	AppendEvent(ctx context.Context, event models.Event) error
	GetEvents(ctx context.Context, runID string, limit int) ([]models.Event, error)

	// Lifecycle
	Close() error
}
