package models

import (
	"time"
)

// RunStatus tracks a run through the host layer.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// RunRequest describes one lead generation job submission.
type RunRequest struct {
	Product string            `json:"product" validate:"required,min=10"`
	Target  int               `json:"target" validate:"required,min=1,max=100"`
	ICP     map[string]string `json:"icp,omitempty"`
}

// WorkerResult is the outcome of one worker invocation. Success with empty
// leads is a valid outcome (no matches) and is distinguished from failure
// by the absence of Error.
type WorkerResult struct {
	Platform string   `json:"platform"`
	Success  bool     `json:"success"`
	Leads    []Lead   `json:"leads,omitempty"`
	Error    string   `json:"error,omitempty"`
	LastStep string   `json:"last_step,omitempty"`
	Trace    []string `json:"trace,omitempty"`
}

// Failed reports whether the result represents a worker failure that the
// review policy may retry.
func (r *WorkerResult) Failed() bool {
	return !r.Success && r.Error != ""
}

// CompensationRound records one Phase III history entry: which strategy was
// chosen, how many new leads it admitted, and whether it succeeded.
type CompensationRound struct {
	Round    int         `json:"round"`
	Tag      StrategyTag `json:"tag"`
	NewLeads int         `json:"new_leads"`
	Success  bool        `json:"success"`
	Detail   string      `json:"detail,omitempty"`
}

// ResourceUsage summarizes consumed search space for compensation planning.
type ResourceUsage struct {
	LeadCount          int      `json:"lead_count"`
	Target             int      `json:"target"`
	NewsPagesFetched   []int    `json:"news_pages_fetched"`
	QueriesUsed        []string `json:"queries_used"`
	CompetitorsScraped []string `json:"competitors_scraped"`
}

// Shortfall returns the remaining lead deficit, never negative.
func (r ResourceUsage) Shortfall() int {
	d := r.Target - r.LeadCount
	if d < 0 {
		return 0
	}
	return d
}

// RunResult is the aggregated outcome of one run. Success is true iff the
// aggregator produced at least one lead. Non-fatal worker failures appear
// in Errors and never fail the run.
type RunResult struct {
	RunID             string         `json:"run_id"`
	Success           bool           `json:"success"`
	Leads             []Lead         `json:"leads"`
	TierCounts        map[string]int `json:"tier_counts"`
	PlatformCounts    map[string]int `json:"platform_counts"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	Rounds            int            `json:"rounds"`
	Elapsed           time.Duration  `json:"elapsed"`
	Errors            []string       `json:"errors,omitempty"`
}

// Summary converts the result into the completed-event payload.
func (r *RunResult) Summary() *RunSummary {
	return &RunSummary{
		RunID:             r.RunID,
		Success:           r.Success,
		LeadCount:         len(r.Leads),
		TierCounts:        r.TierCounts,
		PlatformCounts:    r.PlatformCounts,
		DuplicatesRemoved: r.DuplicatesRemoved,
		Rounds:            r.Rounds,
		ElapsedMS:         r.Elapsed.Milliseconds(),
		Errors:            r.Errors,
	}
}

// Run is the host-layer record of a job: the request, its lifecycle state,
// and the result once finished.
type Run struct {
	ID          string     `json:"id" badgerhold:"key"`
	Request     RunRequest `json:"request"`
	Status      RunStatus  `json:"status"`
	Result      *RunResult `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
