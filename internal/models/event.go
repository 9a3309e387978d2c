package models

import (
	"time"
)

// EventType tags a run event. The set is closed; sinks switch on it to
// frame transport-specific output.
type EventType string

const (
	EventStatus         EventType = "status"
	EventThought        EventType = "thought"
	EventWorkerStart    EventType = "worker_start"
	EventWorkerUpdate   EventType = "worker_update"
	EventWorkerComplete EventType = "worker_complete"
	EventLeadBatch      EventType = "lead_batch"
	EventCompleted      EventType = "completed"
	EventCancelled      EventType = "cancelled"
	EventError          EventType = "error"
)

// Event is one tagged record on a run's progress stream. Timestamps are
// monotonically non-decreasing within a run. Platform is set for worker
// lifecycle and lead_batch events; Leads only for lead_batch; Summary only
// for completed.
type Event struct {
	ID        string      `json:"id"`
	RunID     string      `json:"run_id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Platform  string      `json:"platform,omitempty"`
	Message   string      `json:"message,omitempty"`
	Leads     []Lead      `json:"leads,omitempty"`
	Summary   *RunSummary `json:"summary,omitempty"`
}

// RunSummary is the completed-event payload: the RunResult minus the lead
// bodies, which arrive separately as lead_batch events.
type RunSummary struct {
	RunID             string         `json:"run_id"`
	Success           bool           `json:"success"`
	LeadCount         int            `json:"lead_count"`
	TierCounts        map[string]int `json:"tier_counts"`
	PlatformCounts    map[string]int `json:"platform_counts"`
	DuplicatesRemoved int            `json:"duplicates_removed"`
	Rounds            int            `json:"rounds"`
	ElapsedMS         int64          `json:"elapsed_ms"`
	Errors            []string       `json:"errors,omitempty"`
}

// IsTerminal reports whether this event ends the stream for its run.
func (e *Event) IsTerminal() bool {
	switch e.Type {
	case EventCompleted, EventCancelled, EventError:
		return true
	}
	return false
}
