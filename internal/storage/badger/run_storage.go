package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ErrRunNotFound is returned when a run ID has no stored record.
var ErrRunNotFound = interfaces.ErrRunNotFound

// storedLead is the persisted form of one lead, keyed per run so a
// completed run's batch can be replaced atomically by run ID.
type storedLead struct {
	Key      string `badgerhold:"key"` // runID:index
	RunID    string
	Index    int
	Lead     models.Lead
	StoredAt time.Time
}

// storedEvent wraps an audit event with a process-wide sequence number.
// Timestamps within a run can tie; Seq breaks the tie for ordering.
type storedEvent struct {
	Key   string `badgerhold:"key"` // event ID
	RunID string
	Seq   uint64
	Event models.Event
}

// RunStorage persists runs, their lead batches and their event audit
// trails in BadgerDB.
type RunStorage struct {
	db         *BadgerDB
	logger     arbor.ILogger
	eventLimit int
	seq        atomic.Uint64
}

var _ interfaces.RunStorage = (*RunStorage)(nil)

// NewRunStorage creates run storage on an open connection. eventLimit
// caps retained audit events per run; zero retains everything.
func NewRunStorage(db *BadgerDB, eventLimit int, logger arbor.ILogger) *RunStorage {
	s := &RunStorage{
		db:         db,
		logger:     logger,
		eventLimit: eventLimit,
	}
	// Seed the sequence clock so events appended after a restart still
	// sort after events persisted by the previous process.
	s.seq.Store(uint64(time.Now().UnixNano()))
	return s
}

// StoreRun inserts or updates a run record
func (s *RunStorage) StoreRun(ctx context.Context, run *models.Run) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run must have an ID")
	}

	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return fmt.Errorf("failed to store run %s: %w", run.ID, err)
	}

	s.logger.Debug().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Msg("Run stored")

	return nil
}

// GetRun retrieves a run by ID
func (s *RunStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	if err := s.db.Store().Get(id, &run); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns runs newest first, up to limit (0 = all)
func (s *RunStorage) ListRuns(ctx context.Context, limit int) ([]*models.Run, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []*models.Run
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run together with its leads and events
func (s *RunStorage) DeleteRun(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.Run{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}

	if err := s.db.Store().DeleteMatching(&storedLead{}, badgerhold.Where("RunID").Eq(id)); err != nil {
		s.logger.Warn().Err(err).Str("run_id", id).Msg("Failed to delete run leads")
	}
	if err := s.db.Store().DeleteMatching(&storedEvent{}, badgerhold.Where("RunID").Eq(id)); err != nil {
		s.logger.Warn().Err(err).Str("run_id", id).Msg("Failed to delete run events")
	}

	s.logger.Debug().Str("run_id", id).Msg("Run deleted")
	return nil
}

// CountRuns returns the total number of stored runs
func (s *RunStorage) CountRuns(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.Run{}, badgerhold.Where("ID").Ne(""))
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return int(count), nil
}

// StoreLeads replaces the stored lead batch for a run
func (s *RunStorage) StoreLeads(ctx context.Context, runID string, leads []models.Lead) error {
	if runID == "" {
		return fmt.Errorf("run ID is required")
	}

	if err := s.db.Store().DeleteMatching(&storedLead{}, badgerhold.Where("RunID").Eq(runID)); err != nil {
		return fmt.Errorf("failed to clear leads for run %s: %w", runID, err)
	}

	now := time.Now()
	for i, lead := range leads {
		record := &storedLead{
			Key:      fmt.Sprintf("%s:%d", runID, i),
			RunID:    runID,
			Index:    i,
			Lead:     lead,
			StoredAt: now,
		}
		if err := s.db.Store().Upsert(record.Key, record); err != nil {
			return fmt.Errorf("failed to store lead %d for run %s: %w", i, runID, err)
		}
	}

	s.logger.Debug().
		Str("run_id", runID).
		Int("lead_count", len(leads)).
		Msg("Leads stored")

	return nil
}

// GetLeads returns the stored lead batch for a run in original order
func (s *RunStorage) GetLeads(ctx context.Context, runID string) ([]models.Lead, error) {
	var records []*storedLead
	query := badgerhold.Where("RunID").Eq(runID).SortBy("Index")
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get leads for run %s: %w", runID, err)
	}

	leads := make([]models.Lead, 0, len(records))
	for _, record := range records {
		leads = append(leads, record.Lead)
	}
	return leads, nil
}

// SearchLeads matches the query as a case-insensitive substring against
// lead name, company, title and intent signal across all stored runs.
func (s *RunStorage) SearchLeads(ctx context.Context, query string, limit int) ([]models.LeadRecord, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("search query is required")
	}

	var records []*storedLead
	if err := s.db.Store().Find(&records, badgerhold.Where("RunID").Ne("").SortBy("StoredAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to scan leads: %w", err)
	}

	statusByRun := make(map[string]models.RunStatus)
	var results []models.LeadRecord
	for _, record := range records {
		if !leadMatches(&record.Lead, needle) {
			continue
		}

		status, ok := statusByRun[record.RunID]
		if !ok {
			if run, err := s.GetRun(ctx, record.RunID); err == nil {
				status = run.Status
			}
			statusByRun[record.RunID] = status
		}

		results = append(results, models.LeadRecord{
			RunID:     record.RunID,
			Lead:      record.Lead,
			StoredAt:  record.StoredAt,
			RunStatus: status,
		})
		if limit > 0 && len(results) >= limit {
			break
		}
	}

	return results, nil
}

func leadMatches(lead *models.Lead, needle string) bool {
	for _, field := range []string{lead.Name, lead.Company, lead.Title, lead.IntentSignal} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// AppendEvent adds an event to its run's audit trail, trimming the
// oldest entries past the configured cap.
func (s *RunStorage) AppendEvent(ctx context.Context, event models.Event) error {
	if event.RunID == "" {
		return fmt.Errorf("event must have a run ID")
	}
	if event.ID == "" {
		return fmt.Errorf("event must have an ID")
	}

	record := &storedEvent{
		Key:   event.ID,
		RunID: event.RunID,
		Seq:   s.seq.Add(1),
		Event: event,
	}
	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to append event for run %s: %w", event.RunID, err)
	}

	if s.eventLimit > 0 {
		if err := s.trimEvents(event.RunID); err != nil {
			s.logger.Warn().Err(err).Str("run_id", event.RunID).Msg("Failed to trim event audit trail")
		}
	}

	return nil
}

func (s *RunStorage) trimEvents(runID string) error {
	count, err := s.db.Store().Count(&storedEvent{}, badgerhold.Where("RunID").Eq(runID))
	if err != nil {
		return err
	}
	excess := int(count) - s.eventLimit
	if excess <= 0 {
		return nil
	}

	var oldest []*storedEvent
	query := badgerhold.Where("RunID").Eq(runID).SortBy("Seq").Limit(excess)
	if err := s.db.Store().Find(&oldest, query); err != nil {
		return err
	}
	for _, record := range oldest {
		if err := s.db.Store().Delete(record.Key, &storedEvent{}); err != nil {
			return err
		}
	}
	return nil
}

// GetEvents returns a run's audit trail in emission order. When limit is
// positive and the trail is longer, the most recent events are kept.
func (s *RunStorage) GetEvents(ctx context.Context, runID string, limit int) ([]models.Event, error) {
	var records []*storedEvent
	query := badgerhold.Where("RunID").Eq(runID).SortBy("Seq")
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to get events for run %s: %w", runID, err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	events := make([]models.Event, 0, len(records))
	for _, record := range records {
		events = append(events, record.Event)
	}
	return events, nil
}

// Close closes the underlying database connection
func (s *RunStorage) Close() error {
	return s.db.Close()
}
