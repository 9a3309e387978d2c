package badger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

func newTestStorage(t *testing.T, eventLimit int) *RunStorage {
	t.Helper()

	dir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store, logger: common.GetLogger()}
	return NewRunStorage(db, eventLimit, common.GetLogger())
}

func testRun(id string, status models.RunStatus, createdAt time.Time) *models.Run {
	return &models.Run{
		ID: id,
		Request: models.RunRequest{
			Product: "AI expense tracking for freelancers",
			Target:  10,
		},
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestStoreRun_AndGetRun(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	run := testRun("run-1", models.RunStatusPending, time.Now())
	require.NoError(t, storage.StoreRun(ctx, run))

	got, err := storage.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, models.RunStatusPending, got.Status)
	assert.Equal(t, run.Request.Product, got.Request.Product)
}

func TestStoreRun_UpsertUpdatesStatus(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	run := testRun("run-1", models.RunStatusPending, time.Now())
	require.NoError(t, storage.StoreRun(ctx, run))

	run.Status = models.RunStatusRunning
	require.NoError(t, storage.StoreRun(ctx, run))

	got, err := storage.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
}

func TestGetRun_NotFound(t *testing.T) {
	storage := newTestStorage(t, 0)

	_, err := storage.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStoreRun_RequiresID(t *testing.T) {
	storage := newTestStorage(t, 0)
	assert.Error(t, storage.StoreRun(context.Background(), &models.Run{}))
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		run := testRun(fmt.Sprintf("run-%d", i), models.RunStatusCompleted, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, storage.StoreRun(ctx, run))
	}

	runs, err := storage.ListRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-4", runs[0].ID)
	assert.Equal(t, "run-3", runs[1].ID)
	assert.Equal(t, "run-2", runs[2].ID)
}

func TestCountRuns(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	count, err := storage.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, storage.StoreRun(ctx, testRun("run-1", models.RunStatusPending, time.Now())))
	require.NoError(t, storage.StoreRun(ctx, testRun("run-2", models.RunStatusPending, time.Now())))

	count, err = storage.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStoreLeads_AndGetLeads(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	leads := []models.Lead{
		{Name: "Jordan Smith", Company: "Acme", IntentScore: 85, IntentSignal: "asked for tool recs", SourcePlatform: models.PlatformCommunity},
		{Name: "Sam Lee", Company: "Globex", IntentScore: 55, SourcePlatform: models.PlatformNews},
	}
	require.NoError(t, storage.StoreLeads(ctx, "run-1", leads))

	got, err := storage.GetLeads(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Jordan Smith", got[0].Name)
	assert.Equal(t, "Sam Lee", got[1].Name)
}

func TestStoreLeads_ReplacesPreviousBatch(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	first := []models.Lead{
		{Name: "Jordan Smith", IntentScore: 70, IntentSignal: "s", SourcePlatform: models.PlatformCommunity},
		{Name: "Sam Lee", IntentScore: 70, IntentSignal: "s", SourcePlatform: models.PlatformCommunity},
	}
	require.NoError(t, storage.StoreLeads(ctx, "run-1", first))

	second := []models.Lead{
		{Name: "Alex Chen", IntentScore: 70, IntentSignal: "s", SourcePlatform: models.PlatformNews},
	}
	require.NoError(t, storage.StoreLeads(ctx, "run-1", second))

	got, err := storage.GetLeads(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alex Chen", got[0].Name)
}

func TestSearchLeads_SubstringAcrossRuns(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	require.NoError(t, storage.StoreRun(ctx, testRun("run-1", models.RunStatusCompleted, time.Now())))
	require.NoError(t, storage.StoreLeads(ctx, "run-1", []models.Lead{
		{Name: "Jordan Smith", Company: "Acme Fintech", IntentScore: 80, IntentSignal: "s", SourcePlatform: models.PlatformCommunity},
	}))
	require.NoError(t, storage.StoreLeads(ctx, "run-2", []models.Lead{
		{Name: "Sam Lee", Title: "Head of Fintech Ops", IntentScore: 70, IntentSignal: "s", SourcePlatform: models.PlatformNews},
		{Name: "Alex Chen", Company: "Globex", IntentScore: 60, IntentSignal: "s", SourcePlatform: models.PlatformNews},
	}))

	results, err := storage.SearchLeads(ctx, "fintech", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byName := make(map[string]models.LeadRecord)
	for _, r := range results {
		byName[r.Lead.Name] = r
	}
	assert.Contains(t, byName, "Jordan Smith")
	assert.Contains(t, byName, "Sam Lee")
	assert.Equal(t, models.RunStatusCompleted, byName["Jordan Smith"].RunStatus)
}

func TestSearchLeads_LimitAndEmptyQuery(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	leads := make([]models.Lead, 5)
	for i := range leads {
		leads[i] = models.Lead{Name: fmt.Sprintf("Buyer %d", i), IntentScore: 70, IntentSignal: "s", SourcePlatform: models.PlatformCommunity}
	}
	require.NoError(t, storage.StoreLeads(ctx, "run-1", leads))

	results, err := storage.SearchLeads(ctx, "buyer", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	_, err = storage.SearchLeads(ctx, "  ", 10)
	assert.Error(t, err)
}

func TestDeleteRun_RemovesLeadsAndEvents(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	require.NoError(t, storage.StoreRun(ctx, testRun("run-1", models.RunStatusCompleted, time.Now())))
	require.NoError(t, storage.StoreLeads(ctx, "run-1", []models.Lead{
		{Name: "Jordan Smith", IntentScore: 50, SourcePlatform: models.PlatformCommunity},
	}))
	require.NoError(t, storage.AppendEvent(ctx, models.Event{
		ID: "evt-1", RunID: "run-1", Type: models.EventStatus, Timestamp: time.Now(),
	}))

	require.NoError(t, storage.DeleteRun(ctx, "run-1"))

	_, err := storage.GetRun(ctx, "run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)

	leads, err := storage.GetLeads(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, leads)

	events, err := storage.GetEvents(ctx, "run-1", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAppendEvent_PreservesEmissionOrder(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	now := time.Now()
	types := []models.EventType{models.EventStatus, models.EventThought, models.EventWorkerStart, models.EventCompleted}
	for i, eventType := range types {
		require.NoError(t, storage.AppendEvent(ctx, models.Event{
			ID:        fmt.Sprintf("evt-%d", i),
			RunID:     "run-1",
			Type:      eventType,
			Timestamp: now,
		}))
	}

	events, err := storage.GetEvents(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Len(t, events, len(types))
	for i, eventType := range types {
		assert.Equal(t, eventType, events[i].Type)
	}
}

func TestAppendEvent_TrimsToAuditLimit(t *testing.T) {
	storage := newTestStorage(t, 3)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, storage.AppendEvent(ctx, models.Event{
			ID:        fmt.Sprintf("evt-%d", i),
			RunID:     "run-1",
			Type:      models.EventWorkerUpdate,
			Timestamp: time.Now(),
		}))
	}

	events, err := storage.GetEvents(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "evt-3", events[0].ID)
	assert.Equal(t, "evt-5", events[2].ID)
}

func TestGetEvents_LimitKeepsMostRecent(t *testing.T) {
	storage := newTestStorage(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, storage.AppendEvent(ctx, models.Event{
			ID:        fmt.Sprintf("evt-%d", i),
			RunID:     "run-1",
			Type:      models.EventWorkerUpdate,
			Timestamp: time.Now(),
		}))
	}

	events, err := storage.GetEvents(ctx, "run-1", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-3", events[0].ID)
	assert.Equal(t, "evt-4", events[1].ID)
}
