package runs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/engine"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/workers"
)

// ProviderFactory builds a worker provider bound to one run's update
// callback, so progress lines land on that run's event stream.
type ProviderFactory func(onUpdate workers.UpdateFunc) interfaces.WorkerProvider

// Service owns the run lifecycle: it accepts requests, executes each run
// on its own goroutine through the engine, fans events out to the bus and
// storage, and persists results.
type Service struct {
	cfg         *common.Config
	planner     interfaces.Planner
	newProvider ProviderFactory
	events      interfaces.EventService
	storage     interfaces.RunStorage
	logger      arbor.ILogger
	validate    *validator.Validate

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates the run manager.
func NewService(
	cfg *common.Config,
	plan interfaces.Planner,
	newProvider ProviderFactory,
	events interfaces.EventService,
	storage interfaces.RunStorage,
	logger arbor.ILogger,
) *Service {
	return &Service{
		cfg:         cfg,
		planner:     plan,
		newProvider: newProvider,
		events:      events,
		storage:     storage,
		logger:      logger,
		validate:    validator.New(),
		active:      make(map[string]*activeRun),
	}
}

// Start validates the request, records a pending run and launches it on a
// background goroutine. The returned run is the initial record; callers
// follow progress via the event stream or by polling Get.
func (s *Service) Start(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	if err := s.validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("invalid run request: %w", err)
	}

	run := &models.Run{
		ID:        common.NewRunID(),
		Request:   req,
		Status:    models.RunStatusPending,
		CreatedAt: time.Now(),
	}
	if err := s.storage.StoreRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	state := &activeRun{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.active[run.ID] = state
	s.mu.Unlock()

	s.logger.Info().
		Str("run_id", run.ID).
		Int("target", req.Target).
		Msg("Run accepted")

	go s.execute(runCtx, run, state)

	return run, nil
}

// StartAndWait runs a request to completion. Used by the one-shot CLI mode
// and scheduled digests; ctx cancellation cancels the run.
func (s *Service) StartAndWait(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	run, err := s.Start(ctx, req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	state := s.active[run.ID]
	s.mu.Unlock()

	if state != nil {
		select {
		case <-state.done:
		case <-ctx.Done():
			state.cancel()
			<-state.done
		}
	}

	return s.storage.GetRun(context.Background(), run.ID)
}

func (s *Service) execute(ctx context.Context, run *models.Run, state *activeRun) {
	defer func() {
		s.mu.Lock()
		delete(s.active, run.ID)
		s.mu.Unlock()
		close(state.done)
	}()

	started := time.Now()
	run.Status = models.RunStatusRunning
	run.StartedAt = &started
	if err := s.storage.StoreRun(context.Background(), run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to persist run start")
	}

	sink := func(event models.Event) {
		bg := context.Background()
		if err := s.events.PublishSync(bg, event); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Event publish failed")
		}
		if err := s.storage.AppendEvent(bg, event); err != nil {
			s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Event persist failed")
		}
	}
	emitter := engine.NewEmitter(run.ID, sink)
	provider := s.newProvider(emitter.WorkerUpdate)

	supervisor := engine.NewSupervisor(run.ID, s.planner, provider, s.cfg.Engine.WorkerBuffer, emitter, s.logger)
	result := supervisor.Run(ctx, run.Request.Product, run.Request.Target, run.Request.ICP)

	finished := time.Now()
	run.Result = result
	run.CompletedAt = &finished
	switch {
	case ctx.Err() != nil:
		run.Status = models.RunStatusCancelled
	case result.Success:
		run.Status = models.RunStatusCompleted
	default:
		run.Status = models.RunStatusFailed
	}

	bg := context.Background()
	if err := s.storage.StoreRun(bg, run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist run result")
	}
	if len(result.Leads) > 0 {
		if err := s.storage.StoreLeads(bg, run.ID, result.Leads); err != nil {
			s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to persist leads")
		}
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("leads", len(result.Leads)).
		Int("rounds", result.Rounds).
		Msg("Run finished")
}

// Cancel stops a running run. Cancelling a finished run is an error.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	state, ok := s.active[id]
	s.mu.Unlock()

	if ok {
		s.logger.Info().Str("run_id", id).Msg("Cancelling run")
		state.cancel()
		return nil
	}

	run, err := s.storage.GetRun(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("run %s already finished with status %s", id, run.Status)
}

// Get returns the stored run record
func (s *Service) Get(ctx context.Context, id string) (*models.Run, error) {
	return s.storage.GetRun(ctx, id)
}

// List returns stored runs newest first
func (s *Service) List(ctx context.Context, limit int) ([]*models.Run, error) {
	return s.storage.ListRuns(ctx, limit)
}

// Delete removes a run and its stored leads and events. Active runs must
// be cancelled first.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, running := s.active[id]
	s.mu.Unlock()
	if running {
		return fmt.Errorf("run %s is still running", id)
	}
	return s.storage.DeleteRun(ctx, id)
}

// Leads returns the stored lead batch for a completed run
func (s *Service) Leads(ctx context.Context, id string) ([]models.Lead, error) {
	if _, err := s.storage.GetRun(ctx, id); err != nil {
		return nil, err
	}
	return s.storage.GetLeads(ctx, id)
}

// Events returns a run's persisted event trail
func (s *Service) Events(ctx context.Context, id string, limit int) ([]models.Event, error) {
	return s.storage.GetEvents(ctx, id, limit)
}

// Close cancels every active run and waits for them to unwind.
func (s *Service) Close() error {
	s.mu.Lock()
	states := make([]*activeRun, 0, len(s.active))
	for _, state := range s.active {
		state.cancel()
		states = append(states, state)
	}
	s.mu.Unlock()

	for _, state := range states {
		<-state.done
	}
	return nil
}
