package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

// scheduledRunTimeout bounds one scheduled run end to end.
const scheduledRunTimeout = 30 * time.Minute

// RunStarter executes a run to completion. Satisfied by the runs service.
type RunStarter interface {
	StartAndWait(ctx context.Context, req models.RunRequest) (*models.Run, error)
}

// DigestSender mails the digest for a finished run. Satisfied by the
// mailer service; nil disables digests for scheduled runs.
type DigestSender interface {
	Enabled() bool
	SendDigest(ctx context.Context, run *models.Run) error
}

// Service fires configured product profiles on cron schedules. Profiles
// are loaded at fire time so edits apply without a restart.
type Service struct {
	cron      *cron.Cron
	schedules []common.ScheduleConfig
	runs      RunStarter
	mailer    DigestSender
	logger    arbor.ILogger
}

// NewService creates the scheduler from the configured schedule list.
func NewService(schedules []common.ScheduleConfig, runs RunStarter, mailer DigestSender, logger arbor.ILogger) *Service {
	return &Service{
		cron:      cron.New(),
		schedules: schedules,
		runs:      runs,
		mailer:    mailer,
		logger:    logger,
	}
}

// Start registers the enabled schedules and starts the cron loop.
// Invalid entries are skipped with a warning, not fatal.
func (s *Service) Start() error {
	registered := 0
	for _, sched := range s.schedules {
		if !sched.Enabled {
			continue
		}
		if err := common.ValidateSchedule(sched.Cron); err != nil {
			s.logger.Warn().
				Err(err).
				Str("schedule", sched.Name).
				Msg("Skipping invalid schedule")
			continue
		}

		sched := sched
		if _, err := s.cron.AddFunc(sched.Cron, func() { s.fire(sched) }); err != nil {
			s.logger.Warn().
				Err(err).
				Str("schedule", sched.Name).
				Msg("Failed to register schedule")
			continue
		}
		registered++

		s.logger.Info().
			Str("schedule", sched.Name).
			Str("cron", sched.Cron).
			Str("profile", sched.Profile).
			Msg("Schedule registered")
	}

	if registered > 0 {
		s.cron.Start()
	}
	return nil
}

// EntryCount returns the number of registered schedules.
func (s *Service) EntryCount() int {
	return len(s.cron.Entries())
}

func (s *Service) fire(sched common.ScheduleConfig) {
	profile, err := models.LoadProductProfile(sched.Profile)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("schedule", sched.Name).
			Msg("Scheduled run skipped: profile load failed")
		return
	}

	req := profile.ToRequest()
	if sched.Target > 0 {
		req.Target = sched.Target
	}

	s.logger.Info().
		Str("schedule", sched.Name).
		Int("target", req.Target).
		Msg("Scheduled run starting")

	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()

	run, err := s.runs.StartAndWait(ctx, req)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("schedule", sched.Name).
			Msg("Scheduled run failed")
		return
	}

	s.logger.Info().
		Str("schedule", sched.Name).
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Msg("Scheduled run finished")

	if run.Status == models.RunStatusCompleted && s.mailer != nil && s.mailer.Enabled() {
		if err := s.mailer.SendDigest(context.Background(), run); err != nil {
			s.logger.Warn().
				Err(err).
				Str("run_id", run.ID).
				Msg("Failed to send scheduled run digest")
		}
	}
}

// Stop halts the cron loop and waits for in-flight jobs.
func (s *Service) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
