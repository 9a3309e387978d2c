package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

type recordingStarter struct {
	mu   sync.Mutex
	reqs []models.RunRequest
	run  *models.Run
}

func (r *recordingStarter) StartAndWait(ctx context.Context, req models.RunRequest) (*models.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return r.run, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []*models.Run
}

func (m *recordingMailer) Enabled() bool { return true }

func (m *recordingMailer) SendDigest(ctx context.Context, run *models.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, run)
	return nil
}

func writeProfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	content := "name: expense-tool\nproduct: AI expense tracking for freelancers\ntarget: 5\nicp:\n  company_size: 1-10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStart_RegistersOnlyValidEnabledSchedules(t *testing.T) {
	schedules := []common.ScheduleConfig{
		{Name: "hourly", Cron: "0 * * * *", Profile: "profiles/a.yaml", Enabled: true},
		{Name: "disabled", Cron: "0 * * * *", Profile: "profiles/b.yaml", Enabled: false},
		{Name: "bad-cron", Cron: "not a cron", Profile: "profiles/c.yaml", Enabled: true},
	}

	svc := NewService(schedules, &recordingStarter{}, nil, common.GetLogger())
	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Equal(t, 1, svc.EntryCount())
}

func TestFire_RunsProfileAndSendsDigest(t *testing.T) {
	starter := &recordingStarter{
		run: &models.Run{
			ID:     "run-1",
			Status: models.RunStatusCompleted,
			Result: &models.RunResult{RunID: "run-1", Success: true},
		},
	}
	mailer := &recordingMailer{}

	svc := NewService(nil, starter, mailer, common.GetLogger())
	svc.fire(common.ScheduleConfig{
		Name:    "nightly",
		Profile: writeProfile(t),
		Target:  8,
	})

	require.Len(t, starter.reqs, 1)
	assert.Equal(t, "AI expense tracking for freelancers", starter.reqs[0].Product)
	// Schedule target overrides the profile target.
	assert.Equal(t, 8, starter.reqs[0].Target)
	assert.Equal(t, "1-10", starter.reqs[0].ICP["company_size"])

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "run-1", mailer.sent[0].ID)
}

func TestFire_NoDigestForFailedRun(t *testing.T) {
	starter := &recordingStarter{
		run: &models.Run{ID: "run-2", Status: models.RunStatusFailed},
	}
	mailer := &recordingMailer{}

	svc := NewService(nil, starter, mailer, common.GetLogger())
	svc.fire(common.ScheduleConfig{Name: "nightly", Profile: writeProfile(t)})

	assert.Len(t, starter.reqs, 1)
	assert.Empty(t, mailer.sent)
}

func TestFire_MissingProfileSkipsRun(t *testing.T) {
	starter := &recordingStarter{}

	svc := NewService(nil, starter, nil, common.GetLogger())
	svc.fire(common.ScheduleConfig{Name: "nightly", Profile: "/does/not/exist.yaml"})

	assert.Empty(t, starter.reqs)
}
