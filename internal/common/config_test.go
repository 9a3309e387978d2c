package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "2m", config.Engine.StepTimeout)
	assert.GreaterOrEqual(t, config.Engine.WorkerBuffer, 5)
	assert.Equal(t, LLMProviderClaude, config.LLM.DefaultProvider)
	assert.Equal(t, "reddit", config.Sources.CommunityProvider)
	assert.False(t, config.Digest.Enabled)
}

func TestLoadFromFiles_Override(t *testing.T) {
	dir := t.TempDir()

	base := filepath.Join(dir, "base.toml")
	err := os.WriteFile(base, []byte(`
environment = "production"

[server]
port = 9000

[engine]
step_timeout = "45s"
worker_buffer = 8
`), 0644)
	require.NoError(t, err)

	override := filepath.Join(dir, "override.toml")
	err = os.WriteFile(override, []byte(`
[server]
port = 9001
`), 0644)
	require.NoError(t, err)

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, 9001, config.Server.Port, "later file should win")
	assert.Equal(t, 45*time.Second, config.StepTimeoutDuration())
	assert.Equal(t, 8, config.Engine.WorkerBuffer)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("VENATOR_SERVER_PORT", "7070")
	t.Setenv("VENATOR_LOG_LEVEL", "debug")
	t.Setenv("VENATOR_LLM_DEFAULT_PROVIDER", "offline")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, 7070, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, LLMProviderOffline, config.LLM.DefaultProvider)
}

func TestValidate_ClampsWorkerBuffer(t *testing.T) {
	config := NewDefaultConfig()
	config.Engine.WorkerBuffer = 1

	err := config.Validate()
	require.NoError(t, err)
	assert.Equal(t, 5, config.Engine.WorkerBuffer)
}

func TestValidate_RejectsBadProvider(t *testing.T) {
	config := NewDefaultConfig()
	config.LLM.DefaultProvider = "watson"

	err := config.Validate()
	assert.Error(t, err)
}

func TestValidate_RejectsBadStepTimeout(t *testing.T) {
	config := NewDefaultConfig()
	config.Engine.StepTimeout = "soon"

	err := config.Validate()
	assert.Error(t, err)
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"valid hourly", "0 * * * *", false},
		{"valid every 15 minutes", "*/15 * * * *", false},
		{"every minute rejected", "* * * * *", true},
		{"sub five minute interval rejected", "*/2 * * * *", true},
		{"garbage rejected", "not a cron", true},
		{"too few fields", "0 *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Schedules(t *testing.T) {
	config := NewDefaultConfig()
	config.Schedules = []ScheduleConfig{
		{Name: "nightly", Cron: "0 2 * * *", Profile: "./profiles/acme.yaml", Target: 20, Enabled: true},
	}
	require.NoError(t, config.Validate())

	config.Schedules[0].Profile = ""
	assert.Error(t, config.Validate())

	config.Schedules[0].Profile = "./profiles/acme.yaml"
	config.Schedules[0].Cron = "* * * * *"
	assert.Error(t, config.Validate())

	// Disabled schedules are not validated
	config.Schedules[0].Enabled = false
	assert.NoError(t, config.Validate())
}

func TestIsProduction(t *testing.T) {
	config := NewDefaultConfig()
	assert.False(t, config.IsProduction())

	config.Environment = "production"
	assert.True(t, config.IsProduction())

	config.Environment = " PROD "
	assert.True(t, config.IsProduction())
}
