package mailer

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/export"
)

func digestConfig() *common.DigestConfig {
	return &common.DigestConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		From:     "venator@example.com",
		To:       []string{"sales@example.com"},
	}
}

func completedRun() *models.Run {
	now := time.Now()
	return &models.Run{
		ID: "run-1",
		Request: models.RunRequest{
			Product: "AI expense tracking for freelancers",
			Target:  5,
		},
		Status:      models.RunStatusCompleted,
		CompletedAt: &now,
		Result: &models.RunResult{
			RunID:   "run-1",
			Success: true,
			Leads: []models.Lead{{
				Name:           "Jordan Smith",
				IntentScore:    85,
				IntentSignal:   "asked for recommendations",
				Priority:       models.PriorityHot,
				SourcePlatform: models.PlatformCommunity,
			}},
		},
	}
}

func newTestMailer(cfg *common.DigestConfig, capture *[][]byte) *Service {
	svc := NewService(cfg, export.NewService(common.GetLogger()), common.GetLogger())
	svc.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		*capture = append(*capture, msg)
		return nil
	}
	return svc
}

func TestSendDigest_BuildsMultipartMessage(t *testing.T) {
	var sent [][]byte
	svc := newTestMailer(digestConfig(), &sent)

	require.NoError(t, svc.SendDigest(context.Background(), completedRun()))
	require.Len(t, sent, 1)

	msg := string(sent[0])
	assert.Contains(t, msg, "From: venator@example.com")
	assert.Contains(t, msg, "To: sales@example.com")
	assert.Contains(t, msg, `Subject: Lead report: 1 leads for "AI expense tracking for freelancers"`)
	assert.Contains(t, msg, "multipart/mixed")
	assert.Contains(t, msg, "multipart/alternative")
	assert.Contains(t, msg, "text/plain")
	assert.Contains(t, msg, "text/html")
	assert.NotContains(t, msg, "application/pdf")
}

func TestSendDigest_AttachesPDFWhenConfigured(t *testing.T) {
	cfg := digestConfig()
	cfg.AttachPDF = true

	var sent [][]byte
	svc := newTestMailer(cfg, &sent)

	require.NoError(t, svc.SendDigest(context.Background(), completedRun()))
	require.Len(t, sent, 1)

	msg := string(sent[0])
	assert.Contains(t, msg, "application/pdf")
	assert.Contains(t, msg, `filename="leads-run-1.pdf"`)
}

func TestSendDigest_DisabledIsNoop(t *testing.T) {
	cfg := digestConfig()
	cfg.Enabled = false

	var sent [][]byte
	svc := newTestMailer(cfg, &sent)

	require.NoError(t, svc.SendDigest(context.Background(), completedRun()))
	assert.Empty(t, sent)
}

func TestSendDigest_NoResultIsError(t *testing.T) {
	var sent [][]byte
	svc := newTestMailer(digestConfig(), &sent)

	run := completedRun()
	run.Result = nil
	assert.Error(t, svc.SendDigest(context.Background(), run))
}

func TestEncodeBase64WithLineBreaks_WrapsAt76(t *testing.T) {
	encoded := encodeBase64WithLineBreaks([]byte(strings.Repeat("a", 200)))
	for _, line := range strings.Split(encoded, "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}
