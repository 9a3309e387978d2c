package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

func sampleResult() *models.RunResult {
	return &models.RunResult{
		RunID:   "run-1",
		Success: true,
		Leads: []models.Lead{
			{
				Name:           "Jordan Smith",
				Title:          "Head of Finance",
				Company:        "Initech",
				ProfileURL:     "https://network.example.com/in/jordan-smith",
				IntentSignal:   "asked how pricing works for multi-entity setups",
				IntentScore:    85,
				Priority:       models.PriorityHot,
				SourcePlatform: models.PlatformLinkedIn,
				SourceURL:      "https://network.example.com/company/rivalco/posts/101",
			},
			{
				Name:           "Sam Lee",
				Company:        "Globex",
				IntentSignal:   "raised a seed round for payroll tooling",
				IntentScore:    70,
				Priority:       models.PriorityWarm,
				SourcePlatform: models.PlatformNews,
			},
			{
				Name:           "Alex Chen",
				IntentScore:    40,
				Priority:       models.PriorityCold,
				SourcePlatform: models.PlatformCommunity,
			},
		},
		TierCounts:        map[string]int{"hot": 1, "warm": 1, "cold": 1},
		PlatformCounts:    map[string]int{"linkedin": 1, "news": 1, "community": 1},
		DuplicatesRemoved: 2,
		Rounds:            1,
		Elapsed:           90 * time.Second,
		Errors:            []string{"news worker failed at step fetch: timeout"},
	}
}

func TestRenderMarkdown_SectionsAndOrder(t *testing.T) {
	svc := NewService(common.GetLogger())

	markdown := svc.RenderMarkdown(sampleResult())

	assert.Contains(t, markdown, "# Lead Report: run-1")
	assert.Contains(t, markdown, "3 leads, 2 duplicates removed, 1 compensation rounds")

	hot := strings.Index(markdown, "## Hot (1)")
	warm := strings.Index(markdown, "## Warm (1)")
	cold := strings.Index(markdown, "## Cold (1)")
	require.True(t, hot >= 0 && warm >= 0 && cold >= 0)
	assert.Less(t, hot, warm)
	assert.Less(t, warm, cold)

	assert.Contains(t, markdown, "### Jordan Smith, Head of Finance at Initech")
	assert.Contains(t, markdown, "- Signal: asked how pricing works")
	assert.Contains(t, markdown, "## Worker Errors")
	assert.Contains(t, markdown, "news worker failed at step fetch")
}

func TestRenderMarkdown_SkipsEmptyTiers(t *testing.T) {
	svc := NewService(common.GetLogger())

	result := sampleResult()
	result.Leads = result.Leads[:1]
	result.Errors = nil

	markdown := svc.RenderMarkdown(result)
	assert.Contains(t, markdown, "## Hot (1)")
	assert.NotContains(t, markdown, "## Warm")
	assert.NotContains(t, markdown, "## Cold")
	assert.NotContains(t, markdown, "## Worker Errors")
}

func TestRenderJSON_SummaryAndLeads(t *testing.T) {
	svc := NewService(common.GetLogger())

	data, err := svc.RenderJSON(sampleResult())
	require.NoError(t, err)

	var payload struct {
		Summary models.RunSummary `json:"summary"`
		Leads   []models.Lead     `json:"leads"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "run-1", payload.Summary.RunID)
	assert.Equal(t, 3, payload.Summary.LeadCount)
	assert.Len(t, payload.Leads, 3)
}

func TestRenderCSV_OneRowPerLead(t *testing.T) {
	svc := NewService(common.GetLogger())

	data, err := svc.RenderCSV(sampleResult())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "name", records[0][0])
	assert.Equal(t, "Jordan Smith", records[1][0])
	assert.Equal(t, "85", records[1][5])
	assert.Equal(t, "hot", records[1][6])
	assert.Equal(t, "linkedin", records[1][8])
}

func TestRenderHTML_StandalonePage(t *testing.T) {
	svc := NewService(common.GetLogger())

	data, err := svc.RenderHTML(sampleResult())
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "<!DOCTYPE html>")
	assert.Contains(t, html, "<title>Lead Report: run-1</title>")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "Jordan Smith")
}

func TestRenderPDF_ProducesDocument(t *testing.T) {
	svc := NewService(common.GetLogger())

	data, err := svc.RenderPDF(sampleResult())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Greater(t, len(data), 1000)
}

func TestDecodeContentText(t *testing.T) {
	content := `BT /F1 12 Tf (Acme raises) Tj [(\$4.5M )(seed round)] TJ ET`
	text := decodeContentText(content)
	assert.Contains(t, text, "Acme raises")
	assert.Contains(t, text, "seed round")
}
