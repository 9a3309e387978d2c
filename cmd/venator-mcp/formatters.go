package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/venator/internal/models"
)

// formatLeadRecords formats cross-run lead search results as markdown
func formatLeadRecords(query string, records []models.LeadRecord) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Leads matching \"%s\" (%d results)\n\n", query, len(records)))

	if len(records) == 0 {
		sb.WriteString("No leads found.\n")
		return sb.String()
	}

	for i, rec := range records {
		lead := rec.Lead
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, lead.Name))
		writeLeadDetails(&sb, lead)
		sb.WriteString(fmt.Sprintf("**Run:** %s (stored %s)\n", rec.RunID, rec.StoredAt.Format(time.RFC3339)))
		sb.WriteString("\n---\n\n")
	}

	return sb.String()
}

// formatRun formats a single run as markdown
func formatRun(run *models.Run) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Run %s\n\n", run.ID))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", run.Status))
	sb.WriteString(fmt.Sprintf("**Product:** %s\n", run.Request.Product))
	sb.WriteString(fmt.Sprintf("**Target:** %d leads\n", run.Request.Target))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n", run.CreatedAt.Format(time.RFC3339)))
	if run.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("**Completed:** %s\n", run.CompletedAt.Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	if run.Result == nil {
		sb.WriteString("No result yet.\n")
		return sb.String()
	}

	r := run.Result
	sb.WriteString("## Result\n\n")
	sb.WriteString(fmt.Sprintf("- Leads: %d\n", len(r.Leads)))
	sb.WriteString(fmt.Sprintf("- Duplicates removed: %d\n", r.DuplicatesRemoved))
	sb.WriteString(fmt.Sprintf("- Compensation rounds: %d\n", r.Rounds))
	sb.WriteString(fmt.Sprintf("- Elapsed: %s\n", r.Elapsed.Round(time.Millisecond)))
	for tier, count := range r.TierCounts {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", tier, count))
	}
	if len(r.Errors) > 0 {
		sb.WriteString("\n## Worker Errors\n\n")
		for _, e := range r.Errors {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
	}

	return sb.String()
}

// formatRunLeads formats a run's lead list as markdown
func formatRunLeads(runID string, leads []models.Lead) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Leads for run %s (%d leads)\n\n", runID, len(leads)))

	if len(leads) == 0 {
		sb.WriteString("No leads stored for this run.\n")
		return sb.String()
	}

	for i, lead := range leads {
		sb.WriteString(fmt.Sprintf("### %d. %s\n", i+1, lead.Name))
		writeLeadDetails(&sb, lead)
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatRunList formats recent runs as markdown
func formatRunList(runs []*models.Run, limit int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Recent Runs (%d of %d)\n\n", len(runs), limit))

	if len(runs) == 0 {
		sb.WriteString("No runs found.\n")
		return sb.String()
	}

	for i, run := range runs {
		leadCount := 0
		if run.Result != nil {
			leadCount = len(run.Result.Leads)
		}
		sb.WriteString(fmt.Sprintf("%d. **%s** (%s)\n", i+1, run.ID, run.Status))
		sb.WriteString(fmt.Sprintf("   Product: %s\n", truncate(run.Request.Product, 80)))
		sb.WriteString(fmt.Sprintf("   Created: %s, leads: %d\n\n", run.CreatedAt.Format(time.RFC3339), leadCount))
	}

	return sb.String()
}

func writeLeadDetails(sb *strings.Builder, lead models.Lead) {
	if lead.Title != "" || lead.Company != "" {
		sb.WriteString(fmt.Sprintf("**Role:** %s at %s\n", orDash(lead.Title), orDash(lead.Company)))
	}
	sb.WriteString(fmt.Sprintf("**Score:** %d (%s)\n", lead.IntentScore, lead.Priority))
	sb.WriteString(fmt.Sprintf("**Signal:** %s\n", lead.IntentSignal))
	sb.WriteString(fmt.Sprintf("**Platform:** %s\n", lead.SourcePlatform))
	if lead.ProfileURL != "" {
		sb.WriteString(fmt.Sprintf("**Profile:** %s\n", lead.ProfileURL))
	}
	if lead.SourceURL != "" {
		sb.WriteString(fmt.Sprintf("**Source:** %s\n", lead.SourceURL))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
