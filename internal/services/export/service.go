package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// tierOrder fixes the section order of the digest.
var tierOrder = []models.Priority{models.PriorityHot, models.PriorityWarm, models.PriorityCold}

// Service renders a run result in the export formats the API and the mail
// digest serve. Markdown is the canonical form; HTML and PDF derive from it.
type Service struct {
	logger arbor.ILogger
}

var _ interfaces.ExportService = (*Service)(nil)

// NewService creates the export service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// RenderMarkdown builds the lead digest document.
func (s *Service) RenderMarkdown(result *models.RunResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("# Lead Report: %s\n\n", result.RunID))
	b.WriteString(fmt.Sprintf("%d leads", len(result.Leads)))
	if result.DuplicatesRemoved > 0 {
		b.WriteString(fmt.Sprintf(", %d duplicates removed", result.DuplicatesRemoved))
	}
	if result.Rounds > 0 {
		b.WriteString(fmt.Sprintf(", %d compensation rounds", result.Rounds))
	}
	b.WriteString(fmt.Sprintf(". Completed in %s.\n\n", result.Elapsed.Round(time.Millisecond)))

	for _, tier := range tierOrder {
		var tierLeads []models.Lead
		for _, lead := range result.Leads {
			if lead.Priority == tier {
				tierLeads = append(tierLeads, lead)
			}
		}
		if len(tierLeads) == 0 {
			continue
		}

		b.WriteString(fmt.Sprintf("## %s (%d)\n\n", tierHeading(tier), len(tierLeads)))
		for _, lead := range tierLeads {
			writeLead(&b, &lead)
		}
	}

	if len(result.Errors) > 0 {
		b.WriteString("## Worker Errors\n\n")
		for _, errText := range result.Errors {
			b.WriteString(fmt.Sprintf("- %s\n", errText))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeLead(b *strings.Builder, lead *models.Lead) {
	heading := lead.Name
	if lead.Title != "" {
		heading += ", " + lead.Title
	}
	if lead.Company != "" {
		heading += " at " + lead.Company
	}
	b.WriteString(fmt.Sprintf("### %s\n\n", heading))

	b.WriteString(fmt.Sprintf("- Score: %d\n", lead.IntentScore))
	if lead.IntentSignal != "" {
		b.WriteString(fmt.Sprintf("- Signal: %s\n", lead.IntentSignal))
	}
	b.WriteString(fmt.Sprintf("- Source: %s", lead.SourcePlatform))
	if lead.SourceURL != "" {
		b.WriteString(fmt.Sprintf(" (%s)", lead.SourceURL))
	}
	b.WriteString("\n")
	if lead.ProfileURL != "" {
		b.WriteString(fmt.Sprintf("- Profile: %s\n", lead.ProfileURL))
	}
	if lead.Email != "" {
		b.WriteString(fmt.Sprintf("- Email: %s\n", lead.Email))
	}
	b.WriteString("\n")
}

func tierHeading(tier models.Priority) string {
	switch tier {
	case models.PriorityHot:
		return "Hot"
	case models.PriorityWarm:
		return "Warm"
	default:
		return "Cold"
	}
}

// RenderJSON marshals leads with the run summary attached.
func (s *Service) RenderJSON(result *models.RunResult) ([]byte, error) {
	payload := struct {
		Summary *models.RunSummary `json:"summary"`
		Leads   []models.Lead      `json:"leads"`
	}{
		Summary: result.Summary(),
		Leads:   result.Leads,
	}
	return json.MarshalIndent(payload, "", "  ")
}

// RenderCSV writes one row per lead.
func (s *Service) RenderCSV(result *models.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"name", "title", "company", "email", "profile_url", "intent_score", "priority", "intent_signal", "source_platform", "source_url"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, lead := range result.Leads {
		row := []string{
			lead.Name,
			lead.Title,
			lead.Company,
			lead.Email,
			lead.ProfileURL,
			strconv.Itoa(lead.IntentScore),
			string(lead.Priority),
			lead.IntentSignal,
			lead.SourcePlatform,
			lead.SourceURL,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderHTML converts the markdown digest to a standalone HTML page.
func (s *Service) RenderHTML(result *models.RunResult) ([]byte, error) {
	markdown := s.RenderMarkdown(result)

	var body bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to convert digest to html: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString(fmt.Sprintf("<title>Lead Report: %s</title>\n", result.RunID))
	page.WriteString("<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem;color:#1a1a1a}h1{border-bottom:2px solid #ddd}h3{margin-bottom:0.2rem}ul{margin-top:0.2rem}</style>\n")
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	return page.Bytes(), nil
}

// RenderPDF converts the markdown digest to a PDF byte slice by walking
// the markdown AST into fpdf primitives.
func (s *Service) RenderPDF(result *models.RunResult) ([]byte, error) {
	markdown := s.RenderMarkdown(result)
	source := []byte(markdown)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	root := goldmark.New().Parser().Parse(text.NewReader(source))
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			size := 20 - float64(node.Level)*2
			if size < 11 {
				size = 11
			}
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(0, 8, nodeText(node, source), "", "L", false)
			pdf.Ln(2)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, nodeText(node, source), "", "L", false)
			pdf.Ln(2)
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, "- "+nodeText(node, source), "", "L", false)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk digest: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// nodeText flattens the text content of a markdown node.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
