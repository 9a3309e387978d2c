package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// ExportService renders a completed run's leads in the formats the API and
// the mail digest serve.
type ExportService interface {
	// RenderMarkdown builds the lead digest document.
	RenderMarkdown(result *models.RunResult) string

	// RenderJSON marshals leads with the run summary attached.
	RenderJSON(result *models.RunResult) ([]byte, error)

	// RenderCSV writes one row per lead.
	RenderCSV(result *models.RunResult) ([]byte, error)

	// RenderHTML converts the markdown digest to a standalone HTML page.
	RenderHTML(result *models.RunResult) ([]byte, error)

	// RenderPDF converts the markdown digest to a PDF byte slice.
	RenderPDF(result *models.RunResult) ([]byte, error)
}

// PDFExtractor pulls the text out of a PDF document. News listings
// occasionally link press releases as PDFs; the news worker extracts them
// instead of skipping the article.
type PDFExtractor interface {
	// ExtractText returns the full text content of the document.
	ExtractText(ctx context.Context, data []byte) (string, error)

	// PageCount reports the number of pages without extracting text.
	PageCount(ctx context.Context, data []byte) (int, error)
}
