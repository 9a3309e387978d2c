package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
)

// Text show operators in a content stream: "(...) Tj", "(...) '", and
// "[...] TJ" arrays.
var (
	tjPattern      = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*(?:Tj|')`)
	tjArrayPattern = regexp.MustCompile(`\[((?:\\.|[^\]])*)\]\s*TJ`)
	tjArrayString  = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
)

// Extractor pulls text out of PDF documents with pdfcpu. News listings
// occasionally link press releases as PDFs; the news worker reads them
// through this instead of skipping the article.
type Extractor struct {
	logger  arbor.ILogger
	tempDir string
}

var _ interfaces.PDFExtractor = (*Extractor)(nil)

// NewExtractor creates the PDF extractor.
func NewExtractor(logger arbor.ILogger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "venator-pdf")
	os.MkdirAll(tempDir, 0755)

	return &Extractor{
		logger:  logger,
		tempDir: tempDir,
	}
}

// PageCount reports the number of pages without extracting text.
func (e *Extractor) PageCount(ctx context.Context, data []byte) (int, error) {
	tempFile, cleanup, err := e.writeTemp(data)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return 0, fmt.Errorf("failed to read pdf: %w", err)
	}
	return pdfCtx.PageCount, nil
}

// ExtractText returns the text content of the document. pdfcpu extracts
// raw content streams; the text show operators are decoded from them.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	tempFile, cleanup, err := e.writeTemp(data)
	if err != nil {
		return "", err
	}
	defer cleanup()

	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	outDir, err := os.MkdirTemp(e.tempDir, "content-")
	if err != nil {
		return "", fmt.Errorf("failed to create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract pdf content: %w", err)
	}

	var b strings.Builder
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		text := decodeContentText(string(content))
		if text != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(text)
		}
	}

	e.logger.Debug().
		Int("page_count", pdfCtx.PageCount).
		Int("chars", b.Len()).
		Msg("PDF text extracted")

	return b.String(), nil
}

func (e *Extractor) writeTemp(data []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.tempDir, "extract-*.pdf")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp pdf: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}
	f.Close()
	return name, func() { os.Remove(name) }, nil
}

// decodeContentText pulls the string arguments of text show operators out
// of a content stream, in stream order.
func decodeContentText(content string) string {
	var parts []string

	for _, match := range tjPattern.FindAllStringSubmatch(content, -1) {
		if text := unescapePDFString(match[1]); text != "" {
			parts = append(parts, text)
		}
	}
	for _, match := range tjArrayPattern.FindAllStringSubmatch(content, -1) {
		var run strings.Builder
		for _, inner := range tjArrayString.FindAllStringSubmatch(match[1], -1) {
			run.WriteString(unescapePDFString(inner[1]))
		}
		if run.Len() > 0 {
			parts = append(parts, run.String())
		}
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(
		`\(`, "(",
		`\)`, ")",
		`\\`, `\`,
		`\n`, "\n",
		`\r`, "",
		`\t`, " ",
	)
	return replacer.Replace(s)
}
