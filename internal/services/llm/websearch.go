package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"google.golang.org/genai"
)

// WebSearch answers queries through Gemini with GoogleSearch grounding.
// The grounding chunks become the search results; the generated text is
// attached as the snippet of the first result.
type WebSearch struct {
	gemini *GeminiService
	logger arbor.ILogger
}

var _ interfaces.WebSearcher = (*WebSearch)(nil)

// NewWebSearch creates the grounded search adapter on an existing Gemini
// service so both share one API key and rate limiter.
func NewWebSearch(gemini *GeminiService, logger arbor.ILogger) *WebSearch {
	return &WebSearch{gemini: gemini, logger: logger}
}

// Search runs one grounded query and returns the sources Gemini cited.
func (s *WebSearch) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := s.gemini.Limiter().Wait(ctx); err != nil {
		return nil, err
	}

	searchTool := &genai.Tool{GoogleSearch: &genai.GoogleSearch{}}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{searchTool},
	}

	s.logger.Debug().Str("query", query).Msg("Executing grounded web search")

	resp, err := s.gemini.Client().Models.GenerateContent(
		ctx,
		s.gemini.Model(),
		[]*genai.Content{
			genai.NewContentFromText(query, genai.RoleUser),
		},
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	var results []models.SearchResult
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		gm := resp.Candidates[0].GroundingMetadata
		for _, chunk := range gm.GroundingChunks {
			if chunk.Web != nil {
				results = append(results, models.SearchResult{
					Title: chunk.Web.Title,
					URL:   chunk.Web.URI,
				})
			}
		}
	}
	if len(results) > 0 {
		if text := resp.Text(); text != "" {
			results[0].Snippet = text
		}
	}

	s.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Web search completed")

	return results, nil
}
