package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// Service is the LLM-backed planner. It turns a product description into a
// search strategy and, during compensation, decides which sources are worth
// another pass. Every method returns an error when the model call or parse
// fails; the supervisor applies the deterministic fallbacks in this package
// rather than aborting the run.
type Service struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.Planner = (*Service)(nil)

// NewService creates a planner backed by the given LLM service.
func NewService(llm interfaces.LLMService, logger arbor.ILogger) *Service {
	return &Service{
		llm:    llm,
		logger: logger,
	}
}

// InitialStrategy derives the run strategy from the product description.
func (s *Service) InitialStrategy(ctx context.Context, product string, target int, icp string) (*models.Strategy, error) {
	prompt := initialStrategyPrompt(product, target, icp)

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("strategy planning failed: %w", err)
	}

	var strategy models.Strategy
	if err := decodeJSONResponse(response, &strategy); err != nil {
		return nil, fmt.Errorf("failed to parse strategy response: %w", err)
	}

	strategy.CommunityQueries = cleanList(strategy.CommunityQueries)
	strategy.Competitors = cleanList(strategy.Competitors)
	strategy.TargetTitles = cleanList(strategy.TargetTitles)

	s.logger.Debug().
		Int("queries", len(strategy.CommunityQueries)).
		Int("competitors", len(strategy.Competitors)).
		Str("news_focus", strategy.NewsFocus).
		Msg("Initial strategy planned")

	return &strategy, nil
}

// ChooseCompensation returns the ordered source tags worth another pass. The
// returned order is normalized to the fixed priority news > competitor >
// community regardless of how the model ordered them. An empty slice means
// stop.
func (s *Service) ChooseCompensation(ctx context.Context, usage models.ResourceUsage, history []models.CompensationRound) ([]models.StrategyTag, error) {
	prompt := compensationPrompt(usage, history)

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("compensation planning failed: %w", err)
	}

	var raw []string
	if err := decodeJSONResponse(response, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse compensation response: %w", err)
	}

	return normalizeTags(raw), nil
}

// MoreCompetitors proposes competitor names not present in exclude.
func (s *Service) MoreCompetitors(ctx context.Context, product string, exclude []string) ([]string, error) {
	prompt := moreCompetitorsPrompt(product, exclude)

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("competitor generation failed: %w", err)
	}

	var names []string
	if err := decodeJSONResponse(response, &names); err != nil {
		return nil, fmt.Errorf("failed to parse competitor response: %w", err)
	}

	return excludeFrom(cleanList(names), exclude), nil
}

// MoreCommunityQueries proposes community search queries not present in
// exclude.
func (s *Service) MoreCommunityQueries(ctx context.Context, product string, exclude []string) ([]string, error) {
	prompt := moreQueriesPrompt(product, exclude)

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: plannerSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}

	var queries []string
	if err := decodeJSONResponse(response, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	return excludeFrom(cleanList(queries), exclude), nil
}

// decodeJSONResponse strips markdown code fences the model may wrap around
// its output, then unmarshals into out.
func decodeJSONResponse(response string, out interface{}) error {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		lines := strings.Split(cleaned, "\n")
		var jsonLines []string
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			jsonLines = append(jsonLines, line)
		}
		cleaned = strings.TrimSpace(strings.Join(jsonLines, "\n"))
	}

	if cleaned == "" {
		return fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// normalizeTags filters unknown tags, deduplicates, and orders the survivors
// by the fixed compensation priority.
func normalizeTags(raw []string) []models.StrategyTag {
	present := make(map[models.StrategyTag]bool)
	for _, r := range raw {
		tag := models.StrategyTag(strings.ToLower(strings.TrimSpace(r)))
		if models.ValidTag(tag) {
			present[tag] = true
		}
	}

	var tags []models.StrategyTag
	for _, tag := range []models.StrategyTag{models.TagNews, models.TagCompetitor, models.TagCommunity} {
		if present[tag] {
			tags = append(tags, tag)
		}
	}
	return tags
}

// cleanList trims entries and drops empties and duplicates, preserving order.
func cleanList(items []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

// excludeFrom drops items present in exclude (case-insensitive).
func excludeFrom(items, exclude []string) []string {
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excluded[strings.ToLower(strings.TrimSpace(e))] = true
	}
	var out []string
	for _, item := range items {
		if !excluded[strings.ToLower(item)] {
			out = append(out, item)
		}
	}
	return out
}
