package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// NewLLMService creates the configured provider. The classifier return is
// nil in offline mode; classifier consumers fail open or fall back on nil.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, interfaces.Classifier, error) {
	logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Msg("Initializing LLM service")

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderClaude:
		service, err := NewClaudeService(&cfg.Claude, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Claude service: %w", err)
		}
		return service, service, nil

	case common.LLMProviderGemini:
		service, err := NewGeminiService(&cfg.Gemini, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Gemini service: %w", err)
		}
		return service, service, nil

	case common.LLMProviderOffline:
		return NewOfflineService(logger), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLM.DefaultProvider)
	}
}
