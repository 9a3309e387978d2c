package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
)

// OfflineService rejects every model call. Running with it exercises the
// deterministic fallbacks everywhere: template strategies from the planner,
// fail-open seller filtering, title-match decision makers.
type OfflineService struct {
	logger arbor.ILogger
}

var _ interfaces.LLMService = (*OfflineService)(nil)

// NewOfflineService creates the no-op LLM service.
func NewOfflineService(logger arbor.ILogger) *OfflineService {
	logger.Info().Msg("LLM calls disabled, deterministic fallbacks active")
	return &OfflineService{logger: logger}
}

func (s *OfflineService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("llm disabled in offline mode")
}

func (s *OfflineService) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *OfflineService) GetMode() interfaces.LLMMode {
	return interfaces.LLMModeOffline
}

func (s *OfflineService) Close() error {
	return nil
}
