package workers

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/workers/community"
	"github.com/ternarybob/venator/internal/workers/engagement"
	"github.com/ternarybob/venator/internal/workers/news"
)

// UpdateFunc receives progress lines from a running worker, tagged with the
// worker's platform.
type UpdateFunc func(platform, message string)

// Provider wires the configured source adapters into workers. Every worker
// it hands out is a fresh instance; retried workers never share state with
// the attempt that failed.
type Provider struct {
	community  interfaces.CommunitySource
	news       interfaces.NewsSource
	engagement interfaces.EngagementSource
	search     interfaces.WebSearcher
	classifier interfaces.Classifier
	baseURL    string
	timeout    time.Duration
	logger     arbor.ILogger
	onUpdate   UpdateFunc
}

// Compile-time assertion
var _ interfaces.WorkerProvider = (*Provider)(nil)

// NewProvider builds the worker provider from config plus the shared
// adapters. onUpdate may be nil.
func NewProvider(
	cfg *common.Config,
	communitySource interfaces.CommunitySource,
	newsSource interfaces.NewsSource,
	engagementSource interfaces.EngagementSource,
	search interfaces.WebSearcher,
	classifier interfaces.Classifier,
	logger arbor.ILogger,
	onUpdate UpdateFunc,
) *Provider {
	return &Provider{
		community:  communitySource,
		news:       newsSource,
		engagement: engagementSource,
		search:     search,
		classifier: classifier,
		baseURL:    cfg.Sources.LinkedInBaseURL,
		timeout:    cfg.StepTimeoutDuration(),
		logger:     logger,
		onUpdate:   onUpdate,
	}
}

// ForRun binds a product description and strategy to a WorkerSet.
func (p *Provider) ForRun(product string, strategy *models.Strategy) interfaces.WorkerSet {
	return &runSet{provider: p, product: product, strategy: strategy}
}

// runSet constructs workers for one run.
type runSet struct {
	provider *Provider
	product  string
	strategy *models.Strategy
}

var _ interfaces.WorkerSet = (*runSet)(nil)

func (s *runSet) Community(queries []string) interfaces.SourceWorker {
	p := s.provider
	return community.NewWorker(queries, p.community, p.classifier,
		p.timeout, p.logger, s.relay(models.PlatformCommunity))
}

func (s *runSet) News(pages []int) interfaces.SourceWorker {
	p := s.provider
	return news.NewWorker(s.strategy.NewsFocus, s.product, pages, s.strategy.TargetTitles,
		p.news, p.search, p.classifier,
		p.timeout, p.logger, s.relay(models.PlatformNews))
}

func (s *runSet) Competitor(names []string) interfaces.SourceWorker {
	p := s.provider
	return engagement.NewWorker(names, s.product, p.baseURL,
		p.engagement, p.search, p.classifier,
		p.timeout, p.logger, s.relay(models.PlatformLinkedIn))
}

// relay curries the provider's update callback with the worker's platform.
func (s *runSet) relay(platform string) func(string) {
	if s.provider.onUpdate == nil {
		return nil
	}
	return func(message string) {
		s.provider.onUpdate(platform, message)
	}
}
