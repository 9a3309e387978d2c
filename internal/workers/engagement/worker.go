package engagement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/workers/workerutil"
)

const (
	// maxPostsPerOrg caps recent posts fetched per competitor page.
	maxPostsPerOrg = 5

	// defaultIntentScore for engagement leads: warm.
	defaultIntentScore = 65

	// excerptLen bounds the engagement excerpt quoted in the signal.
	excerptLen = 120
)

// Worker mines the people engaging with competitor company pages. Someone
// commenting on a competitor's posts is already in-market; the worker
// surfaces them as warm displacement leads.
type Worker struct {
	competitors []string
	product     string
	baseURL     string
	source      interfaces.EngagementSource
	search      interfaces.WebSearcher
	filter      *workerutil.SellerFilter
	timeout     time.Duration
	logger      arbor.ILogger
	onUpdate    func(string)
}

// Compile-time assertion
var _ interfaces.SourceWorker = (*Worker)(nil)

// NewWorker creates an engagement worker for one invocation over the given
// competitor names. baseURL seeds the slug fallback when web search cannot
// resolve a company page.
func NewWorker(competitors []string, product, baseURL string, source interfaces.EngagementSource, search interfaces.WebSearcher, classifier interfaces.Classifier, timeout time.Duration, logger arbor.ILogger, onUpdate func(string)) *Worker {
	if baseURL == "" {
		baseURL = "https://www.linkedin.com"
	}
	return &Worker{
		competitors: competitors,
		product:     product,
		baseURL:     strings.TrimRight(baseURL, "/"),
		source:      source,
		search:      search,
		filter:      workerutil.NewSellerFilter(classifier, logger),
		timeout:     timeout,
		logger:      logger,
		onUpdate:    onUpdate,
	}
}

// Platform returns the source platform tag. The worker mines
// LinkedIn-shaped org pages, so its leads carry the linkedin tag.
func (w *Worker) Platform() string {
	return models.PlatformLinkedIn
}

// orgPage pairs a competitor name with its resolved page URL.
type orgPage struct {
	name string
	url  string
}

// Run executes resolve, fetch, extract and filter over the competitor list.
func (w *Worker) Run(ctx context.Context, target int) *models.WorkerResult {
	pipeline := workerutil.NewPipeline(w.Platform(), w.timeout, w.logger, w.onUpdate)

	if len(w.competitors) == 0 {
		pipeline.Log("no competitors in strategy, nothing to do")
		return pipeline.Succeed(nil)
	}

	// Resolve each competitor name to a company page URL.
	var orgs []orgPage
	err := pipeline.Step(ctx, "resolve", func(ctx context.Context) error {
		orgs = w.resolveOrgs(ctx)
		return nil
	})
	if err != nil {
		return pipeline.Fail(err, nil)
	}
	pipeline.Log("resolved %d competitor pages", len(orgs))

	// Fetch recent posts for every org, bounded parallel across orgs.
	postsByOrg := make([][]models.OrgPost, len(orgs))
	err = pipeline.Step(ctx, "fetch", func(ctx context.Context) error {
		var fetchErr error
		postsByOrg, fetchErr = w.fetchPosts(ctx, pipeline, orgs)
		return fetchErr
	})
	if err != nil {
		return pipeline.Fail(err, nil)
	}

	// Extract engagers, deduplicated per page by profile URL.
	var candidates []models.Lead
	err = pipeline.Step(ctx, "extract", func(ctx context.Context) error {
		for i, org := range orgs {
			if len(candidates) >= target {
				break
			}
			extracted := w.extractEngagers(ctx, pipeline, org, postsByOrg[i])
			candidates = append(candidates, extracted...)
		}
		return nil
	})
	if err != nil {
		return pipeline.Fail(err, candidates)
	}
	pipeline.Log("extracted %d engager candidates", len(candidates))

	// Filter sellers.
	err = pipeline.Step(ctx, "filter", func(ctx context.Context) error {
		buyers, warning := w.filter.Filter(ctx, candidates)
		if warning != "" {
			pipeline.Log("%s", warning)
		}
		candidates = buyers
		return nil
	})
	if err != nil {
		return pipeline.Fail(err, candidates)
	}

	if len(candidates) > target {
		candidates = candidates[:target]
	}
	return pipeline.Succeed(candidates)
}

// resolveOrgs maps every competitor name to a page URL: web search first,
// deterministic slug fallback when the search yields nothing usable.
func (w *Worker) resolveOrgs(ctx context.Context) []orgPage {
	orgs := make([]orgPage, len(w.competitors))

	_ = workerutil.ForEachBounded(ctx, workerutil.MaxParallel, len(w.competitors), func(ctx context.Context, i int) error {
		name := w.competitors[i]
		orgs[i] = orgPage{name: name, url: w.resolveOrgURL(ctx, name)}
		return nil
	})
	return orgs
}

func (w *Worker) resolveOrgURL(ctx context.Context, name string) string {
	if w.search != nil {
		results, err := w.search.Search(ctx, fmt.Sprintf("%s company page %s", name, w.baseURL))
		if err != nil {
			w.logger.Warn().Err(err).Str("competitor", name).Msg("Company page search failed, using slug")
		} else {
			for _, r := range results {
				if strings.Contains(r.URL, "/company/") {
					return r.URL
				}
			}
		}
	}
	return w.SlugURL(name)
}

// SlugURL builds the deterministic company page URL for a competitor name.
func (w *Worker) SlugURL(name string) string {
	return fmt.Sprintf("%s/company/%s", w.baseURL, slugify(name))
}

// fetchPosts loads recent posts for every org. Per-org failures are
// tolerated; the step fails only when every org fails.
func (w *Worker) fetchPosts(ctx context.Context, pipeline *workerutil.Pipeline, orgs []orgPage) ([][]models.OrgPost, error) {
	posts := make([][]models.OrgPost, len(orgs))
	errs := make([]error, len(orgs))

	_ = workerutil.ForEachBounded(ctx, workerutil.MaxParallel, len(orgs), func(ctx context.Context, i int) error {
		fetched, err := w.source.OrgPosts(ctx, orgs[i].url, maxPostsPerOrg)
		if err != nil {
			errs[i] = err
			w.logger.Warn().Err(err).Str("competitor", orgs[i].name).Msg("Org post fetch failed")
			return nil
		}
		posts[i] = fetched
		return nil
	})

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(orgs) && len(orgs) > 0 {
		return nil, fmt.Errorf("all %d org fetches failed: %w", failed, firstError(errs))
	}
	if failed > 0 {
		pipeline.Log("%d of %d org fetches failed", failed, len(orgs))
	}
	return posts, nil
}

// extractEngagers collects the people engaging with one org's posts,
// deduplicated per page by normalized profile URL.
func (w *Worker) extractEngagers(ctx context.Context, pipeline *workerutil.Pipeline, org orgPage, posts []models.OrgPost) []models.Lead {
	if len(posts) == 0 {
		return nil
	}

	engagersByPost := make([][]models.Engager, len(posts))
	var mu sync.Mutex
	failures := 0

	_ = workerutil.ForEachBounded(ctx, workerutil.MaxParallel, len(posts), func(ctx context.Context, i int) error {
		engagers, err := w.source.Engagers(ctx, posts[i].URL)
		if err != nil {
			mu.Lock()
			failures++
			mu.Unlock()
			w.logger.Warn().Err(err).Str("post", posts[i].URL).Msg("Engager fetch failed")
			return nil
		}
		engagersByPost[i] = engagers
		return nil
	})
	if failures > 0 {
		pipeline.Log("engager fetch failed for %d of %d posts on %s", failures, len(posts), org.name)
	}

	seen := make(map[string]bool)
	var leads []models.Lead
	for i, engagers := range engagersByPost {
		for _, engager := range engagers {
			if strings.TrimSpace(engager.Name) == "" {
				continue
			}
			key := models.NormalizeProfileURL(engager.ProfileURL)
			if key == "" {
				key = strings.ToLower(engager.Name)
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			leads = append(leads, models.Lead{
				Name:           engager.Name,
				Title:          engager.Title,
				Company:        engager.Company,
				ProfileURL:     engager.ProfileURL,
				IntentSignal:   engagementSignal(org.name, engager, posts[i]),
				IntentScore:    defaultIntentScore,
				SourcePlatform: w.Platform(),
				SourceURL:      posts[i].URL,
			})
		}
	}
	return leads
}

// engagementSignal names the competitor engaged and quotes a short excerpt.
func engagementSignal(competitor string, engager models.Engager, post models.OrgPost) string {
	excerpt := strings.TrimSpace(engager.Comment)
	if excerpt == "" {
		excerpt = strings.TrimSpace(post.Text)
	}
	excerpt = workerutil.Truncate(excerpt, excerptLen)
	if excerpt == "" {
		return fmt.Sprintf("Engaged with %s's page", competitor)
	}
	return fmt.Sprintf("Engaged with %s: %q", competitor, excerpt)
}

// slugify lowercases and replaces runs of non-alphanumerics with single
// hyphens.
func slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
