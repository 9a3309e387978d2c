package news

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/workers/workerutil"
)

const (
	// maxCompaniesPerRun caps how many funded companies one invocation
	// pursues decision makers for.
	maxCompaniesPerRun = 5

	// maxDecisionMakers bounds leads emitted per company.
	maxDecisionMakers = 3

	// defaultIntentScore for funding-signal leads: warm.
	defaultIntentScore = 75
)

// Worker mines funding news for companies that plausibly need the product,
// then surfaces 1-3 decision makers per company as warm leads.
type Worker struct {
	focus        string
	product      string
	pages        []int
	targetTitles []string
	source       interfaces.NewsSource
	search       interfaces.WebSearcher
	classifier   interfaces.Classifier
	timeout      time.Duration
	logger       arbor.ILogger
	onUpdate     func(string)
}

// Compile-time assertion
var _ interfaces.SourceWorker = (*Worker)(nil)

// NewWorker creates a news worker for one invocation over the given listing
// pages.
func NewWorker(focus, product string, pages []int, targetTitles []string, source interfaces.NewsSource, search interfaces.WebSearcher, classifier interfaces.Classifier, timeout time.Duration, logger arbor.ILogger, onUpdate func(string)) *Worker {
	return &Worker{
		focus:        focus,
		product:      product,
		pages:        pages,
		targetTitles: targetTitles,
		source:       source,
		search:       search,
		classifier:   classifier,
		timeout:      timeout,
		logger:       logger,
		onUpdate:     onUpdate,
	}
}

// Platform returns the source platform tag.
func (w *Worker) Platform() string {
	return models.PlatformNews
}

// Run executes fetch, select, resolve and extract over the requested pages.
func (w *Worker) Run(ctx context.Context, target int) *models.WorkerResult {
	pipeline := workerutil.NewPipeline(w.Platform(), w.timeout, w.logger, w.onUpdate)

	if len(w.pages) == 0 {
		pipeline.Log("no news pages assigned, nothing to do")
		return pipeline.Succeed(nil)
	}

	// Fetch: one listing page per requested page number, in parallel,
	// result order preserved. The step fails only when every page fails.
	var items []models.NewsItem
	err := pipeline.Step(ctx, "fetch", func(ctx context.Context) error {
		var fetchErr error
		items, fetchErr = w.fetchPages(ctx, pipeline)
		return fetchErr
	})
	if err != nil {
		return pipeline.Fail(err, nil)
	}
	pipeline.Log("fetched %d articles from pages %v", len(items), w.pages)
	if len(items) == 0 {
		return pipeline.Succeed(nil)
	}

	// Select: which funded companies would plausibly use the product.
	var selected []models.NewsItem
	err = pipeline.Step(ctx, "select", func(ctx context.Context) error {
		selected = w.selectCompanies(ctx, pipeline, items)
		return nil
	})
	if err != nil {
		return pipeline.Fail(err, nil)
	}
	pipeline.Log("selected %d of %d companies", len(selected), len(items))
	if len(selected) == 0 {
		return pipeline.Succeed(nil)
	}

	// Extract: resolve each company and pick decision makers.
	var collected []models.Lead
	err = pipeline.Step(ctx, "extract", func(ctx context.Context) error {
		for _, item := range selected {
			if len(collected) >= target {
				break
			}
			leads := w.extractDecisionMakers(ctx, pipeline, item)
			collected = append(collected, leads...)
		}
		return nil
	})
	if err != nil {
		return pipeline.Fail(err, collected)
	}

	if len(collected) > target {
		collected = collected[:target]
	}
	return pipeline.Succeed(collected)
}

// fetchPages loads every requested listing page with bounded parallelism,
// keeping results in page order. Individual page failures are tolerated
// unless all pages fail.
func (w *Worker) fetchPages(ctx context.Context, pipeline *workerutil.Pipeline) ([]models.NewsItem, error) {
	perPage := make([][]models.NewsItem, len(w.pages))
	errs := make([]error, len(w.pages))

	_ = workerutil.ForEachBounded(ctx, workerutil.MaxParallel, len(w.pages), func(ctx context.Context, i int) error {
		items, err := w.source.FetchPage(ctx, w.pages[i])
		if err != nil {
			errs[i] = err
			w.logger.Warn().Err(err).Int("page", w.pages[i]).Msg("News page fetch failed")
			return nil
		}
		perPage[i] = items
		return nil
	})

	var merged []models.NewsItem
	failed := 0
	for i := range w.pages {
		if errs[i] != nil {
			failed++
			continue
		}
		merged = append(merged, perPage[i]...)
	}

	if failed == len(w.pages) {
		return nil, fmt.Errorf("all %d page fetches failed: %w", failed, errs[0])
	}
	if failed > 0 {
		pipeline.Log("%d of %d page fetches failed", failed, len(w.pages))
	}
	return merged, nil
}

var selectSchema = &interfaces.SchemaField{
	Type: interfaces.SchemaArray,
	Items: &interfaces.SchemaField{
		Type: interfaces.SchemaObject,
		Properties: map[string]*interfaces.SchemaField{
			"index":  {Type: interfaces.SchemaInteger, Description: "Article index from the prompt"},
			"reason": {Type: interfaces.SchemaString, Description: "Why this company would use the product"},
		},
		Required: []string{"index"},
	},
}

type selectRow struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// selectCompanies asks the classifier which funded companies fit the
// product, capped at maxCompaniesPerRun. A classifier failure skips
// selection entirely (no leads, not a worker failure).
func (w *Worker) selectCompanies(ctx context.Context, pipeline *workerutil.Pipeline, items []models.NewsItem) []models.NewsItem {
	if w.classifier == nil {
		pipeline.Log("company selection skipped: no classifier configured")
		return nil
	}

	var rows []selectRow
	if err := w.classifier.Classify(ctx, buildSelectionPrompt(w.product, items), selectSchema, &rows); err != nil {
		pipeline.Log("company selection failed, skipping: %v", err)
		w.logger.Warn().Err(err).Msg("Company selection classify failed")
		return nil
	}

	var selected []models.NewsItem
	for _, row := range rows {
		if row.Index < 0 || row.Index >= len(items) {
			continue
		}
		item := items[row.Index]
		if row.Reason != "" {
			item.Snippet = row.Reason
		}
		selected = append(selected, item)
		if len(selected) == maxCompaniesPerRun {
			break
		}
	}
	return selected
}

// person is one decision-maker candidate recovered from people search.
type person struct {
	Name       string
	Title      string
	ProfileURL string
}

var pickSchema = &interfaces.SchemaField{
	Type: interfaces.SchemaArray,
	Items: &interfaces.SchemaField{
		Type: interfaces.SchemaObject,
		Properties: map[string]*interfaces.SchemaField{
			"index":  {Type: interfaces.SchemaInteger, Description: "Candidate index from the prompt"},
			"reason": {Type: interfaces.SchemaString, Description: "Why this role buys the product"},
		},
		Required: []string{"index"},
	},
}

type pickRow struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// extractDecisionMakers resolves one company and returns its decision-maker
// leads. Every external call here is best-effort.
func (w *Worker) extractDecisionMakers(ctx context.Context, pipeline *workerutil.Pipeline, item models.NewsItem) []models.Lead {
	orgURL := w.resolveOrgURL(ctx, item.Company)

	candidates := w.findPeople(ctx, item.Company)
	if len(candidates) == 0 {
		pipeline.Log("no decision-maker candidates found for %s", item.Company)
		return nil
	}

	picks := w.pickDecisionMakers(ctx, pipeline, item.Company, candidates)

	var leads []models.Lead
	for _, pick := range picks {
		p := candidates[pick.Index]
		signal := fmt.Sprintf("%s raised %s", item.Company, item.FundingAmount)
		if item.FundingAmount == "" {
			signal = fmt.Sprintf("%s in funding news: %s", item.Company, item.Headline)
		}
		if pick.Reason != "" {
			signal += " - " + pick.Reason
		}
		leads = append(leads, models.Lead{
			Name:           p.Name,
			Title:          p.Title,
			Company:        item.Company,
			ProfileURL:     p.ProfileURL,
			IntentSignal:   signal,
			IntentScore:    defaultIntentScore,
			SourcePlatform: w.Platform(),
			SourceURL:      firstNonEmpty(item.URL, orgURL),
		})
		if len(leads) == maxDecisionMakers {
			break
		}
	}
	pipeline.Log("%s contributed %d decision makers", item.Company, len(leads))
	return leads
}

// resolveOrgURL looks up the company website, best-effort.
func (w *Worker) resolveOrgURL(ctx context.Context, company string) string {
	if w.search == nil {
		return ""
	}
	results, err := w.search.Search(ctx, company+" official website")
	if err != nil || len(results) == 0 {
		return ""
	}
	return results[0].URL
}

// findPeople searches for profile pages of people at the company matching
// the role hints.
func (w *Worker) findPeople(ctx context.Context, company string) []person {
	if w.search == nil {
		return nil
	}

	hints := strings.Join(w.roleHints(), " OR ")
	query := fmt.Sprintf("site:linkedin.com/in %q %s", company, hints)
	results, err := w.search.Search(ctx, query)
	if err != nil {
		w.logger.Warn().Err(err).Str("company", company).Msg("People search failed")
		return nil
	}

	var people []person
	for _, r := range results {
		if p, ok := parsePersonResult(r); ok {
			people = append(people, p)
		}
	}
	return people
}

// pickDecisionMakers asks the classifier for the 1-3 best-fitting
// candidates. When the classifier is unavailable or fails, the fallback is
// the first candidate whose title matches a strategy target title, or
// failing that the first candidate.
func (w *Worker) pickDecisionMakers(ctx context.Context, pipeline *workerutil.Pipeline, company string, candidates []person) []pickRow {
	if w.classifier != nil {
		var rows []pickRow
		err := w.classifier.Classify(ctx, buildPickPrompt(w.product, company, candidates), pickSchema, &rows)
		if err == nil {
			var valid []pickRow
			for _, row := range rows {
				if row.Index >= 0 && row.Index < len(candidates) {
					valid = append(valid, row)
				}
				if len(valid) == maxDecisionMakers {
					break
				}
			}
			if len(valid) > 0 {
				return valid
			}
		} else {
			pipeline.Log("decision-maker selection failed for %s, using title fallback: %v", company, err)
			w.logger.Warn().Err(err).Str("company", company).Msg("Decision-maker classify failed")
		}
	}

	for i, p := range candidates {
		if titleMatches(p.Title, w.targetTitles) {
			return []pickRow{{Index: i, Reason: "matches target title " + p.Title}}
		}
	}
	return []pickRow{{Index: 0}}
}

// roleHints derives the people-search hint terms.
func (w *Worker) roleHints() []string {
	if len(w.targetTitles) > 0 {
		hints := w.targetTitles
		if len(hints) > 3 {
			hints = hints[:3]
		}
		return hints
	}
	return []string{"Founder", "CEO", "Head of Operations"}
}

// parsePersonResult recovers a person from a profile search result. Result
// titles follow the "Name - Title - Company | LinkedIn" convention.
func parsePersonResult(r models.SearchResult) (person, bool) {
	title := strings.TrimSpace(r.Title)
	if idx := strings.Index(title, "|"); idx >= 0 {
		title = strings.TrimSpace(title[:idx])
	}
	parts := strings.SplitN(title, " - ", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
		return person{}, false
	}
	return person{
		Name:       strings.TrimSpace(parts[0]),
		Title:      strings.TrimSpace(parts[1]),
		ProfileURL: r.URL,
	}, true
}

func titleMatches(title string, targets []string) bool {
	title = strings.ToLower(title)
	for _, target := range targets {
		if target == "" {
			continue
		}
		if strings.Contains(title, strings.ToLower(target)) {
			return true
		}
	}
	return false
}

func buildSelectionPrompt(product string, items []models.NewsItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, `These companies just raised funding. Which of them would plausibly buy
the following product? Pick at most %d, best fits first.

**Product**: %s

Articles:
`, maxCompaniesPerRun, product)
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s (%s) - %s\n", i, item.Company, item.FundingAmount, item.Headline)
	}
	b.WriteString("\nReturn one entry per chosen company with its index and a short reason.")
	return b.String()
}

func buildPickPrompt(product, company string, candidates []person) string {
	var b strings.Builder
	fmt.Fprintf(&b, `%s just raised funding. Which of these people would own the buying
decision for the following product? Pick 1 to %d, best first.

**Product**: %s

Candidates:
`, company, maxDecisionMakers, product)
	for i, p := range candidates {
		fmt.Fprintf(&b, "%d. %s - %s\n", i, p.Name, p.Title)
	}
	b.WriteString("\nReturn one entry per pick with its index and a short reason tied to the role.")
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
