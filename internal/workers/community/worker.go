package community

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
	// minIntentScore gates which scored posts proceed to extraction.
	minIntentScore = 50

	// minRelevanceRatio is the fetch quality gate: below this share of
	// keyword-matching posts the batch is marked LOW quality.
	minRelevanceRatio = 0.30

	// keywordMinLen is the minimum keyword length counted by the relevance
	// gate.
	keywordMinLen = 4

	// postsPerQuery caps how many posts one query fetches.
	postsPerQuery = 25

	// scoreBatchSize is how many posts one classification call scores.
	scoreBatchSize = 10
)

// bannedAuthors are never extracted as leads.
var bannedAuthors = map[string]bool{
	"[deleted]":     true,
	"automoderator": true,
	"moderator":     true,
}

// Worker mines buying intent from community discussions. For each query in
// order it fetches posts, scores their intent, extracts the authors of
// high-intent posts and filters out sellers, stopping early once the target
// is reached.
type Worker struct {
	queries    []string
	source     interfaces.CommunitySource
	classifier interfaces.Classifier
	filter     *workerutil.SellerFilter
	timeout    time.Duration
	logger     arbor.ILogger
	onUpdate   func(string)
}

// Compile-time assertion
var _ interfaces.SourceWorker = (*Worker)(nil)

// NewWorker creates a community worker for one invocation.
func NewWorker(queries []string, source interfaces.CommunitySource, classifier interfaces.Classifier, timeout time.Duration, logger arbor.ILogger, onUpdate func(string)) *Worker {
	return &Worker{
		queries:    queries,
		source:     source,
		classifier: classifier,
		filter:     workerutil.NewSellerFilter(classifier, logger),
		timeout:    timeout,
		logger:     logger,
		onUpdate:   onUpdate,
	}
}

// Platform returns the source platform tag.
func (w *Worker) Platform() string {
	return models.PlatformCommunity
}

// scoredPost pairs a fetched post with its classified intent.
type scoredPost struct {
	post   models.CommunityPost
	score  int
	signal string
}

// Run executes the pipeline over the worker's queries.
func (w *Worker) Run(ctx context.Context, target int) *models.WorkerResult {
	pipeline := workerutil.NewPipeline(w.Platform(), w.timeout, w.logger, w.onUpdate)

	if len(w.queries) == 0 {
		pipeline.Log("no community queries in strategy, nothing to do")
		return pipeline.Succeed(nil)
	}

	var collected []models.Lead

	for _, query := range w.queries {
		if len(collected) >= target {
			break
		}

		// Fetch
		var posts []models.CommunityPost
		err := pipeline.Step(ctx, "fetch", func(ctx context.Context) error {
			var err error
			posts, err = w.source.Search(ctx, query, postsPerQuery)
			return err
		})
		if err != nil {
			return pipeline.Fail(err, collected)
		}
		pipeline.Log("query %q returned %d posts", query, len(posts))
		if len(posts) == 0 {
			continue
		}

		if ratio := relevanceRatio(query, posts); ratio < minRelevanceRatio {
			pipeline.Log("quality LOW: only %.0f%% of posts match query keywords", ratio*100)
			w.logger.Warn().
				Str("query", query).
				Float64("relevance", ratio).
				Msg("Community fetch below relevance gate, continuing")
		}

		// Score
		var scored []scoredPost
		err = pipeline.Step(ctx, "score", func(ctx context.Context) error {
			scored = w.scorePosts(ctx, pipeline, posts)
			return nil
		})
		if err != nil {
			return pipeline.Fail(err, collected)
		}

		// Extract
		var candidates []models.Lead
		err = pipeline.Step(ctx, "extract", func(ctx context.Context) error {
			candidates = w.extractLeads(scored)
			return nil
		})
		if err != nil {
			return pipeline.Fail(err, collected)
		}
		pipeline.Log("extracted %d candidates from %d qualifying posts", len(candidates), len(scored))

		// Filter
		err = pipeline.Step(ctx, "filter", func(ctx context.Context) error {
			buyers, warning := w.filter.Filter(ctx, candidates)
			if warning != "" {
				pipeline.Log("%s", warning)
			}
			candidates = buyers
			return nil
		})
		if err != nil {
			return pipeline.Fail(err, collected)
		}

		collected = append(collected, candidates...)
		pipeline.Log("query %q contributed %d leads (%d total)", query, len(candidates), len(collected))
	}

	if len(collected) > target {
		collected = collected[:target]
	}
	return pipeline.Succeed(collected)
}

// scoreSchema is the structured shape one scoring call returns.
var scoreSchema = &interfaces.SchemaField{
	Type: interfaces.SchemaArray,
	Items: &interfaces.SchemaField{
		Type: interfaces.SchemaObject,
		Properties: map[string]*interfaces.SchemaField{
			"index":  {Type: interfaces.SchemaInteger, Description: "Post index from the prompt"},
			"score":  {Type: interfaces.SchemaInteger, Description: "Buying intent 0-100"},
			"signal": {Type: interfaces.SchemaString, Description: "Short quote or reason for the score"},
		},
		Required: []string{"index", "score"},
	},
}

type scoreRow struct {
	Index  int    `json:"index"`
	Score  int    `json:"score"`
	Signal string `json:"signal"`
}

// scorePosts classifies posts in bounded-parallel batches. A failed batch is
// skipped with a warning; scoring never fails the worker.
func (w *Worker) scorePosts(ctx context.Context, pipeline *workerutil.Pipeline, posts []models.CommunityPost) []scoredPost {
	batches := make([][]models.CommunityPost, 0, (len(posts)+scoreBatchSize-1)/scoreBatchSize)
	for start := 0; start < len(posts); start += scoreBatchSize {
		end := start + scoreBatchSize
		if end > len(posts) {
			end = len(posts)
		}
		batches = append(batches, posts[start:end])
	}

	results := make([][]scoredPost, len(batches))
	var mu sync.Mutex
	skipped := 0

	_ = workerutil.ForEachBounded(ctx, workerutil.MaxParallel, len(batches), func(ctx context.Context, i int) error {
		rows, err := w.scoreBatch(ctx, batches[i])
		if err != nil {
			// Classifier parse failure skips the batch, not the worker.
			mu.Lock()
			skipped += len(batches[i])
			mu.Unlock()
			w.logger.Warn().Err(err).Int("batch", i).Msg("Post scoring batch skipped")
			return nil
		}
		results[i] = rows
		return nil
	})

	if skipped > 0 {
		pipeline.Log("scoring skipped %d posts on classifier failures", skipped)
	}

	var qualifying []scoredPost
	for _, rows := range results {
		for _, sp := range rows {
			if sp.score >= minIntentScore {
				qualifying = append(qualifying, sp)
			}
		}
	}
	return qualifying
}

func (w *Worker) scoreBatch(ctx context.Context, posts []models.CommunityPost) ([]scoredPost, error) {
	if w.classifier == nil {
		return nil, fmt.Errorf("no classifier configured")
	}

	var rows []scoreRow
	if err := w.classifier.Classify(ctx, buildScoringPrompt(posts), scoreSchema, &rows); err != nil {
		return nil, err
	}

	var out []scoredPost
	for _, row := range rows {
		if row.Index < 0 || row.Index >= len(posts) {
			continue
		}
		if row.Score < 0 {
			row.Score = 0
		}
		if row.Score > 100 {
			row.Score = 100
		}
		signal := strings.TrimSpace(row.Signal)
		if signal == "" {
			signal = firstSentence(posts[row.Index].Title)
		}
		out = append(out, scoredPost{post: posts[row.Index], score: row.Score, signal: signal})
	}
	return out, nil
}

// extractLeads turns qualifying posts into lead candidates, dropping deleted
// authors and moderator bots.
func (w *Worker) extractLeads(scored []scoredPost) []models.Lead {
	var leads []models.Lead
	for _, sp := range scored {
		author := strings.TrimSpace(sp.post.Author)
		if author == "" || bannedAuthors[strings.ToLower(author)] {
			continue
		}
		leads = append(leads, models.Lead{
			Name:           author,
			IntentSignal:   sp.signal,
			IntentScore:    sp.score,
			SourcePlatform: w.Platform(),
			SourceURL:      sp.post.URL,
		})
	}
	return leads
}

// relevanceRatio reports the share of posts containing at least one query
// keyword of keywordMinLen or longer in title plus body.
func relevanceRatio(query string, posts []models.CommunityPost) float64 {
	if len(posts) == 0 {
		return 0
	}

	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?\"'")
		if len(word) >= keywordMinLen {
			keywords = append(keywords, word)
		}
	}
	if len(keywords) == 0 {
		return 1 // nothing to gate on
	}

	matching := 0
	for _, post := range posts {
		text := strings.ToLower(post.Title + " " + post.Body)
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				matching++
				break
			}
		}
	}
	return float64(matching) / float64(len(posts))
}

func buildScoringPrompt(posts []models.CommunityPost) string {
	var b strings.Builder
	b.WriteString(`Score the buying intent of each post below from 0 to 100:
- 80-100: explicit request for a solution, actively shopping
- 60-79: clear complaint about a current tool
- 40-59: discussing the problem with no stated intent to switch
- 20-39: tangentially related
- 5-19: promoting something, already solved, or off topic

For each post return its index, score, and a short signal: the quote or
reason that justifies the score.

Posts:
`)
	for i, post := range posts {
		body := workerutil.Truncate(post.Body, 600)
		fmt.Fprintf(&b, "%d. [%s] %s\n%s\n\n", i, post.Author, post.Title, body)
	}
	return b.String()
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?"); idx > 0 && idx < len(text)-1 {
		return text[:idx+1]
	}
	return text
}
