package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/leads"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/planner"
)

const (
	// MaxRounds bounds the compensation loop.
	MaxRounds = 3

	// MaxWorkerRetries bounds re-launches of a failed worker, so a worker
	// runs at most MaxWorkerRetries+1 times.
	MaxWorkerRetries = 2
)

// finalBatchOrder fixes the platform order of the final lead batches.
var finalBatchOrder = []string{models.PlatformCommunity, models.PlatformNews, models.PlatformLinkedIn}

// Supervisor orchestrates one lead generation run: plan, fan the three
// source workers out in parallel, compensate while under target, aggregate.
// A Supervisor is built per run and not reused.
type Supervisor struct {
	runID   string
	planner interfaces.Planner
	workers interfaces.WorkerProvider
	buffer  int
	emitter *Emitter
	logger  arbor.ILogger
}

// NewSupervisor builds the supervisor for one run. buffer is the extra lead
// headroom requested per worker above its share; values below 5 are raised.
func NewSupervisor(runID string, plan interfaces.Planner, workers interfaces.WorkerProvider, buffer int, emitter *Emitter, logger arbor.ILogger) *Supervisor {
	if buffer < 5 {
		buffer = 5
	}
	return &Supervisor{
		runID:   runID,
		planner: plan,
		workers: workers,
		buffer:  buffer,
		emitter: emitter,
		logger:  logger,
	}
}

// Run executes the full run and always returns a result; failures are
// encoded in it, never returned as an error.
func (s *Supervisor) Run(ctx context.Context, product string, target int, icp map[string]string) *models.RunResult {
	start := time.Now()
	if target < 1 {
		target = 1
	}

	arena := leads.NewContext()
	var errs []string
	var errsMu sync.Mutex
	addErr := func(msg string) {
		errsMu.Lock()
		errs = append(errs, msg)
		errsMu.Unlock()
	}

	s.logger.Info().
		Str("run_id", s.runID).
		Int("target", target).
		Msg("Run started")
	s.emitter.Status("Analyzing product and planning search strategy")

	// Phase I
	strategy := s.plan(ctx, product, target, icp, addErr)
	if strategy == nil {
		s.emitter.Error("no usable search strategy could be derived")
		addErr("planning failed: no usable strategy and no fallback")
		return s.failedResult(start, 0, errs)
	}
	s.emitter.Thought(fmt.Sprintf("Strategy ready: %d search avenues across %d queries, %d competitors",
		strategy.Size(), len(strategy.CommunityQueries), len(strategy.Competitors)))

	if ctx.Err() != nil {
		return s.cancelledResult(arena, start, target, 0, errs)
	}

	// Phase II
	set := s.workers.ForRun(product, strategy)
	perWorkerTarget := (target+2)/3 + s.buffer
	initialPages := []int{1, 2}

	s.emitter.Status("Dispatching source workers")
	s.fanOut(ctx, arena, perWorkerTarget, addErr, []workerLaunch{
		{models.PlatformCommunity, func() interfaces.SourceWorker { return set.Community(strategy.CommunityQueries) }},
		{models.PlatformNews, func() interfaces.SourceWorker { return set.News(initialPages) }},
		{models.PlatformLinkedIn, func() interfaces.SourceWorker { return set.Competitor(strategy.Competitors) }},
	})

	arena.MarkNewsPages(initialPages)
	arena.MarkQueriesUsed(strategy.CommunityQueries)
	arena.MarkCompetitorsScraped(strategy.Competitors)

	if ctx.Err() != nil {
		return s.cancelledResult(arena, start, target, 0, errs)
	}

	// Phase III
	rounds, cancelled := s.compensate(ctx, arena, set, product, target, addErr)
	if cancelled {
		return s.cancelledResult(arena, start, target, rounds, errs)
	}

	// Phase IV
	s.emitter.Status("Aggregating and ranking leads")
	agg := leads.Aggregate(arena.Admitted(), target)

	result := &models.RunResult{
		RunID:             s.runID,
		Success:           len(agg.Leads) > 0,
		Leads:             agg.Leads,
		TierCounts:        agg.TierCounts,
		PlatformCounts:    agg.PlatformCounts,
		DuplicatesRemoved: arena.Duplicates() + agg.DuplicatesRemoved,
		Rounds:            rounds,
		Elapsed:           time.Since(start),
		Errors:            errs,
	}

	s.emitter.Completed(result.Summary())
	for _, platform := range finalBatchOrder {
		var batch []models.Lead
		for _, lead := range agg.Leads {
			if lead.SourcePlatform == platform {
				batch = append(batch, lead)
			}
		}
		if len(batch) > 0 {
			s.emitter.LeadBatch(platform, batch)
		}
	}

	s.logger.Info().
		Str("run_id", s.runID).
		Int("leads", len(agg.Leads)).
		Int("rounds", rounds).
		Dur("elapsed", result.Elapsed).
		Msg("Run completed")
	return result
}

// plan runs Phase I: the planner's initial strategy with a deterministic
// fallback. Returns nil only when neither produced anything usable.
func (s *Supervisor) plan(ctx context.Context, product string, target int, icp map[string]string, addErr func(string)) *models.Strategy {
	strategy, err := s.planner.InitialStrategy(ctx, product, target, icpText(icp))
	if err != nil || strategy == nil || strategy.IsEmpty() {
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", s.runID).Msg("Planner unavailable, using fallback strategy")
			addErr(fmt.Sprintf("planner unavailable: %v", err))
		} else {
			s.logger.Warn().Str("run_id", s.runID).Msg("Planner returned empty strategy, using fallback")
		}
		strategy = planner.FallbackStrategy(product)
		if strategy.IsEmpty() {
			return nil
		}
		s.emitter.Thought("Planner unavailable, continuing with template strategy")
	}
	return strategy
}

// workerLaunch binds a platform tag to a fresh-instance constructor.
type workerLaunch struct {
	platform string
	build    func() interfaces.SourceWorker
}

// fanOut runs the launches concurrently, reviews each result and admits its
// leads into the arena.
func (s *Supervisor) fanOut(ctx context.Context, arena *leads.Context, target int, addErr func(string), launches []workerLaunch) {
	var wg sync.WaitGroup
	for _, launch := range launches {
		wg.Add(1)
		go func(launch workerLaunch) {
			defer wg.Done()
			s.emitter.WorkerStart(launch.platform, fmt.Sprintf("Worker started, targeting %d leads", target))
			result := s.runWithReview(ctx, launch.platform, launch.build, target)
			s.admit(arena, launch.platform, result, addErr)
		}(launch)
	}
	wg.Wait()
}

// runWithReview executes a worker with the retry policy: a failed result is
// re-launched with the same inputs on a fresh instance, up to
// MaxWorkerRetries times. Empty success is accepted without retry.
func (s *Supervisor) runWithReview(ctx context.Context, platform string, build func() interfaces.SourceWorker, target int) *models.WorkerResult {
	var result *models.WorkerResult
	for attempt := 0; attempt <= MaxWorkerRetries; attempt++ {
		if attempt > 0 {
			s.emitter.WorkerUpdate(platform, fmt.Sprintf("Retrying after failure (attempt %d of %d): %s",
				attempt+1, MaxWorkerRetries+1, result.Error))
		}
		result = build().Run(ctx, target)
		if !result.Failed() || ctx.Err() != nil {
			break
		}
		s.logger.Warn().
			Str("run_id", s.runID).
			Str("platform", platform).
			Str("step", result.LastStep).
			Str("error", result.Error).
			Msg("Worker failed")
	}

	if result.Success {
		s.review(platform, result)
	}
	return result
}

// review validates the leads of a successful result. Structurally invalid
// leads are counted and warned about but never dropped here; the aggregator
// sees everything.
func (s *Supervisor) review(platform string, result *models.WorkerResult) {
	if len(result.Leads) == 0 {
		s.logger.Warn().
			Str("run_id", s.runID).
			Str("platform", platform).
			Msg("Worker succeeded with no leads")
		return
	}
	invalid := 0
	for i := range result.Leads {
		if err := result.Leads[i].Validate(); err != nil {
			invalid++
		}
	}
	if invalid > len(result.Leads)-invalid {
		s.logger.Warn().
			Str("run_id", s.runID).
			Str("platform", platform).
			Int("invalid", invalid).
			Int("total", len(result.Leads)).
			Msg("More invalid than valid leads from worker")
	}
}

// admit records a reviewed result: leads into the arena, failures into the
// run's error list, and the worker_complete event either way.
func (s *Supervisor) admit(arena *leads.Context, platform string, result *models.WorkerResult, addErr func(string)) int {
	if result.Failed() {
		addErr(fmt.Sprintf("%s worker failed at step %s: %s", platform, result.LastStep, result.Error))
		s.emitter.WorkerComplete(platform, fmt.Sprintf("Failed: %s", result.Error))
		return 0
	}
	admitted := arena.AddLeads(result.Leads)
	s.emitter.WorkerComplete(platform, fmt.Sprintf("Done: %d leads found, %d new", len(result.Leads), len(admitted)))
	return len(admitted)
}

// compensate runs Phase III: up to MaxRounds planner-directed passes over
// additional search space while the run is under target. Returns the number
// of rounds performed and whether the run was cancelled mid-phase.
func (s *Supervisor) compensate(ctx context.Context, arena *leads.Context, set interfaces.WorkerSet, product string, target int, addErr func(string)) (int, bool) {
	rounds := 0
	var history []models.CompensationRound

	for arena.Count() < target && rounds < MaxRounds {
		if ctx.Err() != nil {
			return rounds, true
		}

		usage := arena.Usage(target)
		tags, err := s.planner.ChooseCompensation(ctx, usage, history)
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", s.runID).Msg("Compensation planning failed, using fallback")
			tags = planner.FallbackCompensation()
		}
		tags = validTags(tags)
		if len(tags) == 0 {
			s.emitter.Thought(fmt.Sprintf("Stopping compensation at %d of %d leads: no promising sources left",
				arena.Count(), target))
			break
		}

		rounds++
		s.emitter.Status(fmt.Sprintf("Compensation round %d: %d of %d leads, trying %s",
			rounds, arena.Count(), target, tagList(tags)))

		for _, tag := range tags {
			if arena.Count() >= target {
				break
			}
			if ctx.Err() != nil {
				return rounds, true
			}
			entry := s.runCompensation(ctx, arena, set, product, target, rounds, tag, addErr)
			history = append(history, entry)
		}
	}
	return rounds, false
}

// runCompensation executes one compensation tag and returns its history
// entry.
func (s *Supervisor) runCompensation(ctx context.Context, arena *leads.Context, set interfaces.WorkerSet, product string, target, round int, tag models.StrategyTag, addErr func(string)) models.CompensationRound {
	entry := models.CompensationRound{Round: round, Tag: tag}
	workerTarget := arena.Usage(target).Shortfall() + s.buffer

	var build func() interfaces.SourceWorker
	var markDone func()

	switch tag {
	case models.TagNews:
		pages := arena.NextNewsPages(2)
		entry.Detail = fmt.Sprintf("pages %v", pages)
		build = func() interfaces.SourceWorker { return set.News(pages) }

	case models.TagCompetitor:
		scraped := arena.Usage(target).CompetitorsScraped
		proposals, err := s.planner.MoreCompetitors(ctx, product, scraped)
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", s.runID).Msg("Competitor expansion failed")
			entry.Detail = fmt.Sprintf("competitor expansion failed: %v", err)
			return entry
		}
		fresh := arena.UnusedCompetitors(proposals)
		if len(fresh) == 0 {
			entry.Detail = "no new competitors proposed"
			return entry
		}
		entry.Detail = fmt.Sprintf("%d new competitors", len(fresh))
		build = func() interfaces.SourceWorker { return set.Competitor(fresh) }
		markDone = func() { arena.MarkCompetitorsScraped(fresh) }

	case models.TagCommunity:
		used := arena.Usage(target).QueriesUsed
		proposals, err := s.planner.MoreCommunityQueries(ctx, product, used)
		if err != nil {
			s.logger.Warn().Err(err).Str("run_id", s.runID).Msg("Query expansion failed")
			entry.Detail = fmt.Sprintf("query expansion failed: %v", err)
			return entry
		}
		fresh := arena.UnusedQueries(proposals)
		if len(fresh) == 0 {
			entry.Detail = "no new queries proposed"
			return entry
		}
		entry.Detail = fmt.Sprintf("%d new queries", len(fresh))
		build = func() interfaces.SourceWorker { return set.Community(fresh) }
		markDone = func() { arena.MarkQueriesUsed(fresh) }
	}

	platform := platformForTag(tag)
	s.emitter.WorkerStart(platform, fmt.Sprintf("Compensation pass (%s)", entry.Detail))
	result := s.runWithReview(ctx, platform, build, workerTarget)
	entry.NewLeads = s.admit(arena, platform, result, addErr)
	entry.Success = !result.Failed()

	// Resources are spent even when the pass fails; never retry the same
	// names or queries in a later round.
	if markDone != nil {
		markDone()
	}
	return entry
}

// cancelledResult finalizes a cancelled run: cancelled event, then a result
// carrying everything admitted so far. Nothing is emitted afterwards.
func (s *Supervisor) cancelledResult(arena *leads.Context, start time.Time, target, rounds int, errs []string) *models.RunResult {
	s.logger.Info().Str("run_id", s.runID).Msg("Run cancelled")
	s.emitter.Cancelled("Run cancelled")

	agg := leads.Aggregate(arena.Admitted(), target)
	return &models.RunResult{
		RunID:             s.runID,
		Success:           false,
		Leads:             agg.Leads,
		TierCounts:        agg.TierCounts,
		PlatformCounts:    agg.PlatformCounts,
		DuplicatesRemoved: arena.Duplicates() + agg.DuplicatesRemoved,
		Rounds:            rounds,
		Elapsed:           time.Since(start),
		Errors:            append(errs, "run cancelled"),
	}
}

func (s *Supervisor) failedResult(start time.Time, rounds int, errs []string) *models.RunResult {
	return &models.RunResult{
		RunID:   s.runID,
		Success: false,
		Rounds:  rounds,
		Elapsed: time.Since(start),
		Errors:  errs,
	}
}

// icpText flattens an ideal customer profile map into prompt-ready text,
// keys sorted for determinism.
func icpText(icp map[string]string) string {
	if len(icp) == 0 {
		return ""
	}
	keys := make([]string, 0, len(icp))
	for k := range icp {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, icp[k]))
	}
	return strings.Join(parts, "; ")
}

func validTags(tags []models.StrategyTag) []models.StrategyTag {
	var out []models.StrategyTag
	for _, tag := range tags {
		if models.ValidTag(tag) {
			out = append(out, tag)
		}
	}
	return out
}

func tagList(tags []models.StrategyTag) string {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		parts[i] = string(tag)
	}
	return strings.Join(parts, ", ")
}

func platformForTag(tag models.StrategyTag) string {
	switch tag {
	case models.TagNews:
		return models.PlatformNews
	case models.TagCompetitor:
		return models.PlatformLinkedIn
	default:
		return models.PlatformCommunity
	}
}
