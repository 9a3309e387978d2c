package workerutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/models"
)

// MaxParallel bounds the internal parallelism of a single worker step.
const MaxParallel = 5

// DefaultStepTimeout applies when a worker is constructed without one.
const DefaultStepTimeout = 2 * time.Minute

// Pipeline drives one worker invocation through its ordered steps. Each
// step runs under its own timeout, the cancellation flag is checked at
// every step boundary, and every step's name and trace lines are recorded
// so the supervisor can see how far a failed worker got.
//
// A Pipeline belongs to a single invocation; retried workers get a fresh
// one.
type Pipeline struct {
	platform string
	timeout  time.Duration
	logger   arbor.ILogger
	onUpdate func(message string)

	mu       sync.Mutex
	trace    []string
	lastStep string
}

// NewPipeline creates the step runner for one worker invocation. onUpdate
// may be nil; when set it receives every trace line for event relay.
func NewPipeline(platform string, timeout time.Duration, logger arbor.ILogger, onUpdate func(string)) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}
	return &Pipeline{
		platform: platform,
		timeout:  timeout,
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// Step runs fn under the per-step timeout. It refuses to start when ctx is
// already cancelled, so cancellation takes effect at step boundaries while
// an in-flight step completes or times out on its own.
func (p *Pipeline) Step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("cancelled before step %s: %w", name, err)
	}

	p.mu.Lock()
	p.lastStep = name
	p.mu.Unlock()

	p.logger.Debug().
		Str("platform", p.platform).
		Str("step", name).
		Msg("Worker step starting")

	stepCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	if err := fn(stepCtx); err != nil {
		p.logger.Warn().
			Err(err).
			Str("platform", p.platform).
			Str("step", name).
			Dur("duration", time.Since(start)).
			Msg("Worker step failed")
		return fmt.Errorf("step %s failed: %w", name, err)
	}

	p.logger.Debug().
		Str("platform", p.platform).
		Str("step", name).
		Dur("duration", time.Since(start)).
		Msg("Worker step completed")
	return nil
}

// Log records a trace line and relays it to the update callback.
func (p *Pipeline) Log(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)

	p.mu.Lock()
	p.trace = append(p.trace, line)
	p.mu.Unlock()

	if p.onUpdate != nil {
		p.onUpdate(line)
	}
}

// LastStep returns the name of the most recently started step.
func (p *Pipeline) LastStep() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStep
}

// Trace returns a copy of the recorded trace lines.
func (p *Pipeline) Trace() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.trace))
	copy(out, p.trace)
	return out
}

// Succeed builds the success result for this invocation. leads may be empty:
// that is a valid "no matches" outcome.
func (p *Pipeline) Succeed(leads []models.Lead) *models.WorkerResult {
	return &models.WorkerResult{
		Platform: p.platform,
		Success:  true,
		Leads:    leads,
		LastStep: p.LastStep(),
		Trace:    p.Trace(),
	}
}

// Fail builds the failure result for this invocation, preserving any leads
// gathered before the failing step.
func (p *Pipeline) Fail(err error, leads []models.Lead) *models.WorkerResult {
	return &models.WorkerResult{
		Platform: p.platform,
		Success:  false,
		Leads:    leads,
		Error:    err.Error(),
		LastStep: p.LastStep(),
		Trace:    p.Trace(),
	}
}

// ForEachBounded runs fn for each index in [0, n) with at most limit
// goroutines in flight. The first error wins and remaining work is skipped;
// fn results must be written into caller-owned slots so result ordering is
// preserved regardless of completion order.
func ForEachBounded(ctx context.Context, limit, n int, fn func(ctx context.Context, i int) error) error {
	if limit <= 0 {
		limit = MaxParallel
	}
	if n <= 0 {
		return nil
	}

	sem := make(chan struct{}, limit)
	errOnce := sync.Once{}
	var firstErr error
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if cancelCtx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-cancelCtx.Done():
		}
		if cancelCtx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(cancelCtx, i); err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(i)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
