package workerutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

func newTestPipeline(onUpdate func(string)) *Pipeline {
	return NewPipeline(models.PlatformCommunity, time.Second, common.GetLogger(), onUpdate)
}

func TestPipeline_StepsRecordLastStep(t *testing.T) {
	p := newTestPipeline(nil)
	ctx := context.Background()

	assert.NoError(t, p.Step(ctx, "fetch", func(ctx context.Context) error { return nil }))
	assert.Equal(t, "fetch", p.LastStep())

	err := p.Step(ctx, "score", func(ctx context.Context) error { return fmt.Errorf("boom") })
	assert.Error(t, err)
	assert.Equal(t, "score", p.LastStep())
}

func TestPipeline_CancelledContextRefusesStep(t *testing.T) {
	p := newTestPipeline(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := p.Step(ctx, "fetch", func(ctx context.Context) error {
		ran = true
		return nil
	})

	assert.Error(t, err)
	assert.False(t, ran, "step must not start after cancellation")
}

func TestPipeline_StepTimeoutPropagates(t *testing.T) {
	p := NewPipeline(models.PlatformNews, 20*time.Millisecond, common.GetLogger(), nil)

	err := p.Step(context.Background(), "fetch", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipeline_TraceRelaysToCallback(t *testing.T) {
	var mu sync.Mutex
	var relayed []string
	p := newTestPipeline(func(line string) {
		mu.Lock()
		relayed = append(relayed, line)
		mu.Unlock()
	})

	p.Log("fetched %d posts", 7)
	p.Log("scored %d posts", 5)

	assert.Equal(t, []string{"fetched 7 posts", "scored 5 posts"}, p.Trace())
	mu.Lock()
	assert.Equal(t, []string{"fetched 7 posts", "scored 5 posts"}, relayed)
	mu.Unlock()
}

func TestPipeline_ResultsCarryTraceAndStep(t *testing.T) {
	p := newTestPipeline(nil)
	_ = p.Step(context.Background(), "extract", func(ctx context.Context) error { return nil })
	p.Log("one line")

	ok := p.Succeed(nil)
	assert.True(t, ok.Success)
	assert.Empty(t, ok.Error)
	assert.Equal(t, "extract", ok.LastStep)
	assert.Equal(t, []string{"one line"}, ok.Trace)

	bad := p.Fail(fmt.Errorf("fetch exploded"), []models.Lead{{Name: "partial"}})
	assert.False(t, bad.Success)
	assert.Equal(t, "fetch exploded", bad.Error)
	assert.Len(t, bad.Leads, 1)
}

func TestForEachBounded_RespectsLimit(t *testing.T) {
	var inFlight, peak int32

	err := ForEachBounded(context.Background(), 3, 20, func(ctx context.Context, i int) error {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	})

	assert.NoError(t, err)
	assert.LessOrEqual(t, peak, int32(3))
}

func TestForEachBounded_PreservesOrderViaSlots(t *testing.T) {
	results := make([]int, 10)

	err := ForEachBounded(context.Background(), 4, 10, func(ctx context.Context, i int) error {
		results[i] = i * i
		return nil
	})

	assert.NoError(t, err)
	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

func TestForEachBounded_FirstErrorWins(t *testing.T) {
	var ran int32

	err := ForEachBounded(context.Background(), 1, 10, func(ctx context.Context, i int) error {
		atomic.AddInt32(&ran, 1)
		if i == 2 {
			return fmt.Errorf("item %d failed", i)
		}
		return nil
	})

	assert.EqualError(t, err, "item 2 failed")
	assert.Less(t, atomic.LoadInt32(&ran), int32(10), "remaining work skipped after failure")
}
