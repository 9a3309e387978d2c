package events

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/models"
)

func TestPublishSync_DeliversToTypeAndAllSubscribers(t *testing.T) {
	svc := NewService(common.GetLogger())

	var mu sync.Mutex
	var got []string

	require.NoError(t, svc.Subscribe(models.EventStatus, func(ctx context.Context, e models.Event) error {
		mu.Lock()
		got = append(got, "typed:"+e.Message)
		mu.Unlock()
		return nil
	}))
	require.NoError(t, svc.SubscribeAll(func(ctx context.Context, e models.Event) error {
		mu.Lock()
		got = append(got, "all:"+e.Message)
		mu.Unlock()
		return nil
	}))

	err := svc.PublishSync(context.Background(), models.Event{Type: models.EventStatus, Message: "planning"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPublishSync_AllSubscriberSeesEveryType(t *testing.T) {
	svc := NewService(common.GetLogger())

	var mu sync.Mutex
	count := 0
	require.NoError(t, svc.SubscribeAll(func(ctx context.Context, e models.Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}))

	for _, eventType := range []models.EventType{models.EventThought, models.EventWorkerStart, models.EventCompleted} {
		require.NoError(t, svc.PublishSync(context.Background(), models.Event{Type: eventType}))
	}
	assert.Equal(t, 3, count)
}

func TestPublishSync_HandlerErrorSurfaces(t *testing.T) {
	svc := NewService(common.GetLogger())

	require.NoError(t, svc.Subscribe(models.EventError, func(ctx context.Context, e models.Event) error {
		return fmt.Errorf("sink down")
	}))

	err := svc.PublishSync(context.Background(), models.Event{Type: models.EventError})
	assert.Error(t, err)
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	svc := NewService(common.GetLogger())
	assert.NoError(t, svc.Publish(context.Background(), models.Event{Type: models.EventStatus}))
}

func TestSubscribe_NilHandlerRejected(t *testing.T) {
	svc := NewService(common.GetLogger())
	assert.Error(t, svc.Subscribe(models.EventStatus, nil))
}

func TestSubscribe_AfterCloseRejected(t *testing.T) {
	svc := NewService(common.GetLogger())
	require.NoError(t, svc.Close())
	assert.Error(t, svc.SubscribeAll(func(ctx context.Context, e models.Event) error { return nil }))
}
