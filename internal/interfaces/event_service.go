package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// RunEventSink consumes the events of a single run in emission order.
// The engine calls it synchronously; sinks adapt to any downstream
// transport (SSE framing, websocket broadcast, persistence).
type RunEventSink func(event models.Event)

// EventHandler is a function that handles published events
type EventHandler func(ctx context.Context, event models.Event) error

// EventService manages the pub/sub event bus that fans run events out to
// transports and storage.
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType models.EventType, handler EventHandler) error

	// SubscribeAll registers a handler for every event type
	SubscribeAll(handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event models.Event) error

	// PublishSync publishes an event and waits for all handlers to complete
	PublishSync(ctx context.Context, event models.Event) error

	// Close shuts down the event service
	Close() error
}
