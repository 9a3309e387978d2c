package engine

import (
	"sync"
	"time"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// Emitter serializes one run's event stream. Timestamps never decrease
// within a run, and nothing is emitted after a cancelled or error event.
type Emitter struct {
	runID string
	sink  interfaces.RunEventSink

	mu     sync.Mutex
	last   time.Time
	closed bool
}

// NewEmitter creates the emitter for a run. sink may be nil, in which case
// events are dropped.
func NewEmitter(runID string, sink interfaces.RunEventSink) *Emitter {
	return &Emitter{runID: runID, sink: sink}
}

func (e *Emitter) emit(event models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}

	now := time.Now()
	if now.Before(e.last) {
		now = e.last
	}
	e.last = now

	event.ID = common.NewEventID()
	event.RunID = e.runID
	event.Timestamp = now

	if e.sink != nil {
		e.sink(event)
	}

	// Failure terminals end the stream. Completed does not: the final
	// lead batches follow it.
	if event.Type == models.EventCancelled || event.Type == models.EventError {
		e.closed = true
	}
}

func (e *Emitter) Status(message string) {
	e.emit(models.Event{Type: models.EventStatus, Message: message})
}

func (e *Emitter) Thought(message string) {
	e.emit(models.Event{Type: models.EventThought, Message: message})
}

func (e *Emitter) WorkerStart(platform, message string) {
	e.emit(models.Event{Type: models.EventWorkerStart, Platform: platform, Message: message})
}

// WorkerUpdate relays a progress line from a running worker. Its signature
// matches the worker provider's update callback.
func (e *Emitter) WorkerUpdate(platform, message string) {
	e.emit(models.Event{Type: models.EventWorkerUpdate, Platform: platform, Message: message})
}

func (e *Emitter) WorkerComplete(platform, message string) {
	e.emit(models.Event{Type: models.EventWorkerComplete, Platform: platform, Message: message})
}

func (e *Emitter) LeadBatch(platform string, batch []models.Lead) {
	e.emit(models.Event{Type: models.EventLeadBatch, Platform: platform, Leads: batch})
}

func (e *Emitter) Completed(summary *models.RunSummary) {
	e.emit(models.Event{Type: models.EventCompleted, Summary: summary})
}

func (e *Emitter) Cancelled(message string) {
	e.emit(models.Event{Type: models.EventCancelled, Message: message})
}

func (e *Emitter) Error(message string) {
	e.emit(models.Event{Type: models.EventError, Message: message})
}

// Close suppresses any further emission. Safe to call more than once.
func (e *Emitter) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}
