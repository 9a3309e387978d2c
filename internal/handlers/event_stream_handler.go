package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/runs"
)

// subscriberBuffer is the per-connection event buffer. A client that
// cannot drain this many events has its oldest updates dropped rather
// than stalling the run.
const subscriberBuffer = 256

// ssePingInterval keeps idle connections alive through proxies.
const ssePingInterval = 15 * time.Second

// runSubscriber is one SSE client following a run's event stream.
type runSubscriber struct {
	events chan models.Event
}

// EventStreamHandler serves GET /api/runs/{id}/events as Server-Sent
// Events. It subscribes to the event bus once and fans events out to the
// connections following each run.
type EventStreamHandler struct {
	runs   *runs.Service
	logger arbor.ILogger

	mu   sync.RWMutex
	subs map[string]map[*runSubscriber]struct{}
}

// NewEventStreamHandler creates the SSE handler and hooks it into the
// event bus.
func NewEventStreamHandler(events interfaces.EventService, runService *runs.Service, logger arbor.ILogger) *EventStreamHandler {
	h := &EventStreamHandler{
		runs:   runService,
		logger: logger,
		subs:   make(map[string]map[*runSubscriber]struct{}),
	}
	if events != nil {
		events.SubscribeAll(h.handleEvent)
	}
	return h
}

// handleEvent routes a bus event to the subscribers of its run.
func (h *EventStreamHandler) handleEvent(ctx context.Context, event models.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.RunID] {
		select {
		case sub.events <- event:
		default:
			// Buffer full, drop for this client. The persisted trail
			// remains complete.
		}
	}
	return nil
}

func (h *EventStreamHandler) subscribe(runID string) *runSubscriber {
	sub := &runSubscriber{events: make(chan models.Event, subscriberBuffer)}

	h.mu.Lock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[*runSubscriber]struct{})
	}
	h.subs[runID][sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

func (h *EventStreamHandler) unsubscribe(runID string, sub *runSubscriber) {
	h.mu.Lock()
	delete(h.subs[runID], sub)
	if len(h.subs[runID]) == 0 {
		delete(h.subs, runID)
	}
	h.mu.Unlock()
}

// StreamEventsHandler handles GET /api/runs/{id}/events. Persisted events
// replay first, then live events stream until a terminal event closes the
// run or the client disconnects.
func (h *EventStreamHandler) StreamEventsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runID := RunIDFromPath(r.URL.Path)
	if _, err := h.runs.Get(r.Context(), runID); err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	flusher.Flush()

	// Register before replaying so no live event falls in the gap.
	sub := h.subscribe(runID)
	defer h.unsubscribe(runID, sub)

	replayed, terminal := h.replay(w, flusher, runID)
	if terminal {
		return
	}

	pingTicker := time.NewTicker(ssePingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event := <-sub.events:
			if _, dup := replayed[event.ID]; dup {
				continue
			}
			h.sendEvent(w, flusher, event)
			if event.IsTerminal() {
				h.drainTrailing(w, flusher, sub, replayed)
				return
			}

		case <-pingTicker.C:
			h.sendPing(w, flusher)
		}
	}
}

// replay writes the persisted event trail and reports whether it already
// contains a terminal event. Returns the replayed IDs so live duplicates
// are suppressed.
func (h *EventStreamHandler) replay(w http.ResponseWriter, flusher http.Flusher, runID string) (map[string]struct{}, bool) {
	seen := make(map[string]struct{})

	events, err := h.runs.Events(context.Background(), runID, 0)
	if err != nil {
		h.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to replay persisted events")
		return seen, false
	}

	terminal := false
	for i := range events {
		h.sendEvent(w, flusher, events[i])
		seen[events[i].ID] = struct{}{}
		if events[i].IsTerminal() {
			terminal = true
		}
	}

	// A completed run is followed by its final lead batches, so the
	// stream only closes once those have replayed too.
	return seen, terminal
}

// drainTrailing flushes the lead batches that follow a completed event
// before the stream closes.
func (h *EventStreamHandler) drainTrailing(w http.ResponseWriter, flusher http.Flusher, sub *runSubscriber, replayed map[string]struct{}) {
	for {
		select {
		case event := <-sub.events:
			if _, dup := replayed[event.ID]; dup {
				continue
			}
			h.sendEvent(w, flusher, event)
		case <-time.After(200 * time.Millisecond):
			return
		}
	}
}

func (h *EventStreamHandler) sendEvent(w http.ResponseWriter, flusher http.Flusher, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", event.RunID).Msg("Failed to marshal SSE event")
		return
	}

	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (h *EventStreamHandler) sendPing(w http.ResponseWriter, flusher http.Flusher) {
	fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%q}\n\n", time.Now().Format(time.RFC3339))
	flusher.Flush()
}
