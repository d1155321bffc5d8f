// Package notify carries request lifecycle events to downstream consumers.
// Delivery is fire-and-forget; formatting and channel fan-out live elsewhere.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names. The engine emits exactly one per terminal state
// reached in an invocation.
const (
	EventRequestPending       = "request.pending"
	EventRequestSubmitted     = "request.submitted"
	EventRequestAlreadyExists = "request.already_exists"
	EventRequestFailed        = "request.failed"
	EventRequestDenied        = "request.denied"
	EventRequestRemoved       = "request.removed"
)

// Event is one lifecycle notification.
type Event struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	RequestID  int64          `json:"request_id"`
	CatalogID  int64          `json:"catalog_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewEvent creates an event stamped with a fresh id and the current time.
func NewEvent(name string, requestID, catalogID int64, payload map[string]any) Event {
	return Event{
		ID:         uuid.New().String(),
		Name:       name,
		RequestID:  requestID,
		CatalogID:  catalogID,
		Payload:    payload,
		OccurredAt: time.Now(),
	}
}

// Dispatcher delivers events. Implementations must not block the caller;
// delivery failures are theirs to handle.
type Dispatcher interface {
	Emit(ctx context.Context, e Event)
}

// LogDispatcher writes events to the log. Useful as a default and in tests.
type LogDispatcher struct {
	Log *slog.Logger
}

// Emit logs the event.
func (d *LogDispatcher) Emit(_ context.Context, e Event) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("lifecycle event", "event", e.Name, "request_id", e.RequestID, "catalog_id", e.CatalogID)
}
