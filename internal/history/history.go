package history

import (
	"context"
	"time"
)

// EventType defines the kind of backend lifecycle event.
type EventType string

const (
	EventStart  EventType = "start"
	EventStop   EventType = "stop"
	EventFailed EventType = "failed"
)

// Record captures the backend handle at the moment of the event.
type Record struct {
	PID      int    `json:"pid"`
	Endpoint string `json:"endpoint"`
	State    string `json:"state"`
	Detail   string `json:"detail,omitempty"` // stop outcome or failure reason
}

// Event represents a lifecycle event to be exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events (audit/analytics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
