// Package events carries committed reservation changes to the outside world.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names a committed change.
type Type string

const (
	RequestCreated   Type = "request.created"
	RequestApproved  Type = "request.approved"
	RequestRejected  Type = "request.rejected"
	RequestCancelled Type = "request.cancelled"
	SessionStarted   Type = "session.started"
	SessionEnded     Type = "session.ended"
	SessionCancelled Type = "session.cancelled"
	BookingCreated   Type = "booking.created"
	BookingCompleted Type = "booking.completed"
	BookingCancelled Type = "booking.cancelled"
	ResourceCreated  Type = "resource.created"
	ResourceUpdated  Type = "resource.updated"
	ResourceDeleted  Type = "resource.deleted"
)

// Event describes one committed change together with the resource's slot counters at
// commit time.
type Event struct {
	Type           Type       `json:"type"`
	ResourceID     uuid.UUID  `json:"resource_id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	UserID         uuid.UUID  `json:"user_id"`
	RequestID      *uuid.UUID `json:"request_id,omitempty"`
	BookingID      *uuid.UUID `json:"booking_id,omitempty"`
	Status         string     `json:"status,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	DurationHours  float64    `json:"duration_hours,omitempty"`
	TotalSlots     int        `json:"total_slots"`
	AvailableSlots int        `json:"available_slots"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// Notifier receives events after commit. Implementations must not block for long and
// must not fail the caller; delivery problems are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event)

func (f NotifierFunc) Notify(ctx context.Context, event Event) { f(ctx, event) }

// Fanout delivers every event to each notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// Nop drops every event.
var Nop Notifier = NotifierFunc(func(context.Context, Event) {})
