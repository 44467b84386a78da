package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of an owner-approved booking request.
type RequestStatus string

const (
	RequestPending          RequestStatus = "pending"
	RequestApproved         RequestStatus = "approved"
	RequestRejected         RequestStatus = "rejected"
	RequestSessionActive    RequestStatus = "session_active"
	RequestSessionEnded     RequestStatus = "session_ended"
	RequestSessionCancelled RequestStatus = "session_cancelled"
	RequestCancelled        RequestStatus = "cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:       {RequestApproved, RequestRejected, RequestCancelled},
	RequestApproved:      {RequestSessionActive, RequestSessionCancelled},
	RequestSessionActive: {RequestSessionEnded},
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected, RequestSessionActive,
		RequestSessionEnded, RequestSessionCancelled, RequestCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, candidate := range requestTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// BookingRequest is a driver's proposal awaiting (or past) the owner's decision.
type BookingRequest struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	UserID           uuid.UUID     `db:"user_id" json:"user_id"`
	ResourceID       uuid.UUID     `db:"resource_id" json:"resource_id"`
	OwnerID          uuid.UUID     `db:"owner_id" json:"owner_id"`
	StartTime        time.Time     `db:"start_time" json:"start_time"`
	DurationHours    float64       `db:"duration_hours" json:"duration_hours"`
	Status           RequestStatus `db:"status" json:"status"`
	BookingID        *uuid.UUID    `db:"booking_id" json:"booking_id,omitempty"`
	RejectionReason  string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	ApprovedAt       *time.Time    `db:"approved_at" json:"approved_at,omitempty"`
	SessionStartedAt *time.Time    `db:"session_started_at" json:"session_started_at,omitempty"`
	SessionEndedAt   *time.Time    `db:"session_ended_at" json:"session_ended_at,omitempty"`
	CancelledAt      *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

func (r *BookingRequest) ReservationID() uuid.UUID { return r.ID }
func (r *BookingRequest) ResourceRef() uuid.UUID   { return r.ResourceID }
func (r *BookingRequest) RequesterRef() uuid.UUID  { return r.UserID }
func (r *BookingRequest) Kind() ReservationKind    { return KindRequest }
func (r *BookingRequest) StatusName() string       { return string(r.Status) }
