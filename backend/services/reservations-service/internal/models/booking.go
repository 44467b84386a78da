package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a confirmed booking.
type BookingStatus string

const (
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a confirmed reservation. While active it holds one slot of its resource.
type Booking struct {
	ID                uuid.UUID     `db:"id" json:"id"`
	UserID            uuid.UUID     `db:"user_id" json:"user_id"`
	ResourceID        uuid.UUID     `db:"resource_id" json:"resource_id"`
	RequestID         *uuid.UUID    `db:"request_id" json:"request_id,omitempty"`
	StartTime         time.Time     `db:"start_time" json:"start_time"`
	EndTime           time.Time     `db:"end_time" json:"end_time"`
	DurationHours     float64       `db:"duration_hours" json:"duration_hours"`
	Status            BookingStatus `db:"status" json:"status"`
	GreenPointsEarned int           `db:"green_points_earned" json:"green_points_earned"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// EndTimeFor computes start + duration.
func EndTimeFor(start time.Time, durationHours float64) time.Time {
	return start.Add(time.Duration(durationHours * float64(time.Hour)))
}

// HoldsSlot reports whether the booking currently occupies a slot.
func (b *Booking) HoldsSlot() bool { return b.Status == BookingActive }

func (b *Booking) ReservationID() uuid.UUID { return b.ID }
func (b *Booking) ResourceRef() uuid.UUID   { return b.ResourceID }
func (b *Booking) RequesterRef() uuid.UUID  { return b.UserID }
func (b *Booking) Kind() ReservationKind    { return KindBooking }
func (b *Booking) StatusName() string       { return string(b.Status) }
