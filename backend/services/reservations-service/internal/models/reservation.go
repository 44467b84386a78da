package models

import "github.com/google/uuid"

// ReservationKind tells the two reservation variants apart.
type ReservationKind string

const (
	KindBooking ReservationKind = "booking"
	KindRequest ReservationKind = "booking_request"
)

// Reservation is implemented by *Booking and *BookingRequest. Both variants settle slot
// and ledger effects through the booking that holds the slot.
type Reservation interface {
	ReservationID() uuid.UUID
	ResourceRef() uuid.UUID
	RequesterRef() uuid.UUID
	Kind() ReservationKind
	StatusName() string
}

var (
	_ Reservation = (*Booking)(nil)
	_ Reservation = (*BookingRequest)(nil)
)
