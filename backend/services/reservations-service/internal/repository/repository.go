package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/models"
)

// ErrNotFound indicates a missing row.
var ErrNotFound = errors.New("repository: not found")

const defaultListLimit = 50

// ResourceFilter narrows resource listings.
type ResourceFilter struct {
	OwnerID *uuid.UUID
	Limit   int
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	UserID     *uuid.UUID
	ResourceID *uuid.UUID
	Status     models.BookingStatus
	Limit      int
}

// RequestFilter narrows booking request listings.
type RequestFilter struct {
	UserID  *uuid.UUID
	OwnerID *uuid.UUID
	Status  models.RequestStatus
	Limit   int
}

// SlotUsage pairs a resource's counters with the number of bookings holding a slot.
type SlotUsage struct {
	ResourceID     uuid.UUID
	TotalSlots     int
	AvailableSlots int
	ActiveBookings int
}

// Drift is the number of slots neither free nor held by an active booking.
func (u SlotUsage) Drift() int {
	return u.TotalSlots - u.AvailableSlots - u.ActiveBookings
}

// Queries is the full read/write surface available inside a unit of work.
type Queries interface {
	// GetResource returns retired resources too; callers decide whether that matters.
	GetResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	// LockResource reads the resource and holds its row until the unit of work ends.
	LockResource(ctx context.Context, id uuid.UUID) (*models.Resource, error)
	// ListResources skips retired resources.
	ListResources(ctx context.Context, filter ResourceFilter) ([]models.Resource, error)
	InsertResource(ctx context.Context, resource *models.Resource) error
	UpdateResourceDetails(ctx context.Context, resource *models.Resource) error
	// RetireResource marks the resource deleted. Bookings and requests keep pointing at it.
	RetireResource(ctx context.Context, id uuid.UUID, at time.Time) error
	// ReserveSlot decrements available_slots only when it is positive; false means no free
	// slot. A retired resource reports ErrNotFound.
	ReserveSlot(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseSlot increments available_slots, never beyond total_slots.
	ReleaseSlot(ctx context.Context, id uuid.UUID) error

	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	UpsertAccount(ctx context.Context, account *models.Account) error
	AwardSession(ctx context.Context, id uuid.UUID, hours, co2Kg float64, points int) error
	RevokePoints(ctx context.Context, id uuid.UUID, points int) error

	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	InsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status models.BookingStatus, at time.Time) error
	ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	CountActiveBookings(ctx context.Context, resourceID uuid.UUID) (int, error)

	GetBookingRequest(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
	LockBookingRequest(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error)
	InsertBookingRequest(ctx context.Context, request *models.BookingRequest) error
	UpdateBookingRequest(ctx context.Context, request *models.BookingRequest) error
	ListBookingRequests(ctx context.Context, filter RequestFilter) ([]models.BookingRequest, error)
	CountPendingRequests(ctx context.Context, resourceID uuid.UUID) (int, error)

	SlotUsage(ctx context.Context) ([]SlotUsage, error)
}

// Store runs units of work. InTx commits every write made through Queries when fn returns
// nil and discards all of them otherwise. View is for reads only.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
	View(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
