package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/repository"
)

// GetBookingRequest returns a request visible to its driver or the charger owner.
func (e *Engine) GetBookingRequest(ctx context.Context, callerID, requestID uuid.UUID) (*models.BookingRequest, error) {
	var out *models.BookingRequest
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		req, err := q.GetBookingRequest(ctx, requestID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("booking request %s not found", requestID)
		}
		if err != nil {
			return fmt.Errorf("load booking request: %w", err)
		}
		if err := authorizeReader(ctx, q, callerID, req.UserID, req.ResourceID); err != nil {
			return err
		}
		out = req
		return nil
	})
	return out, err
}

// GetBooking returns a booking visible to its driver or the charger owner.
func (e *Engine) GetBooking(ctx context.Context, callerID, bookingID uuid.UUID) (*models.Booking, error) {
	var out *models.Booking
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		b, err := q.GetBooking(ctx, bookingID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("booking %s not found", bookingID)
		}
		if err != nil {
			return fmt.Errorf("load booking: %w", err)
		}
		if err := authorizeReader(ctx, q, callerID, b.UserID, b.ResourceID); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

func authorizeReader(ctx context.Context, q repository.Queries, callerID, driverID, resourceID uuid.UUID) error {
	if callerID == driverID {
		return nil
	}
	resource, err := loadResource(ctx, q, resourceID)
	if err != nil {
		return err
	}
	if resource.OwnerID != callerID {
		return apperror.Forbidden("not allowed to view this reservation")
	}
	return nil
}

// ListDriverBookings returns the driver's bookings, newest start first.
func (e *Engine) ListDriverBookings(ctx context.Context, driverID uuid.UUID, limit int) ([]models.Booking, error) {
	var out []models.Booking
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		out, err = q.ListBookings(ctx, repository.BookingFilter{UserID: &driverID, Limit: limit})
		return err
	})
	return out, err
}

// ListDriverRequests returns the driver's booking requests, newest first.
func (e *Engine) ListDriverRequests(ctx context.Context, driverID uuid.UUID, limit int) ([]models.BookingRequest, error) {
	var out []models.BookingRequest
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		out, err = q.ListBookingRequests(ctx, repository.RequestFilter{UserID: &driverID, Limit: limit})
		return err
	})
	return out, err
}

// ListOwnerRequests returns requests addressed to the owner, optionally by status.
func (e *Engine) ListOwnerRequests(ctx context.Context, ownerID uuid.UUID, status models.RequestStatus, limit int) ([]models.BookingRequest, error) {
	if status != "" && !status.Valid() {
		return nil, apperror.Validation("unknown booking request status %q", status)
	}
	var out []models.BookingRequest
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		out, err = q.ListBookingRequests(ctx, repository.RequestFilter{OwnerID: &ownerID, Status: status, Limit: limit})
		return err
	})
	return out, err
}

// ListResourceBookings returns bookings of one charger for its owner.
func (e *Engine) ListResourceBookings(ctx context.Context, ownerID, resourceID uuid.UUID, limit int) ([]models.Booking, error) {
	var out []models.Booking
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		resource, err := loadResource(ctx, q, resourceID)
		if err != nil {
			return err
		}
		if resource.OwnerID != ownerID {
			return apperror.Forbidden("only the charger owner can list its bookings")
		}
		out, err = q.ListBookings(ctx, repository.BookingFilter{ResourceID: &resourceID, Limit: limit})
		return err
	})
	return out, err
}

// AuditSlots compares each resource's counter with its active bookings and records the
// difference. Nothing is repaired.
func (e *Engine) AuditSlots(ctx context.Context) ([]repository.SlotUsage, error) {
	var drifted []repository.SlotUsage
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		usage, err := q.SlotUsage(ctx)
		if err != nil {
			return err
		}
		for _, u := range usage {
			e.metrics.SetDrift(u.ResourceID, u.Drift())
			if u.Drift() != 0 {
				drifted = append(drifted, u)
			}
		}
		return nil
	})
	return drifted, err
}
