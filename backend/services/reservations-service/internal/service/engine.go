package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/events"
	"greencharge/backend/services/reservations-service/internal/ledger"
	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/registry"
	"greencharge/backend/services/reservations-service/internal/repository"
)

const (
	MinDurationHours = 0.5
	MaxDurationHours = 1.5

	DefaultPointsPerSession = 10
	DefaultCO2PerSessionKg  = 1.2
)

// Rewards holds the fixed award granted for every booking.
type Rewards struct {
	PointsPerSession int
	CO2PerSessionKg  float64
}

// DefaultRewards returns the stock award constants.
func DefaultRewards() Rewards {
	return Rewards{PointsPerSession: DefaultPointsPerSession, CO2PerSessionKg: DefaultCO2PerSessionKg}
}

// Engine runs the reservation lifecycle. Every operation is a single unit of work against
// the store: either all paired changes (status, slot counter, ledger) commit or none do.
type Engine struct {
	store    repository.Store
	rewards  Rewards
	notifier events.Notifier
	metrics  *Metrics
	tracer   trace.Tracer
	now      func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithNotifier sets the receiver of committed events.
func WithNotifier(n events.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics enables operation counters.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds the engine. Zero reward fields fall back to the defaults.
func NewEngine(store repository.Store, rewards Rewards, opts ...Option) *Engine {
	if rewards.PointsPerSession <= 0 {
		rewards.PointsPerSession = DefaultPointsPerSession
	}
	if rewards.CO2PerSessionKg <= 0 {
		rewards.CO2PerSessionKg = DefaultCO2PerSessionKg
	}
	e := &Engine{
		store:    store,
		rewards:  rewards,
		notifier: events.Nop,
		tracer:   otel.Tracer("reservations.engine"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateReservationInput is shared by booking requests and direct bookings.
type CreateReservationInput struct {
	ResourceID    uuid.UUID `json:"resource_id"`
	StartTime     time.Time `json:"start_time"`
	DurationHours float64   `json:"duration_hours"`
}

func (in CreateReservationInput) validate() error {
	if in.ResourceID == uuid.Nil {
		return apperror.Validation("resource_id is required")
	}
	if in.StartTime.IsZero() {
		return apperror.Validation("start_time is required")
	}
	if in.DurationHours < MinDurationHours || in.DurationHours > MaxDurationHours {
		return apperror.Validation("duration_hours must be between %.1f and %.1f", MinDurationHours, MaxDurationHours)
	}
	return nil
}

// unit is the per-transaction view handed to operation bodies.
type unit struct {
	q       repository.Queries
	slots   *registry.Registry
	ledger  *ledger.Ledger
	now     time.Time
	pending []events.Event
}

func (e *Engine) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context, u *unit) error) error {
	ctx, span := e.tracer.Start(ctx, "reservations."+op, trace.WithAttributes(attrs...))
	defer span.End()

	var committed []events.Event
	err := e.store.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		u := &unit{q: q, slots: registry.New(q), ledger: ledger.New(q), now: e.now().UTC()}
		if err := fn(ctx, u); err != nil {
			return err
		}
		committed = u.pending
		return nil
	})
	e.metrics.observe(op, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, op)

	for _, ev := range committed {
		e.notifier.Notify(ctx, ev)
	}
	return nil
}

func (e *Engine) view(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	return e.store.View(ctx, fn)
}

// emit queues an event carrying the resource's counters as of this unit of work.
func (u *unit) emit(ctx context.Context, ev events.Event) error {
	resource, err := u.q.GetResource(ctx, ev.ResourceID)
	if err != nil {
		return fmt.Errorf("load resource for event: %w", err)
	}
	ev.OwnerID = resource.OwnerID
	ev.TotalSlots = resource.TotalSlots
	ev.AvailableSlots = resource.AvailableSlots
	ev.OccurredAt = u.now
	u.pending = append(u.pending, ev)
	return nil
}

func requestEvent(typ events.Type, req *models.BookingRequest) events.Event {
	id := req.ID
	start := req.StartTime
	return events.Event{
		Type:          typ,
		ResourceID:    req.ResourceID,
		UserID:        req.UserID,
		RequestID:     &id,
		BookingID:     req.BookingID,
		Status:        string(req.Status),
		StartTime:     &start,
		DurationHours: req.DurationHours,
	}
}

func bookingEvent(typ events.Type, b *models.Booking) events.Event {
	id := b.ID
	start := b.StartTime
	return events.Event{
		Type:          typ,
		ResourceID:    b.ResourceID,
		UserID:        b.UserID,
		RequestID:     b.RequestID,
		BookingID:     &id,
		Status:        string(b.Status),
		StartTime:     &start,
		DurationHours: b.DurationHours,
	}
}

// openBooking takes a slot, records an active booking and awards the session. Both the
// direct path and request approval go through here.
func (e *Engine) openBooking(ctx context.Context, u *unit, userID, resourceID uuid.UUID, start time.Time, hours float64, requestID *uuid.UUID) (*models.Booking, error) {
	if err := u.slots.ReserveSlot(ctx, resourceID); err != nil {
		return nil, err
	}
	booking := &models.Booking{
		ID:                uuid.New(),
		UserID:            userID,
		ResourceID:        resourceID,
		RequestID:         requestID,
		StartTime:         start.UTC(),
		EndTime:           models.EndTimeFor(start.UTC(), hours),
		DurationHours:     hours,
		Status:            models.BookingActive,
		GreenPointsEarned: e.rewards.PointsPerSession,
		CreatedAt:         u.now,
		UpdatedAt:         u.now,
	}
	if err := u.q.InsertBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	if err := u.ledger.AwardSession(ctx, userID, hours, e.rewards.CO2PerSessionKg, booking.GreenPointsEarned); err != nil {
		return nil, err
	}
	return booking, nil
}

// closeBooking moves an active booking to completed or cancelled and returns its slot.
// Cancellation also revokes exactly the points the booking recorded.
func closeBooking(ctx context.Context, u *unit, b *models.Booking, status models.BookingStatus) error {
	if err := u.q.UpdateBookingStatus(ctx, b.ID, status, u.now); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	b.Status = status
	b.UpdatedAt = u.now
	if err := u.slots.ReleaseSlot(ctx, b.ResourceID); err != nil {
		return err
	}
	if status == models.BookingCancelled {
		return u.ledger.RevokePoints(ctx, b.UserID, b.GreenPointsEarned)
	}
	return nil
}

func loadResource(ctx context.Context, q repository.Queries, id uuid.UUID) (*models.Resource, error) {
	resource, err := q.GetResource(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("resource %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}
	return resource, nil
}

// lockResource holds the resource row until the unit of work ends so retiring a charger
// and reserving on it cannot interleave. Retired resources are reported as missing.
func lockResource(ctx context.Context, q repository.Queries, id uuid.UUID) (*models.Resource, error) {
	resource, err := q.LockResource(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("resource %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("lock resource: %w", err)
	}
	if resource.Deleted() {
		return nil, apperror.NotFound("resource %s not found", id)
	}
	return resource, nil
}

func lockRequest(ctx context.Context, q repository.Queries, id uuid.UUID) (*models.BookingRequest, error) {
	req, err := q.LockBookingRequest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("booking request %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load booking request: %w", err)
	}
	annotate(ctx, req)
	return req, nil
}

// lockBooking locks the booking and, for a request-linked booking, its request first so
// lock order matches the request-driven operations.
func lockBooking(ctx context.Context, q repository.Queries, id uuid.UUID) (*models.Booking, *models.BookingRequest, error) {
	b, err := q.GetBooking(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, apperror.NotFound("booking %s not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load booking: %w", err)
	}
	var req *models.BookingRequest
	if b.RequestID != nil {
		if req, err = lockRequest(ctx, q, *b.RequestID); err != nil {
			return nil, nil, err
		}
	}
	if b, err = q.LockBooking(ctx, id); err != nil {
		return nil, nil, fmt.Errorf("lock booking: %w", err)
	}
	annotate(ctx, b)
	return b, req, nil
}

// annotate records the reservation's state before the operation changes it.
func annotate(ctx context.Context, r models.Reservation) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String(string(r.Kind())+".id", r.ReservationID().String()),
		attribute.String(string(r.Kind())+".status_before", r.StatusName()),
		attribute.String("resource.id", r.ResourceRef().String()),
		attribute.String("user.id", r.RequesterRef().String()),
	)
}

// authorizeOwner checks the caller against the resource's current owner rather than
// the copy stored on the request.
func authorizeOwner(ctx context.Context, q repository.Queries, req *models.BookingRequest, ownerID uuid.UUID) error {
	resource, err := loadResource(ctx, q, req.ResourceID)
	if err != nil {
		return err
	}
	if resource.OwnerID != ownerID {
		return apperror.Forbidden("only the charger owner can manage this booking request")
	}
	return nil
}

func transition(req *models.BookingRequest, next models.RequestStatus, verb string) error {
	if !req.Status.CanTransitionTo(next) {
		return apperror.InvalidState("cannot %s booking request: status is %s", verb, req.Status)
	}
	return nil
}

// CreateBookingRequest records a pending request. Capacity is not checked here; pending
// requests compete for slots at approval time.
func (e *Engine) CreateBookingRequest(ctx context.Context, driverID uuid.UUID, in CreateReservationInput) (*models.BookingRequest, error) {
	if err := in.validate(); err != nil {
		e.metrics.observe("create_booking_request", err)
		return nil, err
	}
	var out *models.BookingRequest
	err := e.run(ctx, "create_booking_request", resourceAttrs(in.ResourceID), func(ctx context.Context, u *unit) error {
		resource, err := lockResource(ctx, u.q, in.ResourceID)
		if err != nil {
			return err
		}
		req := &models.BookingRequest{
			ID:            uuid.New(),
			UserID:        driverID,
			ResourceID:    resource.ID,
			OwnerID:       resource.OwnerID,
			StartTime:     in.StartTime.UTC(),
			DurationHours: in.DurationHours,
			Status:        models.RequestPending,
			CreatedAt:     u.now,
			UpdatedAt:     u.now,
		}
		if err := u.q.InsertBookingRequest(ctx, req); err != nil {
			return fmt.Errorf("insert booking request: %w", err)
		}
		out = req
		return u.emit(ctx, requestEvent(events.RequestCreated, req))
	})
	return out, err
}

// ApproveBookingRequest takes a slot for the request and materializes its booking. When
// the resource is full the request stays pending and a retryable capacity error is returned.
func (e *Engine) ApproveBookingRequest(ctx context.Context, ownerID, requestID uuid.UUID) (*models.BookingRequest, *models.Booking, error) {
	var (
		outReq     *models.BookingRequest
		outBooking *models.Booking
	)
	err := e.run(ctx, "approve_booking_request", requestAttrs(requestID), func(ctx context.Context, u *unit) error {
		req, err := lockRequest(ctx, u.q, requestID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, u.q, req, ownerID); err != nil {
			return err
		}
		if err := transition(req, models.RequestApproved, "approve"); err != nil {
			return err
		}
		booking, err := e.openBooking(ctx, u, req.UserID, req.ResourceID, req.StartTime, req.DurationHours, &req.ID)
		if err != nil {
			return err
		}
		now := u.now
		req.Status = models.RequestApproved
		req.ApprovedAt = &now
		req.BookingID = &booking.ID
		req.UpdatedAt = now
		if err := u.q.UpdateBookingRequest(ctx, req); err != nil {
			return fmt.Errorf("update booking request: %w", err)
		}
		outReq, outBooking = req, booking
		return u.emit(ctx, requestEvent(events.RequestApproved, req))
	})
	return outReq, outBooking, err
}

// RejectBookingRequest closes a pending request with the owner's reason.
func (e *Engine) RejectBookingRequest(ctx context.Context, ownerID, requestID uuid.UUID, reason string) (*models.BookingRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		err := apperror.Validation("rejection reason is required")
		e.metrics.observe("reject_booking_request", err)
		return nil, err
	}
	return e.ownerRequestTransition(ctx, "reject_booking_request", ownerID, requestID, models.RequestRejected, "reject",
		func(req *models.BookingRequest, now time.Time) {
			req.RejectionReason = reason
		}, events.RequestRejected)
}

// StartChargingSession marks an approved request as charging.
func (e *Engine) StartChargingSession(ctx context.Context, ownerID, requestID uuid.UUID) (*models.BookingRequest, error) {
	return e.ownerRequestTransition(ctx, "start_charging_session", ownerID, requestID, models.RequestSessionActive, "start session for",
		func(req *models.BookingRequest, now time.Time) {
			req.SessionStartedAt = &now
		}, events.SessionStarted)
}

// EndChargingSession marks a running session as ended. The slot stays held by the
// request's booking until that booking completes.
func (e *Engine) EndChargingSession(ctx context.Context, ownerID, requestID uuid.UUID) (*models.BookingRequest, error) {
	return e.ownerRequestTransition(ctx, "end_charging_session", ownerID, requestID, models.RequestSessionEnded, "end session for",
		func(req *models.BookingRequest, now time.Time) {
			req.SessionEndedAt = &now
		}, events.SessionEnded)
}

func (e *Engine) ownerRequestTransition(
	ctx context.Context,
	op string,
	ownerID, requestID uuid.UUID,
	next models.RequestStatus,
	verb string,
	apply func(req *models.BookingRequest, now time.Time),
	eventType events.Type,
) (*models.BookingRequest, error) {
	var out *models.BookingRequest
	err := e.run(ctx, op, requestAttrs(requestID), func(ctx context.Context, u *unit) error {
		req, err := lockRequest(ctx, u.q, requestID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, u.q, req, ownerID); err != nil {
			return err
		}
		if err := transition(req, next, verb); err != nil {
			return err
		}
		req.Status = next
		req.UpdatedAt = u.now
		apply(req, u.now)
		if err := u.q.UpdateBookingRequest(ctx, req); err != nil {
			return fmt.Errorf("update booking request: %w", err)
		}
		out = req
		return u.emit(ctx, requestEvent(eventType, req))
	})
	return out, err
}

// CancelApprovedSession withdraws an approved request before charging starts. Its booking
// is cancelled, which returns the slot and revokes the booking's points.
func (e *Engine) CancelApprovedSession(ctx context.Context, ownerID, requestID uuid.UUID) (*models.BookingRequest, error) {
	var out *models.BookingRequest
	err := e.run(ctx, "cancel_approved_session", requestAttrs(requestID), func(ctx context.Context, u *unit) error {
		req, err := lockRequest(ctx, u.q, requestID)
		if err != nil {
			return err
		}
		if err := authorizeOwner(ctx, u.q, req, ownerID); err != nil {
			return err
		}
		if err := transition(req, models.RequestSessionCancelled, "cancel session for"); err != nil {
			return err
		}
		if err := e.releaseRequestBooking(ctx, u, req); err != nil {
			return err
		}
		now := u.now
		req.Status = models.RequestSessionCancelled
		req.CancelledAt = &now
		req.UpdatedAt = now
		if err := u.q.UpdateBookingRequest(ctx, req); err != nil {
			return fmt.Errorf("update booking request: %w", err)
		}
		out = req
		return u.emit(ctx, requestEvent(events.SessionCancelled, req))
	})
	return out, err
}

// releaseRequestBooking cancels the booking materialized at approval. Requests approved
// without a booking record only get their slot back.
func (e *Engine) releaseRequestBooking(ctx context.Context, u *unit, req *models.BookingRequest) error {
	if req.BookingID == nil {
		return u.slots.ReleaseSlot(ctx, req.ResourceID)
	}
	booking, err := u.q.LockBooking(ctx, *req.BookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return u.slots.ReleaseSlot(ctx, req.ResourceID)
	}
	if err != nil {
		return fmt.Errorf("lock booking: %w", err)
	}
	if !booking.HoldsSlot() {
		return nil
	}
	return closeBooking(ctx, u, booking, models.BookingCancelled)
}

// CancelBookingRequest withdraws a pending request on behalf of its driver.
func (e *Engine) CancelBookingRequest(ctx context.Context, driverID, requestID uuid.UUID) (*models.BookingRequest, error) {
	var out *models.BookingRequest
	err := e.run(ctx, "cancel_booking_request", requestAttrs(requestID), func(ctx context.Context, u *unit) error {
		req, err := lockRequest(ctx, u.q, requestID)
		if err != nil {
			return err
		}
		if req.UserID != driverID {
			return apperror.Forbidden("only the requesting driver can cancel this booking request")
		}
		if err := transition(req, models.RequestCancelled, "cancel"); err != nil {
			return err
		}
		now := u.now
		req.Status = models.RequestCancelled
		req.CancelledAt = &now
		req.UpdatedAt = now
		if err := u.q.UpdateBookingRequest(ctx, req); err != nil {
			return fmt.Errorf("update booking request: %w", err)
		}
		out = req
		return u.emit(ctx, requestEvent(events.RequestCancelled, req))
	})
	return out, err
}

// CreateBooking books a slot immediately, without owner approval.
func (e *Engine) CreateBooking(ctx context.Context, driverID uuid.UUID, in CreateReservationInput) (*models.Booking, error) {
	if err := in.validate(); err != nil {
		e.metrics.observe("create_booking", err)
		return nil, err
	}
	var out *models.Booking
	err := e.run(ctx, "create_booking", resourceAttrs(in.ResourceID), func(ctx context.Context, u *unit) error {
		booking, err := e.openBooking(ctx, u, driverID, in.ResourceID, in.StartTime, in.DurationHours, nil)
		if err != nil {
			return err
		}
		out = booking
		return u.emit(ctx, bookingEvent(events.BookingCreated, booking))
	})
	return out, err
}

// CompleteBooking finishes an active booking and frees its slot. Earned points stand.
// A booking created by approval completes only after its session has ended.
func (e *Engine) CompleteBooking(ctx context.Context, driverID, bookingID uuid.UUID) (*models.Booking, error) {
	var out *models.Booking
	err := e.run(ctx, "complete_booking", bookingAttrs(bookingID), func(ctx context.Context, u *unit) error {
		booking, req, err := lockBooking(ctx, u.q, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != driverID {
			return apperror.Forbidden("only the booking's driver can complete it")
		}
		if !booking.HoldsSlot() {
			return apperror.InvalidState("cannot complete booking: status is %s", booking.Status)
		}
		if req != nil && req.Status != models.RequestSessionEnded {
			return apperror.InvalidState("cannot complete booking: booking request status is %s", req.Status)
		}
		if err := closeBooking(ctx, u, booking, models.BookingCompleted); err != nil {
			return err
		}
		out = booking
		return u.emit(ctx, bookingEvent(events.BookingCompleted, booking))
	})
	return out, err
}

// CancelBooking cancels an active booking, frees its slot and revokes the points it
// recorded. A booking created by approval can be cancelled only before its session
// starts; its request moves to session_cancelled.
func (e *Engine) CancelBooking(ctx context.Context, driverID, bookingID uuid.UUID) (*models.Booking, error) {
	var out *models.Booking
	err := e.run(ctx, "cancel_booking", bookingAttrs(bookingID), func(ctx context.Context, u *unit) error {
		booking, req, err := lockBooking(ctx, u.q, bookingID)
		if err != nil {
			return err
		}
		if booking.UserID != driverID {
			return apperror.Forbidden("only the booking's driver can cancel it")
		}
		if !booking.HoldsSlot() {
			return apperror.InvalidState("cannot cancel booking: status is %s", booking.Status)
		}
		if req != nil {
			if !req.Status.CanTransitionTo(models.RequestSessionCancelled) {
				return apperror.InvalidState("cannot cancel booking: booking request status is %s", req.Status)
			}
			now := u.now
			req.Status = models.RequestSessionCancelled
			req.CancelledAt = &now
			req.UpdatedAt = now
			if err := u.q.UpdateBookingRequest(ctx, req); err != nil {
				return fmt.Errorf("update booking request: %w", err)
			}
		}
		if err := closeBooking(ctx, u, booking, models.BookingCancelled); err != nil {
			return err
		}
		out = booking
		return u.emit(ctx, bookingEvent(events.BookingCancelled, booking))
	})
	return out, err
}

func resourceAttrs(id uuid.UUID) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("resource.id", id.String())}
}

func requestAttrs(id uuid.UUID) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("booking_request.id", id.String())}
}

func bookingAttrs(id uuid.UUID) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String("booking.id", id.String())}
}
