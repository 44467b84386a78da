package service

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/repository"
)

func ptr[T any](v T) *T { return &v }

func TestCreateResourceDefaults(t *testing.T) {
	f := newFixture(t)
	r, err := f.engine.CreateResource(context.Background(), f.owner, CreateResourceInput{
		Name:      "  Corner Garage ",
		Address:   "5 Elm Rd",
		Latitude:  ptr(40.7),
		Longitude: ptr(-74.0),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.ChargerType != models.ChargerLevel2 || r.TotalSlots != models.DefaultTotalSlots || r.AvailableSlots != r.TotalSlots {
		t.Fatalf("unexpected defaults: %+v", r)
	}
	if r.Name != "Corner Garage" || r.OwnerID != f.owner {
		t.Fatalf("unexpected resource: %+v", r)
	}
}

func TestCreateResourceValidation(t *testing.T) {
	f := newFixture(t)
	valid := func() CreateResourceInput {
		return CreateResourceInput{Name: "A", Address: "B", Latitude: ptr(1.0), Longitude: ptr(1.0)}
	}
	cases := map[string]func(in *CreateResourceInput){
		"missing name":      func(in *CreateResourceInput) { in.Name = " " },
		"missing address":   func(in *CreateResourceInput) { in.Address = "" },
		"missing latitude":  func(in *CreateResourceInput) { in.Latitude = nil },
		"latitude range":    func(in *CreateResourceInput) { in.Latitude = ptr(91.0) },
		"unknown charger":   func(in *CreateResourceInput) { in.ChargerType = "Level 9" },
		"negative slots":    func(in *CreateResourceInput) { in.TotalSlots = -1 },
		"negative price":    func(in *CreateResourceInput) { in.PricePerHour = -2 },
		"longitude too low": func(in *CreateResourceInput) { in.Longitude = ptr(-181.0) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := valid()
			mutate(&in)
			_, err := f.engine.CreateResource(context.Background(), f.owner, in)
			requireKind(t, err, apperror.ErrValidation)
		})
	}
	resources, _ := f.engine.ListOwnerResources(context.Background(), f.owner, 0)
	if len(resources) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(resources))
	}
}

func TestUpdateResourceTouchesOnlyListedFields(t *testing.T) {
	f := newFixture(t)
	r := f.resource(2)
	f.approve(f.request(f.driver(), r.ID).ID)

	updated, err := f.engine.UpdateResource(context.Background(), f.owner, r.ID, models.ResourceUpdate{
		Name:         ptr("Renamed"),
		ChargerType:  ptr(models.ChargerDCFast),
		PricePerHour: ptr(4.5),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed" || updated.ChargerType != models.ChargerDCFast || updated.PricePerHour != 4.5 {
		t.Fatalf("fields not applied: %+v", updated)
	}
	if updated.Address != r.Address || updated.TotalSlots != 2 {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if got := f.available(r.ID); got != 1 {
		t.Fatalf("update must not touch slot counters, got %d", got)
	}
}

func TestUpdateResourceRejections(t *testing.T) {
	f := newFixture(t)
	r := f.resource(1)
	ctx := context.Background()

	_, err := f.engine.UpdateResource(ctx, f.owner, r.ID, models.ResourceUpdate{})
	requireKind(t, err, apperror.ErrValidation)
	_, err = f.engine.UpdateResource(ctx, f.owner, r.ID, models.ResourceUpdate{ChargerType: ptr(models.ChargerType("Turbo"))})
	requireKind(t, err, apperror.ErrValidation)
	_, err = f.engine.UpdateResource(ctx, uuid.New(), r.ID, models.ResourceUpdate{Name: ptr("Mine")})
	requireKind(t, err, apperror.ErrForbidden)
	_, err = f.engine.UpdateResource(ctx, f.owner, uuid.New(), models.ResourceUpdate{Name: ptr("Ghost")})
	requireKind(t, err, apperror.ErrNotFound)
}

func TestDeleteResourceRefusedWhileBooked(t *testing.T) {
	f := newFixture(t)
	r := f.resource(1)
	driver := f.driver()
	ctx := context.Background()

	booking, err := f.engine.CreateBooking(ctx, driver, CreateReservationInput{
		ResourceID: r.ID, StartTime: testStart, DurationHours: 1.0,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	requireKind(t, f.engine.DeleteResource(ctx, uuid.New(), r.ID), apperror.ErrForbidden)
	requireKind(t, f.engine.DeleteResource(ctx, f.owner, r.ID), apperror.ErrInvalidState)

	if _, err := f.engine.CompleteBooking(ctx, driver, booking.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := f.engine.DeleteResource(ctx, f.owner, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.engine.GetResource(ctx, r.ID)
	requireKind(t, err, apperror.ErrNotFound)
}

func TestDeleteResourceRefusedWhileRequestPending(t *testing.T) {
	f := newFixture(t)
	r := f.resource(2)
	driver := f.driver()
	ctx := context.Background()
	req := f.request(driver, r.ID)

	requireKind(t, f.engine.DeleteResource(ctx, f.owner, r.ID), apperror.ErrInvalidState)
	if got := f.requestStatus(req.ID); got != models.RequestPending {
		t.Fatalf("expected request to stay pending, got %s", got)
	}

	if _, err := f.engine.CancelBookingRequest(ctx, driver, req.ID); err != nil {
		t.Fatalf("cancel request: %v", err)
	}
	if err := f.engine.DeleteResource(ctx, f.owner, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := f.engine.GetBookingRequest(ctx, driver, req.ID)
	if err != nil {
		t.Fatalf("request history lost: %v", err)
	}
	if got.Status != models.RequestCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestDeletedResourceKeepsHistoryAndTakesNoReservations(t *testing.T) {
	f := newFixture(t)
	r := f.resource(1)
	driver := f.driver()
	ctx := context.Background()
	in := CreateReservationInput{ResourceID: r.ID, StartTime: testStart, DurationHours: 1.0}

	booking, err := f.engine.CreateBooking(ctx, driver, in)
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if _, err := f.engine.CompleteBooking(ctx, driver, booking.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := f.engine.DeleteResource(ctx, f.owner, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.engine.GetBooking(ctx, driver, booking.ID); err != nil {
		t.Fatalf("driver lost booking history: %v", err)
	}
	history, err := f.engine.ListDriverBookings(ctx, driver, 0)
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(history) != 1 || history[0].Status != models.BookingCompleted {
		t.Fatalf("expected one completed booking, got %+v", history)
	}

	_, err = f.engine.CreateBooking(ctx, driver, in)
	requireKind(t, err, apperror.ErrNotFound)
	_, err = f.engine.CreateBookingRequest(ctx, driver, in)
	requireKind(t, err, apperror.ErrNotFound)
	name := "Renamed"
	_, err = f.engine.UpdateResource(ctx, f.owner, r.ID, models.ResourceUpdate{Name: &name})
	requireKind(t, err, apperror.ErrNotFound)
	requireKind(t, f.engine.DeleteResource(ctx, f.owner, r.ID), apperror.ErrNotFound)

	listed, err := f.engine.ListResources(ctx, 0)
	if err != nil {
		t.Fatalf("list resources: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected deleted resource to be unlisted, got %d", len(listed))
	}
	drifted, err := f.engine.AuditSlots(ctx)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(drifted) != 0 {
		t.Fatalf("expected no drift, got %+v", drifted)
	}
}

func TestProvisionAccountIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := uuid.New()

	account, err := f.engine.ProvisionAccount(ctx, ProvisionAccountInput{ID: id, Role: models.RoleDriver, Name: "Ari"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if account.GreenScore != models.InitialGreenScore {
		t.Fatalf("expected initial score %d, got %d", models.InitialGreenScore, account.GreenScore)
	}

	r := f.resource(1)
	if _, err := f.engine.CreateBooking(ctx, id, CreateReservationInput{ResourceID: r.ID, StartTime: testStart, DurationHours: 1.0}); err != nil {
		t.Fatalf("create booking: %v", err)
	}

	again, err := f.engine.ProvisionAccount(ctx, ProvisionAccountInput{ID: id, Role: models.RoleDriver, Name: "Ari B."})
	if err != nil {
		t.Fatalf("provision again: %v", err)
	}
	if again.GreenScore != 60 || again.TotalSessions != 1 || again.Name != "Ari B." {
		t.Fatalf("re-provisioning must keep counters: %+v", again)
	}
}

func TestProvisionAccountValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.ProvisionAccount(context.Background(), ProvisionAccountInput{Role: models.RoleDriver})
	requireKind(t, err, apperror.ErrValidation)
	_, err = f.engine.ProvisionAccount(context.Background(), ProvisionAccountInput{ID: uuid.New(), Role: "admin"})
	requireKind(t, err, apperror.ErrValidation)
}

// lockOrderStore records which resource queries a unit of work issues, in order.
type lockOrderStore struct {
	*repository.MemoryStore
	calls []string
}

func (s *lockOrderStore) InTx(ctx context.Context, fn func(ctx context.Context, q repository.Queries) error) error {
	return s.MemoryStore.InTx(ctx, func(ctx context.Context, q repository.Queries) error {
		return fn(ctx, &lockOrderQueries{Queries: q, store: s})
	})
}

type lockOrderQueries struct {
	repository.Queries
	store *lockOrderStore
}

func (q *lockOrderQueries) LockResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	q.store.calls = append(q.store.calls, "lock")
	return q.Queries.LockResource(ctx, id)
}

func (q *lockOrderQueries) CountActiveBookings(ctx context.Context, id uuid.UUID) (int, error) {
	q.store.calls = append(q.store.calls, "count_active")
	return q.Queries.CountActiveBookings(ctx, id)
}

func (q *lockOrderQueries) CountPendingRequests(ctx context.Context, id uuid.UUID) (int, error) {
	q.store.calls = append(q.store.calls, "count_pending")
	return q.Queries.CountPendingRequests(ctx, id)
}

func (q *lockOrderQueries) RetireResource(ctx context.Context, id uuid.UUID, at time.Time) error {
	q.store.calls = append(q.store.calls, "retire")
	return q.Queries.RetireResource(ctx, id, at)
}

func TestDeleteAndRequestHoldResourceLock(t *testing.T) {
	store := &lockOrderStore{MemoryStore: repository.NewMemoryStore()}
	engine := NewEngine(store, DefaultRewards())
	owner := uuid.New()
	ctx := context.Background()
	lat, lng := 52.52, 13.40

	r, err := engine.CreateResource(ctx, owner, CreateResourceInput{Name: "Depot", Address: "1 Main St", Latitude: &lat, Longitude: &lng, TotalSlots: 1})
	if err != nil {
		t.Fatalf("create resource: %v", err)
	}

	store.calls = nil
	req, err := engine.CreateBookingRequest(ctx, uuid.New(), CreateReservationInput{ResourceID: r.ID, StartTime: testStart, DurationHours: 1.0})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if !slices.Equal(store.calls, []string{"lock"}) {
		t.Fatalf("expected request creation to lock the resource, got %v", store.calls)
	}

	store.calls = nil
	requireKind(t, engine.DeleteResource(ctx, owner, r.ID), apperror.ErrInvalidState)
	if !slices.Equal(store.calls, []string{"lock", "count_active", "count_pending"}) {
		t.Fatalf("expected lock before counting, got %v", store.calls)
	}

	if _, err := engine.RejectBookingRequest(ctx, owner, req.ID, "closing"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	store.calls = nil
	if err := engine.DeleteResource(ctx, owner, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !slices.Equal(store.calls, []string{"lock", "count_active", "count_pending", "retire"}) {
		t.Fatalf("unexpected delete sequence %v", store.calls)
	}
}
