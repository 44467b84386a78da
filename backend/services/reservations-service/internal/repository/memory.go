package repository

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/models"
)

type memoryState struct {
	resources map[uuid.UUID]models.Resource
	accounts  map[uuid.UUID]models.Account
	bookings  map[uuid.UUID]models.Booking
	requests  map[uuid.UUID]models.BookingRequest
}

func (s memoryState) clone() memoryState {
	return memoryState{
		resources: maps.Clone(s.resources),
		accounts:  maps.Clone(s.accounts),
		bookings:  maps.Clone(s.bookings),
		requests:  maps.Clone(s.requests),
	}
}

// MemoryStore keeps everything in process. Units of work are serialized by one mutex and
// a failed unit of work restores the snapshot taken when it started.
type MemoryStore struct {
	mu    sync.RWMutex
	state memoryState
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: memoryState{
		resources: make(map[uuid.UUID]models.Resource),
		accounts:  make(map[uuid.UUID]models.Account),
		bookings:  make(map[uuid.UUID]models.Booking),
		requests:  make(map[uuid.UUID]models.BookingRequest),
	}}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(ctx, &memoryQueries{state: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *MemoryStore) View(ctx context.Context, fn func(ctx context.Context, q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Getters and lists hand out copies, so readers share the live maps under the read lock.
	return fn(ctx, &memoryQueries{state: &m.state})
}

type memoryQueries struct {
	state *memoryState
}

func (q *memoryQueries) GetResource(_ context.Context, id uuid.UUID) (*models.Resource, error) {
	resource, ok := q.state.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &resource, nil
}

func (q *memoryQueries) LockResource(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	return q.GetResource(ctx, id)
}

func (q *memoryQueries) ListResources(_ context.Context, filter ResourceFilter) ([]models.Resource, error) {
	var out []models.Resource
	for _, r := range q.state.resources {
		if r.Deleted() {
			continue
		}
		if filter.OwnerID != nil && r.OwnerID != *filter.OwnerID {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.Resource) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return truncate(out, filter.Limit), nil
}

func (q *memoryQueries) InsertResource(_ context.Context, resource *models.Resource) error {
	q.state.resources[resource.ID] = *resource
	return nil
}

func (q *memoryQueries) UpdateResourceDetails(_ context.Context, resource *models.Resource) error {
	current, ok := q.state.resources[resource.ID]
	if !ok || current.Deleted() {
		return ErrNotFound
	}
	current.Name = resource.Name
	current.Description = resource.Description
	current.Address = resource.Address
	current.ChargerType = resource.ChargerType
	current.PricePerHour = resource.PricePerHour
	current.UpdatedAt = resource.UpdatedAt
	q.state.resources[resource.ID] = current
	return nil
}

func (q *memoryQueries) RetireResource(_ context.Context, id uuid.UUID, at time.Time) error {
	resource, ok := q.state.resources[id]
	if !ok || resource.Deleted() {
		return ErrNotFound
	}
	resource.DeletedAt = &at
	resource.UpdatedAt = at
	q.state.resources[id] = resource
	return nil
}

func (q *memoryQueries) ReserveSlot(_ context.Context, id uuid.UUID) (bool, error) {
	resource, ok := q.state.resources[id]
	if !ok || resource.Deleted() {
		return false, ErrNotFound
	}
	if resource.AvailableSlots <= 0 {
		return false, nil
	}
	resource.AvailableSlots--
	resource.UpdatedAt = time.Now().UTC()
	q.state.resources[id] = resource
	return true, nil
}

func (q *memoryQueries) ReleaseSlot(_ context.Context, id uuid.UUID) error {
	resource, ok := q.state.resources[id]
	if !ok {
		return ErrNotFound
	}
	resource.AvailableSlots = min(resource.TotalSlots, resource.AvailableSlots+1)
	resource.UpdatedAt = time.Now().UTC()
	q.state.resources[id] = resource
	return nil
}

func (q *memoryQueries) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	account, ok := q.state.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}

func (q *memoryQueries) UpsertAccount(_ context.Context, account *models.Account) error {
	if current, ok := q.state.accounts[account.ID]; ok {
		current.Name = account.Name
		current.Email = account.Email
		q.state.accounts[account.ID] = current
		*account = current
		return nil
	}
	q.state.accounts[account.ID] = *account
	return nil
}

func (q *memoryQueries) AwardSession(_ context.Context, id uuid.UUID, hours, co2Kg float64, points int) error {
	account, ok := q.state.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.AwardSession(hours, co2Kg, points)
	q.state.accounts[id] = account
	return nil
}

func (q *memoryQueries) RevokePoints(_ context.Context, id uuid.UUID, points int) error {
	account, ok := q.state.accounts[id]
	if !ok {
		return ErrNotFound
	}
	account.RevokePoints(points)
	q.state.accounts[id] = account
	return nil
}

func (q *memoryQueries) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, ok := q.state.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &booking, nil
}

func (q *memoryQueries) LockBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return q.GetBooking(ctx, id)
}

func (q *memoryQueries) InsertBooking(_ context.Context, booking *models.Booking) error {
	q.state.bookings[booking.ID] = *booking
	return nil
}

func (q *memoryQueries) UpdateBookingStatus(_ context.Context, id uuid.UUID, status models.BookingStatus, at time.Time) error {
	booking, ok := q.state.bookings[id]
	if !ok {
		return ErrNotFound
	}
	booking.Status = status
	booking.UpdatedAt = at
	q.state.bookings[id] = booking
	return nil
}

func (q *memoryQueries) ListBookings(_ context.Context, filter BookingFilter) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range q.state.bookings {
		if filter.UserID != nil && b.UserID != *filter.UserID {
			continue
		}
		if filter.ResourceID != nil && b.ResourceID != *filter.ResourceID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b models.Booking) int { return b.StartTime.Compare(a.StartTime) })
	return truncate(out, filter.Limit), nil
}

func (q *memoryQueries) CountActiveBookings(_ context.Context, resourceID uuid.UUID) (int, error) {
	count := 0
	for _, b := range q.state.bookings {
		if b.ResourceID == resourceID && b.HoldsSlot() {
			count++
		}
	}
	return count, nil
}

func (q *memoryQueries) CountPendingRequests(_ context.Context, resourceID uuid.UUID) (int, error) {
	count := 0
	for _, r := range q.state.requests {
		if r.ResourceID == resourceID && r.Status == models.RequestPending {
			count++
		}
	}
	return count, nil
}

func (q *memoryQueries) GetBookingRequest(_ context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	request, ok := q.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &request, nil
}

func (q *memoryQueries) LockBookingRequest(ctx context.Context, id uuid.UUID) (*models.BookingRequest, error) {
	return q.GetBookingRequest(ctx, id)
}

func (q *memoryQueries) InsertBookingRequest(_ context.Context, request *models.BookingRequest) error {
	q.state.requests[request.ID] = *request
	return nil
}

func (q *memoryQueries) UpdateBookingRequest(_ context.Context, request *models.BookingRequest) error {
	if _, ok := q.state.requests[request.ID]; !ok {
		return ErrNotFound
	}
	q.state.requests[request.ID] = *request
	return nil
}

func (q *memoryQueries) ListBookingRequests(_ context.Context, filter RequestFilter) ([]models.BookingRequest, error) {
	var out []models.BookingRequest
	for _, r := range q.state.requests {
		if filter.UserID != nil && r.UserID != *filter.UserID {
			continue
		}
		if filter.OwnerID != nil && r.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b models.BookingRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return truncate(out, filter.Limit), nil
}

func (q *memoryQueries) SlotUsage(ctx context.Context) ([]SlotUsage, error) {
	usage := make([]SlotUsage, 0, len(q.state.resources))
	for id, r := range q.state.resources {
		if r.Deleted() {
			continue
		}
		active, _ := q.CountActiveBookings(ctx, id)
		usage = append(usage, SlotUsage{
			ResourceID:     id,
			TotalSlots:     r.TotalSlots,
			AvailableSlots: r.AvailableSlots,
			ActiveBookings: active,
		})
	}
	return usage, nil
}

func truncate[T any](items []T, limit int) []T {
	limit = limitOrDefault(limit)
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
