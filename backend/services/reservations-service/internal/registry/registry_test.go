package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/repository"
)

type fakeSlots struct {
	mu        sync.Mutex
	total     int
	available int
	missing   bool
	err       error
}

func (f *fakeSlots) ReserveSlot(_ context.Context, _ uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.missing {
		return false, repository.ErrNotFound
	}
	if f.available == 0 {
		return false, nil
	}
	f.available--
	return true, nil
}

func (f *fakeSlots) ReleaseSlot(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.missing {
		return repository.ErrNotFound
	}
	f.available = min(f.total, f.available+1)
	return nil
}

func TestReserveSlotNoCapacity(t *testing.T) {
	reg := New(&fakeSlots{total: 1, available: 0})
	err := reg.ReserveSlot(context.Background(), uuid.New())
	if !errors.Is(err, apperror.ErrNoCapacity) {
		t.Fatalf("expected NoCapacity, got %v", err)
	}
	if !apperror.Retryable(err) {
		t.Fatalf("capacity errors must be retryable")
	}
}

func TestReserveAndReleaseMissingResource(t *testing.T) {
	reg := New(&fakeSlots{missing: true})
	if err := reg.ReserveSlot(context.Background(), uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("reserve: expected NotFound, got %v", err)
	}
	if err := reg.ReleaseSlot(context.Background(), uuid.New()); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("release: expected NotFound, got %v", err)
	}
}

func TestStorageFailureIsInternal(t *testing.T) {
	reg := New(&fakeSlots{err: errors.New("connection reset")})
	err := reg.ReserveSlot(context.Background(), uuid.New())
	if err == nil || apperror.KindOf(err) != "" {
		t.Fatalf("expected unclassified error, got %v", err)
	}
}

func TestConcurrentReservationsNeverOverbook(t *testing.T) {
	slots := &fakeSlots{total: 3, available: 3}
	reg := New(slots)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := reg.ReserveSlot(context.Background(), uuid.New()); err == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted != 3 || slots.available != 0 {
		t.Fatalf("expected 3 grants and 0 left, got %d grants and %d left", granted, slots.available)
	}
}

func TestReleaseClampsAtTotal(t *testing.T) {
	slots := &fakeSlots{total: 2, available: 2}
	reg := New(slots)
	if err := reg.ReleaseSlot(context.Background(), uuid.New()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if slots.available != 2 {
		t.Fatalf("expected clamp at 2, got %d", slots.available)
	}
}
