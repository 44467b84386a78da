// Package registry guards the slot counters of charging resources.
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/repository"
)

// SlotStore is the storage primitive behind the registry.
type SlotStore interface {
	ReserveSlot(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseSlot(ctx context.Context, id uuid.UUID) error
}

// Registry is the only path through which available slots change. It is bound to one
// unit of work and must not outlive it.
type Registry struct {
	store SlotStore
}

// New binds a registry to the unit of work behind store.
func New(store SlotStore) *Registry {
	return &Registry{store: store}
}

// ReserveSlot takes one free slot of the resource.
func (r *Registry) ReserveSlot(ctx context.Context, resourceID uuid.UUID) error {
	ok, err := r.store.ReserveSlot(ctx, resourceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("resource %s not found", resourceID)
	case err != nil:
		return fmt.Errorf("reserve slot: %w", err)
	case !ok:
		return apperror.NoCapacity("resource %s has no available slots", resourceID)
	}
	return nil
}

// ReleaseSlot returns one slot. A release on a fully free resource is a no-op.
func (r *Registry) ReleaseSlot(ctx context.Context, resourceID uuid.UUID) error {
	err := r.store.ReleaseSlot(ctx, resourceID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("resource %s not found", resourceID)
	case err != nil:
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}
