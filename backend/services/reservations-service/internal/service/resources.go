package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/events"
	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/repository"
)

// CreateResourceInput describes a new charger.
type CreateResourceInput struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Address      string             `json:"address"`
	Latitude     *float64           `json:"latitude"`
	Longitude    *float64           `json:"longitude"`
	ChargerType  models.ChargerType `json:"charger_type"`
	PricePerHour float64            `json:"price_per_hour"`
	TotalSlots   int                `json:"total_slots"`
}

func (in *CreateResourceInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	if in.Name == "" {
		return apperror.Validation("name is required")
	}
	if in.Address == "" {
		return apperror.Validation("address is required")
	}
	if in.Latitude == nil || in.Longitude == nil {
		return apperror.Validation("latitude and longitude are required")
	}
	if *in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
		return apperror.Validation("coordinates out of range")
	}
	if in.ChargerType == "" {
		in.ChargerType = models.ChargerLevel2
	}
	if !in.ChargerType.Valid() {
		return apperror.Validation("unknown charger_type %q", in.ChargerType)
	}
	if in.PricePerHour < 0 {
		return apperror.Validation("price_per_hour must not be negative")
	}
	if in.TotalSlots == 0 {
		in.TotalSlots = models.DefaultTotalSlots
	}
	if in.TotalSlots < 0 {
		return apperror.Validation("total_slots must be positive")
	}
	return nil
}

func validateUpdate(update models.ResourceUpdate) error {
	if update.Empty() {
		return apperror.Validation("no fields to update")
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return apperror.Validation("name must not be empty")
	}
	if update.Address != nil && strings.TrimSpace(*update.Address) == "" {
		return apperror.Validation("address must not be empty")
	}
	if update.ChargerType != nil && !update.ChargerType.Valid() {
		return apperror.Validation("unknown charger_type %q", *update.ChargerType)
	}
	if update.PricePerHour != nil && *update.PricePerHour < 0 {
		return apperror.Validation("price_per_hour must not be negative")
	}
	return nil
}

// CreateResource registers a charger with every slot free.
func (e *Engine) CreateResource(ctx context.Context, ownerID uuid.UUID, in CreateResourceInput) (*models.Resource, error) {
	if err := in.normalize(); err != nil {
		e.metrics.observe("create_resource", err)
		return nil, err
	}
	var out *models.Resource
	err := e.run(ctx, "create_resource", nil, func(ctx context.Context, u *unit) error {
		resource := &models.Resource{
			ID:             uuid.New(),
			OwnerID:        ownerID,
			Name:           in.Name,
			Description:    strings.TrimSpace(in.Description),
			Address:        in.Address,
			Latitude:       *in.Latitude,
			Longitude:      *in.Longitude,
			ChargerType:    in.ChargerType,
			PricePerHour:   in.PricePerHour,
			TotalSlots:     in.TotalSlots,
			AvailableSlots: in.TotalSlots,
			CreatedAt:      u.now,
			UpdatedAt:      u.now,
		}
		if err := u.q.InsertResource(ctx, resource); err != nil {
			return fmt.Errorf("insert resource: %w", err)
		}
		out = resource
		return u.emit(ctx, events.Event{Type: events.ResourceCreated, ResourceID: resource.ID})
	})
	return out, err
}

// UpdateResource applies an owner's edit. Slot counters are not editable.
func (e *Engine) UpdateResource(ctx context.Context, ownerID, resourceID uuid.UUID, update models.ResourceUpdate) (*models.Resource, error) {
	if err := validateUpdate(update); err != nil {
		e.metrics.observe("update_resource", err)
		return nil, err
	}
	var out *models.Resource
	err := e.run(ctx, "update_resource", resourceAttrs(resourceID), func(ctx context.Context, u *unit) error {
		resource, err := ownedResource(ctx, u.q, ownerID, resourceID)
		if err != nil {
			return err
		}
		update.Apply(resource)
		resource.UpdatedAt = u.now
		if err := u.q.UpdateResourceDetails(ctx, resource); err != nil {
			return fmt.Errorf("update resource: %w", err)
		}
		out = resource
		return u.emit(ctx, events.Event{Type: events.ResourceUpdated, ResourceID: resource.ID})
	})
	return out, err
}

// DeleteResource retires a charger that holds no active booking and has no pending
// request. Its bookings and requests stay readable by their parties.
func (e *Engine) DeleteResource(ctx context.Context, ownerID, resourceID uuid.UUID) error {
	return e.run(ctx, "delete_resource", resourceAttrs(resourceID), func(ctx context.Context, u *unit) error {
		resource, err := ownedResource(ctx, u.q, ownerID, resourceID)
		if err != nil {
			return err
		}
		active, err := u.q.CountActiveBookings(ctx, resourceID)
		if err != nil {
			return fmt.Errorf("count active bookings: %w", err)
		}
		if active > 0 {
			return apperror.InvalidState("cannot delete resource: %d active bookings", active)
		}
		pending, err := u.q.CountPendingRequests(ctx, resourceID)
		if err != nil {
			return fmt.Errorf("count pending requests: %w", err)
		}
		if pending > 0 {
			return apperror.InvalidState("cannot delete resource: %d pending booking requests", pending)
		}
		if err := u.q.RetireResource(ctx, resourceID, u.now); err != nil {
			return fmt.Errorf("retire resource: %w", err)
		}
		return u.emit(ctx, events.Event{Type: events.ResourceDeleted, ResourceID: resource.ID})
	})
}

// ownedResource locks a live resource and checks the caller owns it.
func ownedResource(ctx context.Context, q repository.Queries, ownerID, resourceID uuid.UUID) (*models.Resource, error) {
	resource, err := lockResource(ctx, q, resourceID)
	if err != nil {
		return nil, err
	}
	if resource.OwnerID != ownerID {
		return nil, apperror.Forbidden("only the charger owner can change this resource")
	}
	return resource, nil
}

// GetResource returns one charger.
func (e *Engine) GetResource(ctx context.Context, resourceID uuid.UUID) (*models.Resource, error) {
	var out *models.Resource
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		resource, err := loadResource(ctx, q, resourceID)
		if err != nil {
			return err
		}
		if resource.Deleted() {
			return apperror.NotFound("resource %s not found", resourceID)
		}
		out = resource
		return nil
	})
	return out, err
}

// ListResources returns all chargers.
func (e *Engine) ListResources(ctx context.Context, limit int) ([]models.Resource, error) {
	var out []models.Resource
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		out, err = q.ListResources(ctx, repository.ResourceFilter{Limit: limit})
		return err
	})
	return out, err
}

// ListOwnerResources returns the chargers of one owner.
func (e *Engine) ListOwnerResources(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.Resource, error) {
	var out []models.Resource
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		var err error
		out, err = q.ListResources(ctx, repository.ResourceFilter{OwnerID: &ownerID, Limit: limit})
		return err
	})
	return out, err
}
