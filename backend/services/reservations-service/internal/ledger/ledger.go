// Package ledger applies green score changes to accounts.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/repository"
)

// AccountStore is the storage primitive behind the ledger. Both calls must apply their
// change in a single statement so the score bounds hold under concurrency.
type AccountStore interface {
	AwardSession(ctx context.Context, id uuid.UUID, hours, co2Kg float64, points int) error
	RevokePoints(ctx context.Context, id uuid.UUID, points int) error
}

// Ledger is bound to one unit of work.
type Ledger struct {
	store AccountStore
}

func New(store AccountStore) *Ledger {
	return &Ledger{store: store}
}

// AwardSession counts one session and adds points, capped at the maximum score.
func (l *Ledger) AwardSession(ctx context.Context, userID uuid.UUID, hours, co2Kg float64, points int) error {
	if hours < 0 || co2Kg < 0 || points < 0 {
		return apperror.Validation("award amounts must not be negative")
	}
	return wrap(l.store.AwardSession(ctx, userID, hours, co2Kg, points), userID, "award session")
}

// RevokePoints subtracts points, flooring the score at zero. Session counters stay as they are.
func (l *Ledger) RevokePoints(ctx context.Context, userID uuid.UUID, points int) error {
	if points < 0 {
		return apperror.Validation("points to revoke must not be negative")
	}
	return wrap(l.store.RevokePoints(ctx, userID, points), userID, "revoke points")
}

func wrap(err error, userID uuid.UUID, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperror.NotFound("account %s not found", userID)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
