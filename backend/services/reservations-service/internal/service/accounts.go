package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"greencharge/backend/services/reservations-service/internal/apperror"
	"greencharge/backend/services/reservations-service/internal/models"
	"greencharge/backend/services/reservations-service/internal/repository"
)

// ProvisionAccountInput is sent by the auth collaborator when a user registers.
type ProvisionAccountInput struct {
	ID    uuid.UUID   `json:"id"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
}

// Impact is the green score summary shown to a user.
type Impact struct {
	UserID            uuid.UUID `json:"user_id"`
	GreenScore        int       `json:"green_score"`
	TotalSessions     int       `json:"total_sessions"`
	EstimatedCO2Saved float64   `json:"estimated_co2_saved"`
	TotalChargingTime float64   `json:"total_charging_time"`
}

// ProvisionAccount creates the ledger account for a user, or refreshes name and email
// of an existing one. Scores and counters of an existing account are kept.
func (e *Engine) ProvisionAccount(ctx context.Context, in ProvisionAccountInput) (*models.Account, error) {
	if in.ID == uuid.Nil {
		err := apperror.Validation("id is required")
		e.metrics.observe("provision_account", err)
		return nil, err
	}
	if !in.Role.Valid() {
		err := apperror.Validation("unknown role %q", in.Role)
		e.metrics.observe("provision_account", err)
		return nil, err
	}
	var out *models.Account
	err := e.run(ctx, "provision_account", nil, func(ctx context.Context, u *unit) error {
		account := &models.Account{
			ID:         in.ID,
			Role:       in.Role,
			Name:       strings.TrimSpace(in.Name),
			Email:      strings.TrimSpace(in.Email),
			GreenScore: models.InitialGreenScore,
			CreatedAt:  u.now,
		}
		if err := u.q.UpsertAccount(ctx, account); err != nil {
			return fmt.Errorf("upsert account: %w", err)
		}
		out = account
		return nil
	})
	return out, err
}

// GetImpact returns the caller's green score summary.
func (e *Engine) GetImpact(ctx context.Context, userID uuid.UUID) (*Impact, error) {
	var out *Impact
	err := e.view(ctx, func(ctx context.Context, q repository.Queries) error {
		account, err := q.GetAccount(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("account %s not found", userID)
		}
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		out = &Impact{
			UserID:            account.ID,
			GreenScore:        account.GreenScore,
			TotalSessions:     account.TotalSessions,
			EstimatedCO2Saved: account.EstimatedCO2Saved,
			TotalChargingTime: account.TotalChargingTime,
		}
		return nil
	})
	return out, err
}
