package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the caller role assigned by the auth collaborator.
type Role string

const (
	RoleDriver Role = "driver"
	RoleOwner  Role = "owner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleDriver || r == RoleOwner
}

const (
	MaxGreenScore     = 100
	MinGreenScore     = 0
	InitialGreenScore = 50
)

// Account carries the loyalty counters of one user.
type Account struct {
	ID                uuid.UUID `db:"id" json:"id"`
	Role              Role      `db:"role" json:"role"`
	Name              string    `db:"name" json:"name,omitempty"`
	Email             string    `db:"email" json:"email,omitempty"`
	GreenScore        int       `db:"green_score" json:"green_score"`
	TotalSessions     int       `db:"total_sessions" json:"total_sessions"`
	EstimatedCO2Saved float64   `db:"estimated_co2_saved" json:"estimated_co2_saved"`
	TotalChargingTime float64   `db:"total_charging_time" json:"total_charging_time"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// AwardSession records one finished session. The score is capped at MaxGreenScore and
// points above the cap are dropped.
func (a *Account) AwardSession(hours, co2Kg float64, points int) {
	a.TotalSessions++
	a.TotalChargingTime += hours
	a.EstimatedCO2Saved += co2Kg
	a.GreenScore = min(MaxGreenScore, a.GreenScore+points)
}

// RevokePoints subtracts points from the score, flooring at MinGreenScore.
func (a *Account) RevokePoints(points int) {
	a.GreenScore = max(MinGreenScore, a.GreenScore-points)
}
