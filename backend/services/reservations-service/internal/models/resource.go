package models

import (
	"time"

	"github.com/google/uuid"
)

// ChargerType enumerates supported charger kinds.
type ChargerType string

const (
	ChargerDCFast ChargerType = "DC Fast"
	ChargerLevel2 ChargerType = "Level 2"
	ChargerLevel1 ChargerType = "Level 1"
)

// DefaultTotalSlots is used when an owner registers a charger without a slot count.
const DefaultTotalSlots = 4

// Valid reports whether the charger type is one of the known kinds.
func (c ChargerType) Valid() bool {
	switch c {
	case ChargerDCFast, ChargerLevel2, ChargerLevel1:
		return true
	default:
		return false
	}
}

// Resource is a charging station with a fixed number of slots.
type Resource struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	OwnerID        uuid.UUID   `db:"owner_id" json:"owner_id"`
	Name           string      `db:"name" json:"name"`
	Description    string      `db:"description" json:"description,omitempty"`
	Address        string      `db:"address" json:"address"`
	Latitude       float64     `db:"latitude" json:"latitude"`
	Longitude      float64     `db:"longitude" json:"longitude"`
	ChargerType    ChargerType `db:"charger_type" json:"charger_type"`
	PricePerHour   float64     `db:"price_per_hour" json:"price_per_hour"`
	Rating         float64     `db:"rating" json:"rating"`
	TotalSlots     int         `db:"total_slots" json:"total_slots"`
	AvailableSlots int         `db:"available_slots" json:"available_slots"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
	DeletedAt      *time.Time  `db:"deleted_at" json:"deleted_at,omitempty"`
}

// Deleted reports whether the owner has retired the charger. Its booking history stays.
func (r *Resource) Deleted() bool {
	return r.DeletedAt != nil
}

// ResourceUpdate lists the owner-editable fields. Nil pointers leave a field untouched;
// slot counters are deliberately absent.
type ResourceUpdate struct {
	Name         *string      `json:"name,omitempty"`
	Description  *string      `json:"description,omitempty"`
	Address      *string      `json:"address,omitempty"`
	ChargerType  *ChargerType `json:"charger_type,omitempty"`
	PricePerHour *float64     `json:"price_per_hour,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ResourceUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.Address == nil && u.ChargerType == nil && u.PricePerHour == nil
}

// Apply copies the set fields onto r.
func (u ResourceUpdate) Apply(r *Resource) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.Address != nil {
		r.Address = *u.Address
	}
	if u.ChargerType != nil {
		r.ChargerType = *u.ChargerType
	}
	if u.PricePerHour != nil {
		r.PricePerHour = *u.PricePerHour
	}
}
