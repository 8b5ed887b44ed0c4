package model

import "time"

type Vehicle struct {
	ID         string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name       string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	CapacityKg int       `json:"capacity_kg" bson:"capacity_kg" validate:"required,min=1,max=100000"`
	Tyres      int       `json:"tyres" bson:"tyres" validate:"required,min=1,max=64"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// VehicleSummary is the slice of a vehicle embedded in booking listings.
type VehicleSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CapacityKg int    `json:"capacity_kg"`
}

func (v *Vehicle) Summary() *VehicleSummary {
	return &VehicleSummary{
		ID:         v.ID,
		Name:       v.Name,
		CapacityKg: v.CapacityKg,
	}
}
