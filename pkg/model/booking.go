package model

import (
	"time"
)

type Booking struct {
	ID            string          `json:"id,omitempty" bson:"_id,omitempty"`
	VehicleID     string          `json:"vehicle_id" bson:"vehicle_id"`
	FromPincode   string          `json:"from_pincode" bson:"from_pincode"`
	ToPincode     string          `json:"to_pincode" bson:"to_pincode"`
	StartTime     time.Time       `json:"start_time" bson:"start_time"`
	EndTime       time.Time       `json:"end_time" bson:"end_time"`
	CustomerName  string          `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	CustomerID    string          `json:"customer_id" bson:"customer_id"`
	Status        string          `json:"status" bson:"status"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" bson:"updated_at"`
	Vehicle       *VehicleSummary `json:"vehicle,omitempty" bson:"-"`
}

// BookingRequest is the wire shape of a create-booking call. Instants stay
// strings until validated so that a malformed value is rejected as input
// rather than failing JSON decoding.
type BookingRequest struct {
	VehicleID     string `json:"vehicle_id" validate:"required,mongodb"`
	FromPincode   string `json:"from_pincode" validate:"required,number,max=12"`
	ToPincode     string `json:"to_pincode" validate:"required,number,max=12"`
	StartTime     string `json:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime       string `json:"end_time,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	CustomerID    string `json:"customer_id" validate:"required,max=100"`
	CustomerName  string `json:"customer_name,omitempty" validate:"omitempty,max=100"`
	CustomerPhone string `json:"customer_phone,omitempty" validate:"omitempty,e164"`
}

// Overlaps reports whether the half-open windows [s1,e1) and [s2,e2)
// intersect. Windows that only touch at a boundary do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
