package model

import "time"

// AvailabilityQuery mirrors the query string of the availability endpoint.
type AvailabilityQuery struct {
	CapacityRequired int    `query:"capacity_required" validate:"required,gt=0"`
	FromPincode      string `query:"from_pincode" validate:"required,number,max=12"`
	ToPincode        string `query:"to_pincode" validate:"required,number,max=12"`
	StartTime        string `query:"start_time" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndTime          string `query:"end_time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type AvailabilityResult struct {
	EstimatedRideDurationHours float64    `json:"estimated_ride_duration_hours"`
	StartTime                  time.Time  `json:"start_time"`
	EndTime                    time.Time  `json:"end_time"`
	Vehicles                   []*Vehicle `json:"vehicles"`
}
