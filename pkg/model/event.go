package model

import "time"

const (
	EventBookingCreated   = "booking.created"
	EventBookingAccepted  = "booking.accepted"
	EventBookingCompleted = "booking.completed"
	EventBookingDeleted   = "booking.deleted"
)

// BookingEvent is the payload published on the booking lifecycle topic.
type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	VehicleID  string    `json:"vehicle_id"`
	CustomerID string    `json:"customer_id"`
	Status     string    `json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  b.ID,
		VehicleID:  b.VehicleID,
		CustomerID: b.CustomerID,
		Status:     b.Status,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		OccurredAt: time.Now().UTC(),
	}
}
