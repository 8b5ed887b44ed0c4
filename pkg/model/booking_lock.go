package model

import "time"

// BookingLock represents an advisory lock serializing booking commits for a
// single vehicle. Owner lets a holder release only its own lock.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	VehicleID string    `bson:"vehicle_id" json:"vehicle_id"`
	Owner     string    `bson:"owner" json:"owner"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

func VehicleLockID(vehicleID string) string {
	return "vehicle_lock_" + vehicleID
}
