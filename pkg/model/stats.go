package model

type BookingStats struct {
	TotalBookings    int64             `json:"total_bookings"`
	TodaysBookings   int64             `json:"todays_bookings"`
	UpcomingBookings int64             `json:"upcoming_bookings"`
	PopularVehicles  []*PopularVehicle `json:"popular_vehicles"`
}

type PopularVehicle struct {
	VehicleID    string `json:"vehicle_id" bson:"vehicle_id"`
	VehicleName  string `json:"vehicle_name" bson:"vehicle_name"`
	BookingCount int64  `json:"booking_count" bson:"booking_count"`
}
