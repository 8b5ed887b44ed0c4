package config

import "time"

const (
	DefaultMongoURI            = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName   = "fleetlink"
	DefaultMongoConnTimeout    = 10 * time.Second
	DefaultMongoConnectRetries = 3
	DefaultMongoRetryDelay     = 2 * time.Second
	DefaultMongoMaxPoolSize    = 10

	DefaultRedisDB         = 0
	DefaultCatalogCacheTTL = 5 * time.Minute

	DefaultPort = "8080"

	DefaultCORSAllowedOrigins = "*"

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingLockTTL          = 10 * time.Second
	DefaultBookingLockWait         = 5 * time.Second
	DefaultLockSweepSchedule       = "@every 1m"
	DefaultMinRideDuration         = 1 * time.Hour
	DefaultDefaultBookingEndPolicy = EndPolicyEndOfDay
	DefaultDefaultBookingDuration  = 2 * time.Hour
	DefaultBookingTimeZone         = "UTC"
	DefaultPhoneRegion             = "IN"

	DefaultKafkaEnabled      = false
	DefaultKafkaBookingTopic = "fleetlink.bookings"
	DefaultKafkaBookingDLQ   = "fleetlink.bookings.dlq"
	DefaultKafkaGroupID      = "fleetlink-booking-events"

	DefaultPaginationLimit = 100
)

const (
	EndPolicyEndOfDay = "end_of_day"
	EndPolicyFixed    = "fixed"
)

// Booking statuses. Transitions are permissive: any status may be set by
// the explicit accept/complete operations.
const (
	Pending   = "pending"
	Accepted  = "accepted"
	Completed = "completed"
)
