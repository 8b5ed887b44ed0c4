package config

const (
	EnvMongoURI            = "MONGO_URI"
	EnvMongoDatabaseName   = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout    = "MONGO_CONN_TIMEOUT"
	EnvMongoConnectRetries = "MONGO_CONNECT_RETRIES"
	EnvMongoRetryDelay     = "MONGO_RETRY_DELAY"
	EnvMongoMaxPoolSize    = "MONGO_MAX_POOL_SIZE"

	EnvRedisAddr       = "REDIS_ADDR"
	EnvRedisPassword   = "REDIS_PASSWORD"
	EnvRedisDB         = "REDIS_DB"
	EnvCatalogCacheTTL = "CATALOG_CACHE_TTL"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingLockTTL          = "BOOKING_LOCK_TTL"
	EnvBookingLockWait         = "BOOKING_LOCK_WAIT"
	EnvLockSweepSchedule       = "LOCK_SWEEP_SCHEDULE"
	EnvMinRideDuration         = "MIN_RIDE_DURATION"
	EnvDefaultBookingEndPolicy = "DEFAULT_BOOKING_END_POLICY"
	EnvDefaultBookingDuration  = "DEFAULT_BOOKING_DURATION"
	EnvBookingTimeZone         = "BOOKING_TIMEZONE"
	EnvPhoneRegion             = "PHONE_REGION"

	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvKafkaBookingTopic = "KAFKA_BOOKING_TOPIC"
	EnvKafkaBookingDLQ   = "KAFKA_BOOKING_DLQ_TOPIC"
	EnvKafkaGroupID      = "KAFKA_GROUP_ID"
)
