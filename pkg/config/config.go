package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fleetlink/pkg/client"
	"fleetlink/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI            string
	MongoDatabaseName   string
	MongoConnTimeout    time.Duration
	MongoConnectRetries int
	MongoRetryDelay     time.Duration
	MongoMaxPoolSize    int

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CatalogCacheTTL time.Duration

	Port string

	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BookingLockTTL          time.Duration
	BookingLockWait         time.Duration
	LockSweepSchedule       string
	MinRideDuration         time.Duration
	DefaultBookingEndPolicy string
	DefaultBookingDuration  time.Duration
	BookingTimeZone         string
	PhoneRegion             string

	KafkaEnabled      bool
	KafkaBookingTopic string
	KafkaBookingDLQ   string
	KafkaGroupID      string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load(serviceName string) *Config {
	envFileErr := godotenv.Load()

	cfg := &Config{
		MongoURI:            getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName:   getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:    getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),
		MongoConnectRetries: getEnvNum(EnvMongoConnectRetries, DefaultMongoConnectRetries),
		MongoRetryDelay:     getEnvDuration(EnvMongoRetryDelay, DefaultMongoRetryDelay),
		MongoMaxPoolSize:    getEnvNum(EnvMongoMaxPoolSize, DefaultMongoMaxPoolSize),

		RedisAddr:       getEnvStr(EnvRedisAddr, ""),
		RedisPassword:   getEnvStr(EnvRedisPassword, ""),
		RedisDB:         getEnvNum(EnvRedisDB, DefaultRedisDB),
		CatalogCacheTTL: getEnvDuration(EnvCatalogCacheTTL, DefaultCatalogCacheTTL),

		Port: getEnvStr(EnvPort, DefaultPort),

		CORSAllowedOrigins: getEnvList(EnvCORSAllowedOrigins, DefaultCORSAllowedOrigins),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BookingLockTTL:          getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		BookingLockWait:         getEnvDuration(EnvBookingLockWait, DefaultBookingLockWait),
		LockSweepSchedule:       getEnvStr(EnvLockSweepSchedule, DefaultLockSweepSchedule),
		MinRideDuration:         getEnvDuration(EnvMinRideDuration, DefaultMinRideDuration),
		DefaultBookingEndPolicy: getEnvStr(EnvDefaultBookingEndPolicy, DefaultDefaultBookingEndPolicy),
		DefaultBookingDuration:  getEnvDuration(EnvDefaultBookingDuration, DefaultDefaultBookingDuration),
		BookingTimeZone:         getEnvStr(EnvBookingTimeZone, DefaultBookingTimeZone),
		PhoneRegion:             getEnvStr(EnvPhoneRegion, DefaultPhoneRegion),

		KafkaEnabled:      getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaBookingTopic: getEnvStr(EnvKafkaBookingTopic, DefaultKafkaBookingTopic),
		KafkaBookingDLQ:   getEnvStr(EnvKafkaBookingDLQ, DefaultKafkaBookingDLQ),
		KafkaGroupID:      getEnvStr(EnvKafkaGroupID, DefaultKafkaGroupID),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envFileErr != nil {
		cfg.Log.Debug("No .env file loaded, using process environment", "reason", envFileErr.Error())
	}
	return cfg
}

// SetMongo acquires the process-wide Mongo handle, retrying on startup.
func (cfg *Config) SetMongo() {
	err := cfg.Client.SetMongo(cfg.Log, client.MongoOptions{
		URI:         cfg.MongoURI,
		ConnTimeout: cfg.MongoConnTimeout,
		Retries:     cfg.MongoConnectRetries,
		RetryDelay:  cfg.MongoRetryDelay,
		MaxPoolSize: uint64(cfg.MongoMaxPoolSize),
	})
	if err != nil {
		cfg.Log.Fatal("Failed to connect to MongoDB", "error", err, "uri", redactMongoURI(cfg.MongoURI))
	}
}

// SetRedis connects the catalog cache when REDIS_ADDR is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis not configured, catalog cache disabled")
		return
	}
	if err := cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout); err != nil {
		cfg.Log.Warn("Redis unavailable, catalog cache disabled", "error", err, "addr", cfg.RedisAddr)
	}
}

// Location resolves BookingTimeZone, falling back to UTC.
func (cfg *Config) Location() *time.Location {
	loc, err := time.LoadLocation(cfg.BookingTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.MongoConnectRetries <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnectRetries must be positive, got: %d", cfg.MongoConnectRetries))
	}
	if cfg.MongoRetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("MongoRetryDelay cannot be negative, got: %s", cfg.MongoRetryDelay))
	}
	if cfg.MongoMaxPoolSize <= 0 {
		errors = append(errors, fmt.Sprintf("MongoMaxPoolSize must be positive, got: %d", cfg.MongoMaxPoolSize))
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}
	if cfg.CatalogCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CatalogCacheTTL must be positive, got: %s", cfg.CatalogCacheTTL))
	}
	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.BookingLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockTTL must be positive, got: %s", cfg.BookingLockTTL))
	}
	if cfg.BookingLockWait <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockWait must be positive, got: %s", cfg.BookingLockWait))
	}
	if cfg.LockSweepSchedule == "" {
		errors = append(errors, "LockSweepSchedule cannot be empty")
	}
	if cfg.MinRideDuration <= 0 {
		errors = append(errors, fmt.Sprintf("MinRideDuration must be positive, got: %s", cfg.MinRideDuration))
	}
	if cfg.DefaultBookingEndPolicy != EndPolicyEndOfDay && cfg.DefaultBookingEndPolicy != EndPolicyFixed {
		errors = append(errors, fmt.Sprintf("DefaultBookingEndPolicy must be one of [%s, %s], got: %s", EndPolicyEndOfDay, EndPolicyFixed, cfg.DefaultBookingEndPolicy))
	}
	if cfg.DefaultBookingDuration <= 0 {
		errors = append(errors, fmt.Sprintf("DefaultBookingDuration must be positive, got: %s", cfg.DefaultBookingDuration))
	}
	if _, err := time.LoadLocation(cfg.BookingTimeZone); err != nil {
		errors = append(errors, fmt.Sprintf("BookingTimeZone must be a valid IANA zone, got: %s", cfg.BookingTimeZone))
	}
	if len(cfg.PhoneRegion) != 2 {
		errors = append(errors, fmt.Sprintf("PhoneRegion must be a two-letter region code, got: %s", cfg.PhoneRegion))
	}

	if cfg.KafkaEnabled && cfg.KafkaBookingTopic == "" {
		errors = append(errors, "KafkaBookingTopic cannot be empty when Kafka is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"mongo_connect_retries", cfg.MongoConnectRetries,
		"mongo_retry_delay", cfg.MongoRetryDelay,
		"mongo_max_pool_size", cfg.MongoMaxPoolSize,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"catalog_cache_ttl", cfg.CatalogCacheTTL,
		"port", cfg.Port,
		"cors_allowed_origins", cfg.CORSAllowedOrigins,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"booking_lock_wait", cfg.BookingLockWait,
		"lock_sweep_schedule", cfg.LockSweepSchedule,
		"min_ride_duration", cfg.MinRideDuration,
		"default_booking_end_policy", cfg.DefaultBookingEndPolicy,
		"default_booking_duration", cfg.DefaultBookingDuration,
		"booking_timezone", cfg.BookingTimeZone,
		"phone_region", cfg.PhoneRegion,
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_booking_topic", cfg.KafkaBookingTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	raw := getEnvStr(key, fallback)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
