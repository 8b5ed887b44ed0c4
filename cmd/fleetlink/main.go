package main

import (
	"fleetlink/internal/bookings/duration"
	"fleetlink/internal/bookings/events"
	bookingshandler "fleetlink/internal/bookings/handler"
	bookingsrepo "fleetlink/internal/bookings/repository"
	bookingsservice "fleetlink/internal/bookings/service"
	bookingsvalidator "fleetlink/internal/bookings/validator"
	"fleetlink/internal/bookings/worker"
	vehicleshandler "fleetlink/internal/vehicles/handler"
	vehiclesrepo "fleetlink/internal/vehicles/repository"
	vehiclesservice "fleetlink/internal/vehicles/service"
	vehiclesvalidator "fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/app"
	"fleetlink/pkg/cache"
	"fleetlink/pkg/config"
	"fleetlink/pkg/kafka"
	kafka_config "fleetlink/pkg/kafka/config"
	kafka_middleware "fleetlink/pkg/kafka/middleware"
)

const ServiceName = "fleetlink"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.SetMongo()
	cfg.SetRedis()

	serverApp := app.NewApplication(cfg)

	vehicleService := initVehicles(cfg)
	bookingService, lockRepo := initBookings(cfg, vehicleService, serverApp)

	sweeper, err := worker.NewLockSweeper(lockRepo, cfg.LockSweepSchedule, cfg.WriteTimeout, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking lock sweeper", "error", err)
	}
	sweeper.Start()
	serverApp.OnShutdown(sweeper.Stop)

	cfg.Log.Info("Starting fleetlink service")
	serverApp.SetApp(
		vehicleshandler.NewVehicleHandler(vehicleService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
	)
	serverApp.Run()
}

func initVehicles(cfg *config.Config) vehiclesservice.VehicleService {
	catalogCache := cache.NewCatalogCache(cfg.Client.Redis, cfg.CatalogCacheTTL, cfg.Log)
	vehicleService := vehiclesservice.NewVehicleService(
		vehiclesrepo.NewMongoVehicleRepository(cfg),
		vehiclesvalidator.NewVehicleValidator(cfg.Log),
		catalogCache,
		cfg,
	)

	cfg.Log.Info("Vehicle service initialized",
		"database", cfg.MongoDatabaseName,
		"catalog_cache", catalogCache.Enabled(),
	)
	return vehicleService
}

func initBookings(cfg *config.Config, catalog bookingsservice.Catalog, serverApp *app.Application) (bookingsservice.BookingService, bookingsrepo.BookingLockRepository) {
	lockRepo := bookingsrepo.NewBookingLockRepository(cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingsrepo.NewMongoBookingRepository(cfg),
		lockRepo,
		catalog,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		duration.NewPincodeEstimator(cfg.MinRideDuration),
		duration.EndPolicyFromConfig(cfg),
		initPublisher(cfg, serverApp),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService, lockRepo
}

// initPublisher returns nil when Kafka is disabled; the booking service
// then publishes nothing.
func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, booking events will not be published")
		return nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingTopic, cfg.KafkaBookingDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(metrics.ProducerMiddleware())

	serverApp.OnShutdown(func() {
		metrics.Log(cfg.Log)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	return events.NewKafkaPublisher(producer)
}
