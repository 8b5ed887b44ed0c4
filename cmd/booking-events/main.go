package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"fleetlink/internal/bookings/events"
	"fleetlink/pkg/config"
	"fleetlink/pkg/kafka"
	kafka_config "fleetlink/pkg/kafka/config"
	kafka_middleware "fleetlink/pkg/kafka/middleware"
)

const ServiceName = "booking-events"

func main() {
	cfg := config.Load(ServiceName)

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.KafkaBookingTopic,
		cfg.KafkaGroupID,
		cfg.KafkaBookingDLQ,
		events.NewAuditHandler(cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(metrics.ConsumerMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Consuming booking events",
		"topic", cfg.KafkaBookingTopic,
		"group_id", cfg.KafkaGroupID,
	)

	err = consumer.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Booking event consumer stopped", "error", err)
	}

	metrics.Log(cfg.Log)
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Booking event consumer shut down")
}
