package events

import (
	"context"
	"fmt"

	"fleetlink/pkg/kafka"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "fleetlink"
)

// Publisher announces booking lifecycle changes. Delivery is best effort:
// callers log a failure and carry on.
type Publisher interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

// MessageWriter is the part of *kafka.Producer the publisher needs.
type MessageWriter interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish keys the record by vehicle so that one vehicle's events stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.VehicleID).
		WithValue(event).
		WithEventType(event.Type).
		WithCorrelationID(logger.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return fmt.Errorf("build %s event: %w", event.Type, err)
	}

	if err := p.writer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.BookingEvent) error { return nil }
