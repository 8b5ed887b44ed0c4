package events

import (
	"context"
	"fmt"

	"fleetlink/pkg/kafka"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

var knownEvents = map[string]bool{
	model.EventBookingCreated:   true,
	model.EventBookingAccepted:  true,
	model.EventBookingCompleted: true,
	model.EventBookingDeleted:   true,
}

// NewAuditHandler logs every booking lifecycle event it receives. Records it
// cannot understand fail permanently so the consumer dead-letters them.
func NewAuditHandler(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if v := msg.Headers[kafka.HeaderSchemaVersion]; v != "" && v != SchemaVersion {
			return kafka.NewPermanentError(fmt.Sprintf("unsupported schema version %q", v), nil)
		}

		var event model.BookingEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}

		if !knownEvents[event.Type] {
			return kafka.NewPermanentError(fmt.Sprintf("unknown booking event %q", event.Type), nil)
		}
		if event.BookingID == "" || event.VehicleID == "" {
			return kafka.NewPermanentError("booking event without booking or vehicle id", kafka.ErrInvalidMessage)
		}

		ctx = logger.ContextWithRequestID(ctx, msg.GetCorrelationID())
		log.WithContext(ctx).Info("Booking event",
			"event_id", msg.GetEventID(),
			"type", event.Type,
			"booking_id", event.BookingID,
			"vehicle_id", event.VehicleID,
			"customer_id", event.CustomerID,
			"status", event.Status,
			"start_time", event.StartTime,
			"end_time", event.EndTime,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}
