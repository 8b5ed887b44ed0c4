package kafka_middleware

import (
	"context"
	"sync/atomic"
	"time"

	"fleetlink/pkg/kafka"
	"fleetlink/pkg/logger"
)

// Metrics counts Kafka traffic for one process. The counters are logged on
// shutdown; there is no scrape endpoint.
type Metrics struct {
	published       atomic.Int64
	publishFailed   atomic.Int64
	publishDuration atomic.Int64 // nanoseconds

	consumed        atomic.Int64
	consumeFailed   atomic.Int64
	consumeDuration atomic.Int64 // nanoseconds
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Published() int64     { return m.published.Load() }
func (m *Metrics) PublishFailed() int64 { return m.publishFailed.Load() }
func (m *Metrics) Consumed() int64      { return m.consumed.Load() }
func (m *Metrics) ConsumeFailed() int64 { return m.consumeFailed.Load() }

func (m *Metrics) AvgPublishDuration() time.Duration {
	return avg(m.publishDuration.Load(), m.published.Load()+m.publishFailed.Load())
}

func (m *Metrics) AvgConsumeDuration() time.Duration {
	return avg(m.consumeDuration.Load(), m.consumed.Load()+m.consumeFailed.Load())
}

func avg(total, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(total / count)
}

func (m *Metrics) ProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.publishDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.publishFailed.Add(1)
		} else {
			m.published.Add(1)
		}
		return err
	}
}

func (m *Metrics) ConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		m.consumeDuration.Add(int64(time.Since(start)))
		if err != nil {
			m.consumeFailed.Add(1)
		} else {
			m.consumed.Add(1)
		}
		return err
	}
}

func (m *Metrics) Log(log *logger.Logger) {
	log.Info("Kafka metrics",
		"published", m.Published(),
		"publish_failed", m.PublishFailed(),
		"avg_publish_duration", m.AvgPublishDuration(),
		"consumed", m.Consumed(),
		"consume_failed", m.ConsumeFailed(),
		"avg_consume_duration", m.AvgConsumeDuration(),
	)
}
