// Package events publishes accepted readings to Kafka for downstream
// consumers (dashboards, archival). The relay is fire-and-forget from the
// ingestion path's point of view: readings are queued on a bounded channel
// and a background worker owns the broker connection, so a slow or down
// broker never delays a device's telemetry push.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/worker"
)

// DefaultQueueSize bounds readings buffered while the broker is slow.
const DefaultQueueSize = 256

type Config struct {
	Brokers   string
	Topic     string
	QueueSize int
}

// Writer is the slice of kafka.Writer the relay uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Relay struct {
	worker *worker.Worker
	writer Writer
	queue  chan db.Reading
}

func New(cfg Config) *Relay {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	relay := &Relay{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers: []string{cfg.Brokers},
			Topic:   cfg.Topic,
		}),
		queue: make(chan db.Reading, size),
	}
	relay.worker = worker.New(worker.Config{
		Name:      "event-relay",
		Processor: relay,
	})
	return relay
}

// Publish queues a reading for delivery. Never blocks: when the queue is
// full the reading is dropped with a warning, the database copy is the
// durable record.
func (r *Relay) Publish(ctx context.Context, reading db.Reading) {
	select {
	case r.queue <- reading:
	default:
		slog.WarnContext(ctx, "Relay queue full, dropping reading", "device_id", reading.DeviceID)
	}
}

func (r *Relay) Run(ctx context.Context) {
	r.worker.Run(ctx)
}

func (r *Relay) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing relay resources...")
	r.writer.Close()
}

// ProcessMessage drains one reading from the queue and writes it out.
func (r *Relay) ProcessMessage(ctx context.Context) {
	var reading db.Reading
	select {
	case <-ctx.Done():
		return
	case reading = <-r.queue:
	}

	record := StructuredConnectRecord{
		Schema: StructuredSchema,
		Payload: ReadingEvent{
			DeviceID:        reading.DeviceID,
			Temperature:     reading.Temperature,
			Humidity:        reading.Humidity,
			FirmwareVersion: reading.FirmwareVersion,
			ObservedAt:      reading.ObservedAt.UnixMilli(),
			RecordedAt:      reading.RecordedAt.UnixMilli(),
		},
	}
	out, err := json.Marshal(record)
	if err != nil {
		slog.ErrorContext(ctx, "Error marshalling record", "error", err)
		return
	}
	err = r.writer.WriteMessages(ctx, kafka.Message{Key: []byte(reading.DeviceID), Value: out})
	if err != nil {
		slog.ErrorContext(ctx, "Error publishing reading", "error", err, "device_id", reading.DeviceID)
		return
	}
	slog.InfoContext(ctx, "Published reading", "device_id", reading.DeviceID)
}

// Noop is the publisher used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, db.Reading) {}
