// Package telemetry is the ingestion service: it validates device-pushed
// samples against the physically plausible sensor ranges, persists them, and
// updates the device registry in the same transaction.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
)

// Physically plausible sensor bounds; anything outside is a garbled payload.
const (
	TemperatureMin = -50.0
	TemperatureMax = 100.0
	HumidityMin    = 0.0
	HumidityMax    = 100.0
)

// UnknownFirmware is recorded when a device does not report its firmware.
const UnknownFirmware = "unknown"

// DefaultHistoryLimit caps history queries that do not ask for a limit.
const DefaultHistoryLimit = 100

type Repository interface {
	RecordReading(ctx context.Context, r db.Reading, ip string) (db.Reading, db.Device, error)
	LatestReading(ctx context.Context, deviceID string) (db.Reading, error)
	ReadingHistory(ctx context.Context, deviceID string, start, end *time.Time, limit int) ([]db.Reading, error)
	StatsSince(ctx context.Context, deviceID string, since time.Time) (db.ReadingStats, error)
}

// Publisher receives every accepted reading. Implementations must not
// block; ingestion latency never depends on downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, r db.Reading)
}

type Config struct {
	DB        Repository
	Publisher Publisher
	// Now is overridable in tests.
	Now func() time.Time
}

type Service struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
}

func New(cfg Config) *Service {
	s := &Service{
		repo:      cfg.DB,
		publisher: cfg.Publisher,
		now:       cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Sample is one raw telemetry push as received from a device. Temperature
// and Humidity are pointers so a missing field is distinguishable from a
// zero value.
type Sample struct {
	DeviceID        string
	Temperature     *float64
	Humidity        *float64
	FirmwareVersion string
	// ObservedAt is the device-reported timestamp, raw. Unparseable values
	// fall back to server time with a warning; devices in the field have
	// unreliable clocks and their readings are still worth keeping.
	ObservedAt string
	RemoteIP   string
}

// Ingest validates and records a sample. The reading insert and the
// registry touch commit or roll back together.
func (s *Service) Ingest(ctx context.Context, sample Sample) (db.Reading, db.Device, error) {
	const fn = "Telemetry:Ingest"

	if sample.DeviceID == "" {
		return db.Reading{}, db.Device{}, fault.Validation("missing_field", "Missing required field: device_id")
	}
	if sample.Temperature == nil {
		return db.Reading{}, db.Device{}, fault.Validation("missing_field", "Missing required field: temperature")
	}
	if sample.Humidity == nil {
		return db.Reading{}, db.Device{}, fault.Validation("missing_field", "Missing required field: humidity")
	}

	temperature := *sample.Temperature
	humidity := *sample.Humidity
	if temperature < TemperatureMin || temperature > TemperatureMax {
		return db.Reading{}, db.Device{}, fault.Range("temperature_out_of_range", "Temperature out of reasonable range")
	}
	if humidity < HumidityMin || humidity > HumidityMax {
		return db.Reading{}, db.Device{}, fault.Range("humidity_out_of_range", "Humidity out of reasonable range")
	}

	now := s.now().UTC()
	observedAt := now
	if sample.ObservedAt != "" {
		parsed, err := parseTimestamp(sample.ObservedAt)
		if err != nil {
			slog.WarnContext(ctx, "Invalid timestamp format, using server time",
				"device_id", sample.DeviceID,
				"timestamp", sample.ObservedAt,
			)
		} else {
			observedAt = parsed
		}
	}

	firmware := sample.FirmwareVersion
	if firmware == "" {
		firmware = UnknownFirmware
	}

	reading := db.Reading{
		DeviceID:        sample.DeviceID,
		Temperature:     temperature,
		Humidity:        humidity,
		FirmwareVersion: firmware,
		ObservedAt:      observedAt,
		RecordedAt:      now,
	}

	reading, dev, err := s.repo.RecordReading(ctx, reading, sample.RemoteIP)
	if err != nil {
		return reading, dev, fmt.Errorf("%s:%w", fn, err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, reading)
	}

	slog.InfoContext(ctx, "Received sensor data",
		"device_id", reading.DeviceID,
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
	)
	return reading, dev, nil
}

// Latest returns the most recent reading by observed_at, across all devices
// when deviceID is empty.
func (s *Service) Latest(ctx context.Context, deviceID string) (db.Reading, error) {
	const fn = "Telemetry:Latest"
	reading, err := s.repo.LatestReading(ctx, deviceID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return reading, fault.NotFound("no_data", "No data available")
		}
		return reading, fmt.Errorf("%s:%w", fn, err)
	}
	return reading, nil
}

// HistoryQuery bounds a history read. Nil Start/End leave the range open.
type HistoryQuery struct {
	DeviceID string
	Start    *time.Time
	End      *time.Time
	Limit    int
}

func (s *Service) History(ctx context.Context, q HistoryQuery) ([]db.Reading, error) {
	const fn = "Telemetry:History"
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	readings, err := s.repo.ReadingHistory(ctx, q.DeviceID, q.Start, q.End, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", fn, err)
	}
	return readings, nil
}

// Stats aggregates one device's readings over a rolling window ending now.
// Unknown periods fall back to 24h. An empty window is not an error: it
// yields count 0 with zeroed aggregates.
func (s *Service) Stats(ctx context.Context, deviceID, period string) (db.ReadingStats, error) {
	const fn = "Telemetry:Stats"
	if deviceID == "" {
		return db.ReadingStats{}, fault.Validation("missing_field", "Missing device_id parameter")
	}
	stats, err := s.repo.StatsSince(ctx, deviceID, s.now().UTC().Add(-periodWindow(period)))
	if err != nil {
		return stats, fmt.Errorf("%s:%w", fn, err)
	}
	return stats, nil
}

func periodWindow(period string) time.Duration {
	switch period {
	case "1h":
		return time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// parseTimestamp accepts RFC 3339 and the common zone-less ISO-8601 form
// some device SDKs emit, read as UTC.
func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
