package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) RecordReading(ctx context.Context, r db.Reading, ip string) (db.Reading, db.Device, error) {
	args := m.Called(ctx, r, ip)
	return args.Get(0).(db.Reading), args.Get(1).(db.Device), args.Error(2)
}

func (m *mockRepository) LatestReading(ctx context.Context, deviceID string) (db.Reading, error) {
	args := m.Called(ctx, deviceID)
	return args.Get(0).(db.Reading), args.Error(1)
}

func (m *mockRepository) ReadingHistory(ctx context.Context, deviceID string, start, end *time.Time, limit int) ([]db.Reading, error) {
	args := m.Called(ctx, deviceID, start, end, limit)
	return args.Get(0).([]db.Reading), args.Error(1)
}

func (m *mockRepository) StatsSince(ctx context.Context, deviceID string, since time.Time) (db.ReadingStats, error) {
	args := m.Called(ctx, deviceID, since)
	return args.Get(0).(db.ReadingStats), args.Error(1)
}

type capturePublisher struct {
	published []db.Reading
}

func (p *capturePublisher) Publish(_ context.Context, r db.Reading) {
	p.published = append(p.published, r)
}

func ptr(f float64) *float64 { return &f }

func Test_Ingest(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	repo := &mockRepository{}
	expected := db.Reading{
		DeviceID:        "ESP32_001",
		Temperature:     23.5,
		Humidity:        41.0,
		FirmwareVersion: "1.2.0",
		ObservedAt:      now,
		RecordedAt:      now,
	}
	stored := expected
	stored.ID = 7
	repo.On("RecordReading", mock.Anything, expected, "10.0.0.7").
		Return(stored, db.Device{DeviceID: "ESP32_001"}, nil)

	pub := &capturePublisher{}
	svc := New(Config{DB: repo, Publisher: pub, Now: func() time.Time { return now }})

	reading, dev, err := svc.Ingest(context.Background(), Sample{
		DeviceID:        "ESP32_001",
		Temperature:     ptr(23.5),
		Humidity:        ptr(41.0),
		FirmwareVersion: "1.2.0",
		RemoteIP:        "10.0.0.7",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), reading.ID)
	assert.Equal(t, 23.5, reading.Temperature)
	assert.Equal(t, 41.0, reading.Humidity)
	assert.Equal(t, "ESP32_001", dev.DeviceID)

	// Accepted readings reach the relay.
	require.Len(t, pub.published, 1)
	assert.Equal(t, int64(7), pub.published[0].ID)
	repo.AssertExpectations(t)
}

func Test_Ingest_Validation(t *testing.T) {
	cases := []struct {
		name         string
		sample       Sample
		expectedKind fault.Kind
	}{
		{
			name:         "missing device_id",
			sample:       Sample{Temperature: ptr(20), Humidity: ptr(50)},
			expectedKind: fault.KindValidation,
		},
		{
			name:         "missing temperature",
			sample:       Sample{DeviceID: "ESP32_001", Humidity: ptr(50)},
			expectedKind: fault.KindValidation,
		},
		{
			name:         "missing humidity",
			sample:       Sample{DeviceID: "ESP32_001", Temperature: ptr(20)},
			expectedKind: fault.KindValidation,
		},
		{
			name:         "temperature too high",
			sample:       Sample{DeviceID: "ESP32_001", Temperature: ptr(150), Humidity: ptr(50)},
			expectedKind: fault.KindRange,
		},
		{
			name:         "temperature too low",
			sample:       Sample{DeviceID: "ESP32_001", Temperature: ptr(-51), Humidity: ptr(50)},
			expectedKind: fault.KindRange,
		},
		{
			name:         "humidity negative",
			sample:       Sample{DeviceID: "ESP32_001", Temperature: ptr(20), Humidity: ptr(-5)},
			expectedKind: fault.KindRange,
		},
		{
			name:         "humidity over 100",
			sample:       Sample{DeviceID: "ESP32_001", Temperature: ptr(20), Humidity: ptr(101)},
			expectedKind: fault.KindRange,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			pub := &capturePublisher{}
			svc := New(Config{DB: repo, Publisher: pub})

			_, _, err := svc.Ingest(context.Background(), tt.sample)

			kind, ok := fault.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedKind, kind)

			// Rejected samples leave no stored reading, no registry
			// mutation, and nothing published.
			repo.AssertNotCalled(t, "RecordReading", mock.Anything, mock.Anything, mock.Anything)
			assert.Empty(t, pub.published)
		})
	}
}

func Test_Ingest_BoundaryValuesAccepted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		temperature float64
		humidity    float64
	}{
		{name: "coldest plausible", temperature: -50, humidity: 0},
		{name: "hottest plausible", temperature: 100, humidity: 100},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			repo.On("RecordReading", mock.Anything, mock.Anything, mock.Anything).
				Return(db.Reading{}, db.Device{}, nil)

			svc := New(Config{DB: repo, Now: func() time.Time { return now }})

			_, _, err := svc.Ingest(context.Background(), Sample{
				DeviceID:    "ESP32_001",
				Temperature: ptr(tt.temperature),
				Humidity:    ptr(tt.humidity),
			})
			require.NoError(t, err)
		})
	}
}

func Test_Ingest_Timestamps(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		observedAt string
		expected   time.Time
	}{
		{
			name:       "valid RFC3339 timestamp kept",
			observedAt: "2026-02-28T08:30:00Z",
			expected:   time.Date(2026, 2, 28, 8, 30, 0, 0, time.UTC),
		},
		{
			name:       "zone-less timestamp read as UTC",
			observedAt: "2026-02-28T08:30:00",
			expected:   time.Date(2026, 2, 28, 8, 30, 0, 0, time.UTC),
		},
		{
			name:       "garbage falls back to server time",
			observedAt: "yesterday-ish",
			expected:   now,
		},
		{
			name:       "absent falls back to server time",
			observedAt: "",
			expected:   now,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			repo.On("RecordReading", mock.Anything, mock.MatchedBy(func(r db.Reading) bool {
				return r.ObservedAt.Equal(tt.expected) && r.RecordedAt.Equal(now)
			}), mock.Anything).Return(db.Reading{}, db.Device{}, nil)

			svc := New(Config{DB: repo, Now: func() time.Time { return now }})

			_, _, err := svc.Ingest(context.Background(), Sample{
				DeviceID:    "ESP32_001",
				Temperature: ptr(20),
				Humidity:    ptr(50),
				ObservedAt:  tt.observedAt,
			})
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func Test_Ingest_FirmwareDefaultsToUnknown(t *testing.T) {
	repo := &mockRepository{}
	repo.On("RecordReading", mock.Anything, mock.MatchedBy(func(r db.Reading) bool {
		return r.FirmwareVersion == UnknownFirmware
	}), mock.Anything).Return(db.Reading{}, db.Device{}, nil)

	svc := New(Config{DB: repo})

	_, _, err := svc.Ingest(context.Background(), Sample{
		DeviceID:    "ESP32_001",
		Temperature: ptr(20),
		Humidity:    ptr(50),
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func Test_Latest_NotFound(t *testing.T) {
	repo := &mockRepository{}
	repo.On("LatestReading", mock.Anything, "ESP32_001").Return(db.Reading{}, db.ErrNotFound)

	svc := New(Config{DB: repo})

	_, err := svc.Latest(context.Background(), "ESP32_001")
	kind, ok := fault.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fault.KindNotFound, kind)
}

func Test_History_DefaultLimit(t *testing.T) {
	repo := &mockRepository{}
	repo.On("ReadingHistory", mock.Anything, "ESP32_001", (*time.Time)(nil), (*time.Time)(nil), DefaultHistoryLimit).
		Return([]db.Reading{}, nil)

	svc := New(Config{DB: repo})

	readings, err := svc.History(context.Background(), HistoryQuery{DeviceID: "ESP32_001"})
	require.NoError(t, err)
	assert.Empty(t, readings)
	repo.AssertExpectations(t)
}

func Test_Stats_PeriodWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		period string
		window time.Duration
	}{
		{name: "one hour", period: "1h", window: time.Hour},
		{name: "one day", period: "24h", window: 24 * time.Hour},
		{name: "one week", period: "7d", window: 7 * 24 * time.Hour},
		{name: "one month", period: "30d", window: 30 * 24 * time.Hour},
		{name: "default is one day", period: "", window: 24 * time.Hour},
		{name: "unknown period falls back to one day", period: "5m", window: 24 * time.Hour},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepository{}
			repo.On("StatsSince", mock.Anything, "ESP32_001", now.Add(-tt.window)).
				Return(db.ReadingStats{}, nil)

			svc := New(Config{DB: repo, Now: func() time.Time { return now }})

			_, err := svc.Stats(context.Background(), "ESP32_001", tt.period)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func Test_Stats_MissingDeviceID(t *testing.T) {
	repo := &mockRepository{}
	svc := New(Config{DB: repo})

	_, err := svc.Stats(context.Background(), "", "24h")
	kind, ok := fault.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, fault.KindValidation, kind)
}

func Test_Stats_EmptyWindow(t *testing.T) {
	repo := &mockRepository{}
	repo.On("StatsSince", mock.Anything, "ESP32_001", mock.Anything).
		Return(db.ReadingStats{}, nil)

	svc := New(Config{DB: repo})

	stats, err := svc.Stats(context.Background(), "ESP32_001", "24h")
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Zero(t, stats.TemperatureMin)
	assert.Zero(t, stats.TemperatureMax)
	assert.Zero(t, stats.TemperatureAvg)
	assert.Zero(t, stats.HumidityAvg)
}
