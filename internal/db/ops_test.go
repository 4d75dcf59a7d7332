package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var DBPool *DB

// Setup the testcontainer DB before running any db ops tests
func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
	)
	if err != nil {
		panic(err)
	}
	defer pgContainer.Terminate(ctx)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}
	migrationsPath := "./migrations"

	DBPool, err = Init(ctx, Config{
		ConnString:     connStr,
		MigrationsPath: migrationsPath,
	})
	if err != nil {
		panic(err)
	}

	m.Run()

	pgContainer.Terminate(ctx)
	DBPool.Close()
}

// pgNow trims to microseconds, the resolution TIMESTAMPTZ round-trips at.
func pgNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func Test_RecordReading(t *testing.T) {
	ctx := context.Background()
	now := pgNow()

	reading, dev, err := DBPool.RecordReading(ctx, Reading{
		DeviceID:        "record_001",
		Temperature:     23.5,
		Humidity:        41.0,
		FirmwareVersion: "1.2.0",
		ObservedAt:      now,
		RecordedAt:      now,
	}, "10.0.0.7")
	require.NoError(t, err)
	assert.NotZero(t, reading.ID)

	// The registry row is written in the same transaction.
	assert.Equal(t, "record_001", dev.DeviceID)
	assert.Equal(t, "1.2.0", dev.CurrentFirmware)
	assert.Equal(t, "10.0.0.7", dev.LastIP)
	assert.True(t, dev.LastSeen.Equal(now))
	assert.True(t, dev.RegisteredAt.Equal(now))
	assert.True(t, dev.AutoUpdate)

	// A later reading moves liveness but not registered_at.
	later := now.Add(time.Minute)
	_, dev2, err := DBPool.RecordReading(ctx, Reading{
		DeviceID:        "record_001",
		Temperature:     24.0,
		Humidity:        40.0,
		FirmwareVersion: "1.3.0",
		ObservedAt:      later,
		RecordedAt:      later,
	}, "10.0.0.8")
	require.NoError(t, err)
	assert.Equal(t, dev.ID, dev2.ID)
	assert.Equal(t, "1.3.0", dev2.CurrentFirmware)
	assert.Equal(t, "10.0.0.8", dev2.LastIP)
	assert.True(t, dev2.LastSeen.Equal(later))
	assert.True(t, dev2.RegisteredAt.Equal(dev.RegisteredAt))
}

func Test_TouchDevice_ConcurrentFirstSighting(t *testing.T) {
	ctx := context.Background()
	now := pgNow()

	// Racing first sightings must resolve to a single registry row.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < len(errs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = DBPool.TouchDevice(ctx, "race_001", "10.0.0.1", "1.0.0", now)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	devices, err := DBPool.ListDevices(ctx)
	require.NoError(t, err)
	seen := 0
	for _, dev := range devices {
		if dev.DeviceID == "race_001" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func Test_GetDevice_NotFound(t *testing.T) {
	_, err := DBPool.GetDevice(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_SetAutoUpdate(t *testing.T) {
	ctx := context.Background()

	_, err := DBPool.TouchDevice(ctx, "autoupd_001", "10.0.0.1", "1.0.0", pgNow())
	require.NoError(t, err)

	dev, err := DBPool.SetAutoUpdate(ctx, "autoupd_001", false)
	require.NoError(t, err)
	assert.False(t, dev.AutoUpdate)

	_, err = DBPool.SetAutoUpdate(ctx, "ghost", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_LatestReading(t *testing.T) {
	ctx := context.Background()
	base := pgNow()

	for i, temp := range []float64{20.0, 21.0, 22.0} {
		at := base.Add(time.Duration(i) * time.Minute)
		_, _, err := DBPool.RecordReading(ctx, Reading{
			DeviceID:        "latest_001",
			Temperature:     temp,
			Humidity:        50,
			FirmwareVersion: "1.0.0",
			ObservedAt:      at,
			RecordedAt:      at,
		}, "10.0.0.1")
		require.NoError(t, err)
	}

	reading, err := DBPool.LatestReading(ctx, "latest_001")
	require.NoError(t, err)
	assert.Equal(t, 22.0, reading.Temperature)

	_, err = DBPool.LatestReading(ctx, "latest_none")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_ReadingHistory(t *testing.T) {
	ctx := context.Background()
	base := pgNow()

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		_, _, err := DBPool.RecordReading(ctx, Reading{
			DeviceID:        "history_001",
			Temperature:     20 + float64(i),
			Humidity:        50,
			FirmwareVersion: "1.0.0",
			ObservedAt:      at,
			RecordedAt:      at,
		}, "10.0.0.1")
		require.NoError(t, err)
	}

	// Newest first, capped at limit.
	readings, err := DBPool.ReadingHistory(ctx, "history_001", nil, nil, 3)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, 24.0, readings[0].Temperature)
	assert.Equal(t, 22.0, readings[2].Temperature)

	// Both range ends are inclusive.
	start := base.Add(time.Minute)
	end := base.Add(3 * time.Minute)
	readings, err = DBPool.ReadingHistory(ctx, "history_001", &start, &end, 100)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.Equal(t, 23.0, readings[0].Temperature)
	assert.Equal(t, 21.0, readings[2].Temperature)

	readings, err = DBPool.ReadingHistory(ctx, "history_none", nil, nil, 100)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func Test_StatsSince(t *testing.T) {
	ctx := context.Background()
	base := pgNow()

	samples := []struct {
		temperature float64
		humidity    float64
	}{
		{temperature: 20, humidity: 40},
		{temperature: 22, humidity: 50},
		{temperature: 24, humidity: 60},
	}
	for i, s := range samples {
		at := base.Add(time.Duration(i) * time.Minute)
		_, _, err := DBPool.RecordReading(ctx, Reading{
			DeviceID:        "stats_001",
			Temperature:     s.temperature,
			Humidity:        s.humidity,
			FirmwareVersion: "1.0.0",
			ObservedAt:      at,
			RecordedAt:      at,
		}, "10.0.0.1")
		require.NoError(t, err)
	}

	stats, err := DBPool.StatsSince(ctx, "stats_001", base)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, 20.0, stats.TemperatureMin)
	assert.Equal(t, 24.0, stats.TemperatureMax)
	assert.Equal(t, 22.0, stats.TemperatureAvg)
	assert.Equal(t, 40.0, stats.HumidityMin)
	assert.Equal(t, 60.0, stats.HumidityMax)
	assert.Equal(t, 50.0, stats.HumidityAvg)

	// Window start is inclusive; a later window drops older samples.
	stats, err = DBPool.StatsSince(ctx, "stats_001", base.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Count)
	assert.Equal(t, 22.0, stats.TemperatureMin)

	// Empty window reads as zeros, not an error.
	stats, err = DBPool.StatsSince(ctx, "stats_none", base)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.Zero(t, stats.TemperatureMin)
	assert.Zero(t, stats.HumidityAvg)
}

func Test_InsertRelease_DuplicateVersion(t *testing.T) {
	ctx := context.Background()
	now := pgNow()

	first, err := DBPool.InsertRelease(ctx, Release{
		Version:     "9.0.0",
		Filename:    "firmware_v9.0.0.bin",
		Description: "test build",
		ReleaseDate: now,
		IsStable:    true,
		Checksum:    "aaaa",
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = DBPool.InsertRelease(ctx, Release{
		Version:     "9.0.0",
		Filename:    "firmware_v9.0.0.bin",
		ReleaseDate: now,
		IsStable:    true,
		Checksum:    "bbbb",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateVersion))

	// The first insert's row is untouched.
	rel, err := DBPool.GetRelease(ctx, "9.0.0")
	require.NoError(t, err)
	assert.Equal(t, "aaaa", rel.Checksum)
}

func Test_DeleteRelease(t *testing.T) {
	ctx := context.Background()

	_, err := DBPool.InsertRelease(ctx, Release{
		Version:     "9.1.0",
		Filename:    "firmware_v9.1.0.bin",
		ReleaseDate: pgNow(),
		IsStable:    true,
		Checksum:    "cccc",
	})
	require.NoError(t, err)

	require.NoError(t, DBPool.DeleteRelease(ctx, "9.1.0"))
	_, err = DBPool.GetRelease(ctx, "9.1.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_StableReleases(t *testing.T) {
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC) }

	seed := []Release{
		{Version: "8.0.0", Filename: "firmware_v8.0.0.bin", ReleaseDate: day(1), IsStable: true, Checksum: "a"},
		{Version: "8.1.0", Filename: "firmware_v8.1.0.bin", ReleaseDate: day(2), IsStable: true, Checksum: "b"},
		{Version: "8.2.0", Filename: "firmware_v8.2.0.bin", ReleaseDate: day(3), IsStable: false, Checksum: "c"},
	}
	for _, rel := range seed {
		_, err := DBPool.InsertRelease(ctx, rel)
		require.NoError(t, err)
	}

	releases, err := DBPool.StableReleases(ctx)
	require.NoError(t, err)

	var versions []string
	for _, rel := range releases {
		if rel.Version == "8.0.0" || rel.Version == "8.1.0" || rel.Version == "8.2.0" {
			versions = append(versions, rel.Version)
		}
	}
	// Newest release_date first, pre-release channel excluded.
	assert.Equal(t, []string{"8.1.0", "8.0.0"}, versions)
}
