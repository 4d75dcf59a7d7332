package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
)

var (
	ErrInsertFailed           = errors.New("insert operation failed")
	ErrTransactionStartFailed = errors.New("transaction start failed")
	ErrSelectFailed           = errors.New("select operation failed")
	ErrNotFound               = errors.New("row not found")
)

// RecordReading persists a telemetry reading and upserts the device registry
// row in one transaction, so a crash between the two writes can never leave
// telemetry without a registry update or vice versa. Returns the stored
// reading and the registry row after the touch.
func (db *DB) RecordReading(ctx context.Context, r Reading, ip string) (reading Reading, dev Device, err error) {
	const fn = "DB:RecordReading"
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return r, dev, fmt.Errorf("%s:%w:%w", fn, ErrTransactionStartFailed, err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, commitErr)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO sensor_readings (
			device_id,
			temperature,
			humidity,
			firmware_version,
			observed_at,
			recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, r.DeviceID, r.Temperature, r.Humidity, r.FirmwareVersion, r.ObservedAt, r.RecordedAt).Scan(&r.ID)
	if err != nil {
		return r, dev, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}

	dev, err = touchDevice(ctx, tx, r.DeviceID, ip, r.FirmwareVersion, r.RecordedAt)
	if err != nil {
		return r, dev, fmt.Errorf("%s:%w", fn, err)
	}
	return r, dev, nil
}

// LatestReading returns the most recent reading by observed_at, optionally
// filtered to one device. ErrNotFound when nothing has been ingested.
func (db *DB) LatestReading(ctx context.Context, deviceID string) (Reading, error) {
	const fn = "DB:LatestReading"
	var r Reading
	query := `
		SELECT id, device_id, temperature, humidity, firmware_version, observed_at, recorded_at
		FROM sensor_readings
	`
	args := []any{}
	if deviceID != "" {
		query += ` WHERE device_id = $1`
		args = append(args, deviceID)
	}
	query += ` ORDER BY observed_at DESC LIMIT 1`

	err := pgxscan.Get(ctx, db.pool, &r, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return r, fmt.Errorf("%s:%w", fn, ErrNotFound)
		}
		return r, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return r, nil
}

// ReadingHistory returns readings newest-first, capped at limit. Nil start
// or end leaves that side of the range open; empty deviceID spans all
// devices.
func (db *DB) ReadingHistory(ctx context.Context, deviceID string, start, end *time.Time, limit int) ([]Reading, error) {
	const fn = "DB:ReadingHistory"
	query := `
		SELECT id, device_id, temperature, humidity, firmware_version, observed_at, recorded_at
		FROM sensor_readings
		WHERE TRUE
	`
	args := []any{}
	if deviceID != "" {
		args = append(args, deviceID)
		query += fmt.Sprintf(" AND device_id = $%d", len(args))
	}
	if start != nil {
		args = append(args, *start)
		query += fmt.Sprintf(" AND observed_at >= $%d", len(args))
	}
	if end != nil {
		args = append(args, *end)
		query += fmt.Sprintf(" AND observed_at <= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY observed_at DESC LIMIT $%d", len(args))

	var readings []Reading
	err := pgxscan.Select(ctx, db.pool, &readings, query, args...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return []Reading{}, nil
		}
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if readings == nil {
		readings = []Reading{}
	}
	return readings, nil
}

// StatsSince aggregates one device's readings observed at or after since.
// An empty window yields count 0 with zeroed aggregates.
func (db *DB) StatsSince(ctx context.Context, deviceID string, since time.Time) (ReadingStats, error) {
	const fn = "DB:StatsSince"
	var stats ReadingStats
	err := pgxscan.Get(ctx, db.pool, &stats, `
		SELECT
			COUNT(*) AS count,
			COALESCE(MIN(temperature), 0) AS temperature_min,
			COALESCE(MAX(temperature), 0) AS temperature_max,
			COALESCE(AVG(temperature), 0) AS temperature_avg,
			COALESCE(MIN(humidity), 0) AS humidity_min,
			COALESCE(MAX(humidity), 0) AS humidity_max,
			COALESCE(AVG(humidity), 0) AS humidity_avg
		FROM sensor_readings
		WHERE device_id = $1
		AND observed_at >= $2
	`, deviceID, since)
	if err != nil {
		return stats, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return stats, nil
}
