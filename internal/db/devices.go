package db

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
)

const deviceColumns = `id, device_id, hardware_version, current_firmware, last_seen, last_ip, registered_at, auto_update`

// touchDevice is the single write path for device liveness. First sighting
// inserts the row with registered_at = now and auto_update defaulted true;
// later sightings only move last_seen, last_ip, and current_firmware. The
// ON CONFLICT clause makes two racing first sightings resolve to one insert
// and one update instead of an error.
func touchDevice(ctx context.Context, tx pgx.Tx, deviceID, ip, firmwareVersion string, now time.Time) (Device, error) {
	const fn = "DB:touchDevice"
	var dev Device
	err := pgxscan.Get(ctx, tx, &dev, `
		INSERT INTO devices (
			device_id,
			current_firmware,
			last_seen,
			last_ip,
			registered_at
		) VALUES ($1, $2, $3, $4, $3)
		ON CONFLICT (device_id) DO UPDATE SET
			current_firmware = EXCLUDED.current_firmware,
			last_seen = EXCLUDED.last_seen,
			last_ip = EXCLUDED.last_ip
		RETURNING `+deviceColumns,
		deviceID, firmwareVersion, now, ip)
	if err != nil {
		return dev, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return dev, nil
}

// TouchDevice runs the liveness upsert outside any enclosing transaction.
func (db *DB) TouchDevice(ctx context.Context, deviceID, ip, firmwareVersion string, now time.Time) (dev Device, err error) {
	const fn = "DB:TouchDevice"
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return dev, fmt.Errorf("%s:%w:%w", fn, ErrTransactionStartFailed, err)
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

	dev, err = touchDevice(ctx, tx, deviceID, ip, firmwareVersion, now)
	if err != nil {
		return dev, fmt.Errorf("%s:%w", fn, err)
	}
	return dev, nil
}

func (db *DB) GetDevice(ctx context.Context, deviceID string) (Device, error) {
	const fn = "DB:GetDevice"
	var dev Device
	err := pgxscan.Get(ctx, db.pool, &dev, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE device_id = $1
	`, deviceID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return dev, fmt.Errorf("%s:%w", fn, ErrNotFound)
		}
		return dev, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return dev, nil
}

func (db *DB) ListDevices(ctx context.Context) ([]Device, error) {
	const fn = "DB:ListDevices"
	var devices []Device
	err := pgxscan.Select(ctx, db.pool, &devices, `
		SELECT `+deviceColumns+`
		FROM devices
		ORDER BY device_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// SetAutoUpdate flips the auto_update flag. ErrNotFound for unknown devices;
// the registry never creates rows outside the touch path.
func (db *DB) SetAutoUpdate(ctx context.Context, deviceID string, enabled bool) (Device, error) {
	const fn = "DB:SetAutoUpdate"
	var dev Device
	err := pgxscan.Get(ctx, db.pool, &dev, `
		UPDATE devices
		SET auto_update = $2
		WHERE device_id = $1
		RETURNING `+deviceColumns,
		deviceID, enabled)
	if err != nil {
		if pgxscan.NotFound(err) {
			return dev, fmt.Errorf("%s:%w", fn, ErrNotFound)
		}
		return dev, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return dev, nil
}
