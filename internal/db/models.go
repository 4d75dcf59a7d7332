package db

import "time"

// Reading is one accepted telemetry sample. Immutable once written.
type Reading struct {
	ID              int64     `db:"id"`
	DeviceID        string    `db:"device_id"`
	Temperature     float64   `db:"temperature"`
	Humidity        float64   `db:"humidity"`
	FirmwareVersion string    `db:"firmware_version"`
	ObservedAt      time.Time `db:"observed_at"`
	RecordedAt      time.Time `db:"recorded_at"`
}

// Device is the registry row tracking liveness and firmware state for one
// physical device.
type Device struct {
	ID              int64      `db:"id"`
	DeviceID        string     `db:"device_id"`
	HardwareVersion *string    `db:"hardware_version"`
	CurrentFirmware string     `db:"current_firmware"`
	LastSeen        time.Time  `db:"last_seen"`
	LastIP          string     `db:"last_ip"`
	RegisteredAt    time.Time  `db:"registered_at"`
	AutoUpdate      bool       `db:"auto_update"`
}

// Release is the metadata row for one uploaded firmware binary.
type Release struct {
	ID                 int64     `db:"id"`
	Version            string    `db:"version"`
	Filename           string    `db:"filename"`
	Description        string    `db:"description"`
	ReleaseDate        time.Time `db:"release_date"`
	IsStable           bool      `db:"is_stable"`
	MinHardwareVersion *string   `db:"min_hardware_version"`
	Checksum           string    `db:"checksum"`
}

// ReadingStats is a min/max/avg aggregate over a time window.
type ReadingStats struct {
	Count          int64   `db:"count"`
	TemperatureMin float64 `db:"temperature_min"`
	TemperatureMax float64 `db:"temperature_max"`
	TemperatureAvg float64 `db:"temperature_avg"`
	HumidityMin    float64 `db:"humidity_min"`
	HumidityMax    float64 `db:"humidity_max"`
	HumidityAvg    float64 `db:"humidity_avg"`
}
