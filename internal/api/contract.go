package api

import (
	"time"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/registry"
)

// SensorDataRequest is a telemetry push. Temperature and Humidity are
// pointers so absent fields fail validation instead of reading as zero.
type SensorDataRequest struct {
	DeviceID        string   `json:"device_id"`
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	FirmwareVersion string   `json:"firmware_version"`
	Timestamp       string   `json:"timestamp"`
}

type Reading struct {
	ID              int64   `json:"id"`
	DeviceID        string  `json:"device_id"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	FirmwareVersion string  `json:"firmware_version"`
	Timestamp       string  `json:"timestamp"`
	CreatedAt       string  `json:"created_at"`
}

type Device struct {
	ID              int64   `json:"id"`
	DeviceID        string  `json:"device_id"`
	HardwareVersion *string `json:"hardware_version"`
	CurrentFirmware string  `json:"current_firmware"`
	LastSeen        string  `json:"last_seen"`
	LastIP          string  `json:"last_ip"`
	RegisteredAt    string  `json:"registered_at"`
	AutoUpdate      bool    `json:"auto_update"`
	Online          bool    `json:"online"`
}

type Firmware struct {
	ID                 int64   `json:"id"`
	Version            string  `json:"version"`
	Filename           string  `json:"filename"`
	Description        string  `json:"description"`
	ReleaseDate        string  `json:"release_date"`
	IsStable           bool    `json:"is_stable"`
	MinHardwareVersion *string `json:"min_hardware_version"`
	Checksum           string  `json:"checksum"`
}

type DeviceConfigRequest struct {
	AutoUpdate *bool `json:"auto_update"`
}

type StatsRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

type Stats struct {
	Temperature StatsRange `json:"temperature"`
	Humidity    StatsRange `json:"humidity"`
	DataPoints  int64      `json:"data_points"`
}

type CheckUpdateResponse struct {
	Status          string `json:"status"`
	UpdateAvailable bool   `json:"update_available"`
	CurrentVersion  string `json:"current_version,omitempty"`
	LatestVersion   string `json:"latest_version,omitempty"`
	Message         string `json:"message,omitempty"`
	NewVersion      string `json:"new_version,omitempty"`
	Description     string `json:"description,omitempty"`
	ReleaseDate     string `json:"release_date,omitempty"`
	FirmwareURL     string `json:"firmware_url,omitempty"`
	Checksum        string `json:"checksum,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toReading(r db.Reading) Reading {
	return Reading{
		ID:              r.ID,
		DeviceID:        r.DeviceID,
		Temperature:     r.Temperature,
		Humidity:        r.Humidity,
		FirmwareVersion: r.FirmwareVersion,
		Timestamp:       isoTime(r.ObservedAt),
		CreatedAt:       isoTime(r.RecordedAt),
	}
}

func toReadings(readings []db.Reading) []Reading {
	out := make([]Reading, 0, len(readings))
	for _, r := range readings {
		out = append(out, toReading(r))
	}
	return out
}

func toDevice(status registry.DeviceStatus) Device {
	return Device{
		ID:              status.ID,
		DeviceID:        status.DeviceID,
		HardwareVersion: status.HardwareVersion,
		CurrentFirmware: status.CurrentFirmware,
		LastSeen:        isoTime(status.LastSeen),
		LastIP:          status.LastIP,
		RegisteredAt:    isoTime(status.RegisteredAt),
		AutoUpdate:      status.AutoUpdate,
		Online:          status.Online,
	}
}

func toFirmware(rel db.Release) Firmware {
	return Firmware{
		ID:                 rel.ID,
		Version:            rel.Version,
		Filename:           rel.Filename,
		Description:        rel.Description,
		ReleaseDate:        isoTime(rel.ReleaseDate),
		IsStable:           rel.IsStable,
		MinHardwareVersion: rel.MinHardwareVersion,
		Checksum:           rel.Checksum,
	}
}

func toStats(s db.ReadingStats) Stats {
	return Stats{
		Temperature: StatsRange{Min: s.TemperatureMin, Max: s.TemperatureMax, Avg: s.TemperatureAvg},
		Humidity:    StatsRange{Min: s.HumidityMin, Max: s.HumidityMax, Avg: s.HumidityAvg},
		DataPoints:  s.Count,
	}
}
