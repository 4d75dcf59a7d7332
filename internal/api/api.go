// Package api is the REST surface: JSON envelopes matching what the device
// firmware and dashboards already speak, mounted under /api/v1.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muhammadubaid182004/Weather-Station/internal/db"
	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
	"github.com/muhammadubaid182004/Weather-Station/internal/registry"
	"github.com/muhammadubaid182004/Weather-Station/internal/telemetry"
	"github.com/muhammadubaid182004/Weather-Station/internal/update"
)

type telemetryService interface {
	Ingest(ctx context.Context, sample telemetry.Sample) (db.Reading, db.Device, error)
	Latest(ctx context.Context, deviceID string) (db.Reading, error)
	History(ctx context.Context, q telemetry.HistoryQuery) ([]db.Reading, error)
	Stats(ctx context.Context, deviceID, period string) (db.ReadingStats, error)
}

type firmwareCatalog interface {
	Upload(ctx context.Context, version, description string, isStable bool, r io.Reader) (db.Release, error)
	Get(ctx context.Context, version string) (db.Release, error)
	List(ctx context.Context) ([]db.Release, error)
	OpenBinary(ctx context.Context, version string) (io.ReadCloser, db.Release, error)
}

type deviceRegistry interface {
	Get(ctx context.Context, deviceID string) (registry.DeviceStatus, error)
	List(ctx context.Context) ([]registry.DeviceStatus, error)
	SetAutoUpdate(ctx context.Context, deviceID string, enabled bool) (registry.DeviceStatus, error)
}

type updateChecker interface {
	Check(ctx context.Context, deviceID, currentVersion string) (update.Decision, error)
}

type API struct {
	telemetry telemetryService
	firmware  firmwareCatalog
	devices   deviceRegistry
	updates   updateChecker
	maxUpload int64
}

type Config struct {
	Telemetry telemetryService
	Firmware  firmwareCatalog
	Devices   deviceRegistry
	Updates   updateChecker
	// MaxUploadBytes bounds the firmware upload request body.
	MaxUploadBytes int64
}

func New(cfg Config) *API {
	return &API{
		telemetry: cfg.Telemetry,
		firmware:  cfg.Firmware,
		devices:   cfg.Devices,
		updates:   cfg.Updates,
		maxUpload: cfg.MaxUploadBytes,
	}
}

func (a *API) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sensor/data", a.ReceiveSensorData)
		r.Get("/sensor/latest", a.GetLatestReading)
		r.Get("/sensor/history", a.GetReadingHistory)
		r.Get("/sensor/stats", a.GetReadingStats)

		r.Get("/firmware/check", a.CheckFirmwareUpdate)
		r.Post("/firmware/upload", a.UploadFirmware)
		r.Get("/firmware/download/{version}", a.DownloadFirmware)
		r.Get("/firmware/list", a.ListFirmware)

		r.Get("/devices", a.ListDevices)
		r.Get("/devices/{device_id}/config", a.GetDeviceConfig)
		r.Post("/devices/{device_id}/config", a.SetDeviceConfig)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps the fault taxonomy to HTTP statuses. Unclassified and
// internal-class failures are logged server-side and surfaced only as a
// generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, ok := fault.KindOf(err)
	if !ok {
		slog.ErrorContext(r.Context(), "Internal error", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status:  "error",
			Code:    "internal_error",
			Message: "Internal server error",
		})
		return
	}

	switch kind {
	case fault.KindValidation, fault.KindRange, fault.KindConflict:
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  "error",
			Code:    fault.CodeOf(err),
			Message: faultMessage(err),
		})
	case fault.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{
			Status:  "error",
			Code:    fault.CodeOf(err),
			Message: faultMessage(err),
		})
	default:
		// Integrity and storage failures carry internal detail the caller
		// must not see.
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status:  "error",
			Code:    fault.CodeOf(err),
			Message: "Internal server error",
		})
	}
}

func faultMessage(err error) string {
	var fe *fault.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return "Internal server error"
}

// remoteIP strips the port from the peer address.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
