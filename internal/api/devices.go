package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
	"github.com/muhammadubaid182004/Weather-Station/internal/registry"
)

// ListDevices handles GET /api/v1/devices. Each entry carries the derived
// online flag.
func (a *API) ListDevices(w http.ResponseWriter, r *http.Request) {
	statuses, err := a.devices.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	devices := make([]Device, 0, len(statuses))
	for _, status := range statuses {
		devices = append(devices, toDevice(status))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"count":   len(devices),
		"devices": devices,
	})
}

// GetDeviceConfig handles GET /api/v1/devices/{device_id}/config.
func (a *API) GetDeviceConfig(w http.ResponseWriter, r *http.Request) {
	status, err := a.devices.Get(r.Context(), chi.URLParam(r, "device_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"device": toDevice(status),
	})
}

// SetDeviceConfig handles POST /api/v1/devices/{device_id}/config. The only
// settable knob is auto_update.
func (a *API) SetDeviceConfig(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")

	var req DeviceConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fault.Validation("invalid_body", "Invalid request body"))
		return
	}

	var (
		status registry.DeviceStatus
		err    error
	)
	if req.AutoUpdate != nil {
		status, err = a.devices.SetAutoUpdate(r.Context(), deviceID, *req.AutoUpdate)
	} else {
		// Nothing to change; still 404 for unknown devices.
		status, err = a.devices.Get(r.Context(), deviceID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Device configuration updated",
		"device":  toDevice(status),
	})
}
