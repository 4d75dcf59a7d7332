package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
)

// CheckFirmwareUpdate handles GET /api/v1/firmware/check, the device-facing
// half of the OTA negotiation.
func (a *API) CheckFirmwareUpdate(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	currentVersion := r.URL.Query().Get("current_version")

	decision, err := a.updates.Check(r.Context(), deviceID, currentVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := CheckUpdateResponse{
		Status:          "success",
		UpdateAvailable: decision.UpdateAvailable,
		CurrentVersion:  decision.CurrentVersion,
		LatestVersion:   decision.LatestVersion,
	}
	if decision.LatestVersion == "" {
		resp.Message = "No firmware available"
	}
	if decision.UpdateAvailable {
		rel := decision.Release
		resp.NewVersion = rel.Version
		resp.Description = rel.Description
		resp.ReleaseDate = isoTime(rel.ReleaseDate)
		resp.FirmwareURL = fmt.Sprintf("%s/api/v1/firmware/download/%s", baseURL(r), rel.Version)
		resp.Checksum = rel.Checksum
	}
	writeJSON(w, http.StatusOK, resp)
}

// UploadFirmware handles POST /api/v1/firmware/upload (multipart: file,
// version, description, is_stable).
func (a *API) UploadFirmware(w http.ResponseWriter, r *http.Request) {
	if a.maxUpload > 0 {
		// Bound the whole request body; multipart framing overhead is
		// negligible next to the binary itself.
		r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload+64*1024)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fault.Validation("missing_file", "No file provided"))
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, r, fault.Validation("missing_file", "No file selected"))
		return
	}

	isStable := true
	if raw := r.FormValue("is_stable"); raw != "" {
		isStable = strings.EqualFold(raw, "true")
	}

	rel, err := a.firmware.Upload(r.Context(), r.FormValue("version"), r.FormValue("description"), isStable, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":   "success",
		"message":  "Firmware uploaded successfully",
		"firmware": toFirmware(rel),
	})
}

// DownloadFirmware handles GET /api/v1/firmware/download/{version},
// streaming the stored binary. Devices verify the advertised checksum
// themselves before flashing.
func (a *API) DownloadFirmware(w http.ResponseWriter, r *http.Request) {
	ver := chi.URLParam(r, "version")

	f, rel, err := a.firmware.OpenBinary(r.Context(), ver)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rel.Filename))
	if _, err := io.Copy(w, f); err != nil {
		// Headers are gone; all we can do is log the broken transfer.
		slog.ErrorContext(r.Context(), "Firmware download interrupted", "version", ver, "error", err)
	}
}

// ListFirmware handles GET /api/v1/firmware/list, newest release first.
func (a *API) ListFirmware(w http.ResponseWriter, r *http.Request) {
	releases, err := a.firmware.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	versions := make([]Firmware, 0, len(releases))
	for _, rel := range releases {
		versions = append(versions, toFirmware(rel))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"count":    len(versions),
		"versions": versions,
	})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
