package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/muhammadubaid182004/Weather-Station/internal/fault"
	"github.com/muhammadubaid182004/Weather-Station/internal/telemetry"
)

// ReceiveSensorData handles POST /api/v1/sensor/data, the telemetry push
// from devices.
func (a *API) ReceiveSensorData(w http.ResponseWriter, r *http.Request) {
	var req SensorDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fault.Validation("invalid_body", "Invalid request body"))
		return
	}

	reading, _, err := a.telemetry.Ingest(r.Context(), telemetry.Sample{
		DeviceID:        req.DeviceID,
		Temperature:     req.Temperature,
		Humidity:        req.Humidity,
		FirmwareVersion: req.FirmwareVersion,
		ObservedAt:      req.Timestamp,
		RemoteIP:        remoteIP(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  "success",
		"message": "Data received successfully",
		"data":    toReading(reading),
	})
}

// GetLatestReading handles GET /api/v1/sensor/latest. Without device_id it
// spans all devices.
func (a *API) GetLatestReading(w http.ResponseWriter, r *http.Request) {
	reading, err := a.telemetry.Latest(r.Context(), r.URL.Query().Get("device_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"data":   toReading(reading),
	})
}

// GetReadingHistory handles GET /api/v1/sensor/history.
func (a *API) GetReadingHistory(w http.ResponseWriter, r *http.Request) {
	q := telemetry.HistoryQuery{
		DeviceID: r.URL.Query().Get("device_id"),
		Limit:    parseLimit(r.URL.Query().Get("limit")),
	}

	if raw := r.URL.Query().Get("start_date"); raw != "" {
		start, err := parseQueryDate(raw)
		if err != nil {
			writeError(w, r, fault.Validation("invalid_date", "Invalid start_date format"))
			return
		}
		q.Start = &start
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		end, err := parseQueryDate(raw)
		if err != nil {
			writeError(w, r, fault.Validation("invalid_date", "Invalid end_date format"))
			return
		}
		q.End = &end
	}

	readings, err := a.telemetry.History(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"count":  len(readings),
		"data":   toReadings(readings),
	})
}

// GetReadingStats handles GET /api/v1/sensor/stats. Aggregates over a
// rolling window ending now; period one of 1h/24h/7d/30d.
func (a *API) GetReadingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.telemetry.Stats(r.Context(), r.URL.Query().Get("device_id"), r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"stats":  toStats(stats),
	})
}

// parseQueryDate accepts RFC 3339 and the zone-less ISO form dashboards
// send, read as UTC.
func parseQueryDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseLimit falls back to the service default on anything unusable.
func parseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
