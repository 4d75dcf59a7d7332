package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Simulates one ESP32 weather station: pushes a reading every few seconds
// and checks for a firmware update after each push.

type SensorData struct {
	DeviceID        string  `json:"device_id"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	FirmwareVersion string  `json:"firmware_version"`
	Timestamp       string  `json:"timestamp"`
}

func main() {
	baseURL := "http://localhost:8080"
	deviceID := "ESP32_SIM_001"
	firmwareVersion := "1.0.0"

	for {
		data := SensorData{
			DeviceID:        deviceID,
			Temperature:     18 + rand.Float64()*10,
			Humidity:        35 + rand.Float64()*30,
			FirmwareVersion: firmwareVersion,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
		}
		payload, _ := json.Marshal(data)

		resp, err := http.Post(baseURL+"/api/v1/sensor/data", "application/json", bytes.NewBuffer(payload))
		if err != nil {
			panic(err)
		}
		fmt.Println("POST /api/v1/sensor/data status:", resp.Status)
		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			fmt.Println("POST response body:", string(body))
		}
		resp.Body.Close()

		checkURL := fmt.Sprintf("%s/api/v1/firmware/check?device_id=%s&current_version=%s", baseURL, deviceID, firmwareVersion)
		resp, err = http.Get(checkURL)
		if err != nil {
			panic(err)
		}
		var check struct {
			UpdateAvailable bool   `json:"update_available"`
			NewVersion      string `json:"new_version"`
			FirmwareURL     string `json:"firmware_url"`
			Checksum        string `json:"checksum"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&check); err != nil {
			panic(err)
		}
		resp.Body.Close()

		if check.UpdateAvailable {
			fmt.Printf("Update available: %s -> %s (%s)\n", firmwareVersion, check.NewVersion, check.FirmwareURL)
			// A real device would download, verify the checksum, and flash.
			// The simulator just pretends it did.
			firmwareVersion = check.NewVersion
		} else {
			fmt.Println("Firmware up to date:", firmwareVersion)
		}

		time.Sleep(5 * time.Second)
	}
}
