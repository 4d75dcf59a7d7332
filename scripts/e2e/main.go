package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// End-to-end smoke test against a running server.
// Steps:
// 1. Push readings for two devices
// 2. Query latest, history, and stats
// 3. Upload a firmware release
// 4. Check for an update as a device on an older version
// 5. Download the binary and verify the advertised checksum

const baseURL = "http://localhost:8080"

func main() {
	devices := []string{"E2E_001", "E2E_002"}

	for _, deviceID := range devices {
		for i := 0; i < 3; i++ {
			payload, _ := json.Marshal(map[string]any{
				"device_id":        deviceID,
				"temperature":      20.0 + float64(i),
				"humidity":         50.0,
				"firmware_version": "1.0.0",
				"timestamp":        time.Now().UTC().Format(time.RFC3339),
			})
			resp, err := http.Post(baseURL+"/api/v1/sensor/data", "application/json", bytes.NewBuffer(payload))
			if err != nil {
				panic(err)
			}
			if resp.StatusCode != http.StatusCreated {
				body, _ := io.ReadAll(resp.Body)
				fmt.Printf("push failed for %s: %s %s\n", deviceID, resp.Status, string(body))
			}
			resp.Body.Close()
		}
	}
	fmt.Println("Pushed readings for", devices)

	getJSON("/api/v1/sensor/latest?device_id=E2E_001")
	getJSON("/api/v1/sensor/history?device_id=E2E_001&limit=5")
	getJSON("/api/v1/sensor/stats?device_id=E2E_001&period=1h")
	getJSON("/api/v1/devices")

	binary := []byte("e2e firmware payload")
	uploadFirmware("2.0.0", binary)

	check := getJSON("/api/v1/firmware/check?device_id=E2E_001&current_version=1.0.0")
	var decision struct {
		UpdateAvailable bool   `json:"update_available"`
		NewVersion      string `json:"new_version"`
		FirmwareURL     string `json:"firmware_url"`
		Checksum        string `json:"checksum"`
	}
	if err := json.Unmarshal(check, &decision); err != nil {
		panic(err)
	}
	if !decision.UpdateAvailable {
		fmt.Println("FAIL: expected an update for 1.0.0 after uploading 2.0.0")
		return
	}

	resp, err := http.Get(decision.FirmwareURL)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	downloaded, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(downloaded)
	if hex.EncodeToString(sum[:]) != decision.Checksum {
		fmt.Println("FAIL: downloaded checksum does not match the advertised one")
		return
	}
	if !bytes.Equal(downloaded, binary) {
		fmt.Println("FAIL: downloaded bytes differ from the uploaded binary")
		return
	}

	fmt.Println("E2E test completed")
}

func getJSON(path string) []byte {
	resp, err := http.Get(baseURL + path)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		panic(err)
	}
	fmt.Printf("GET %s -> %s\n%s\n", path, resp.Status, string(body))
	return body
}

func uploadFirmware(version string, binary []byte) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	mw.WriteField("version", version)
	mw.WriteField("description", "e2e test build")
	mw.WriteField("is_stable", "true")
	fw, err := mw.CreateFormFile("file", "firmware.bin")
	if err != nil {
		panic(err)
	}
	fw.Write(binary)
	mw.Close()

	resp, err := http.Post(baseURL+"/api/v1/firmware/upload", mw.FormDataContentType(), buf)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("POST /api/v1/firmware/upload -> %s\n%s\n", resp.Status, string(body))
}
