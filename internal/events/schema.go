package events

// StructuredConnectRecord wraps a reading in the Kafka Connect envelope so
// sink connectors downstream can apply the schema without a registry.
type StructuredConnectRecord struct {
	Schema  Schema       `json:"schema"`
	Payload ReadingEvent `json:"payload"`
}

// ReadingEvent is the wire form of one accepted sensor reading. Timestamps
// are unix milliseconds.
type ReadingEvent struct {
	DeviceID        string  `json:"device_id"`
	Temperature     float64 `json:"temperature"`
	Humidity        float64 `json:"humidity"`
	FirmwareVersion string  `json:"firmware_version"`
	ObservedAt      int64   `json:"observed_at"`
	RecordedAt      int64   `json:"recorded_at"`
}

type Schema struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Fields   []Field `json:"fields"`
	Optional bool    `json:"optional"`
}

type Field struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

var StructuredSchema = Schema{
	Type:     "struct",
	Name:     "SensorReading",
	Optional: false,
	Fields: []Field{
		{Field: "device_id", Type: "string"},
		{Field: "temperature", Type: "double"},
		{Field: "humidity", Type: "double"},
		{Field: "firmware_version", Type: "string"},
		{Field: "observed_at", Type: "int64"},
		{Field: "recorded_at", Type: "int64"},
	},
}
