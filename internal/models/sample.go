package models

// Sample is one data point for a meter, in the v2 API's wire format.
// CreateSample accepts any JSON-serializable value; this type is a convenience.
type Sample struct {
	CounterName      string         `json:"counter_name"`
	CounterType      string         `json:"counter_type"`
	CounterUnit      string         `json:"counter_unit"`
	CounterVolume    float64        `json:"counter_volume"`
	ResourceID       string         `json:"resource_id"`
	ProjectID        string         `json:"project_id,omitempty"`
	UserID           string         `json:"user_id,omitempty"`
	Source           string         `json:"source,omitempty"`
	Timestamp        string         `json:"timestamp,omitempty"`
	RecordedAt       string         `json:"recorded_at,omitempty"`
	MessageID        string         `json:"message_id,omitempty"`
	ResourceMetadata map[string]any `json:"resource_metadata,omitempty"`
}

// Counter types understood by the metering service.
const (
	CounterTypeGauge      = "gauge"
	CounterTypeDelta      = "delta"
	CounterTypeCumulative = "cumulative"
)
