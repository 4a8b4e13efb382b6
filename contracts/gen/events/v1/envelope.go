package v1

import (
	"encoding/json"
	"errors"
	"time"
)

var ErrEmptyData = errors.New("event envelope has no data")

// Envelope is the versioned event envelope shared by the API, worker and CLI.
// Fields are append-only.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

// DecodeData unmarshals the payload into v.
func (e Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return ErrEmptyData
	}
	return json.Unmarshal(e.Data, v)
}
