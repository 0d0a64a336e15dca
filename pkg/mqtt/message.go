package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType classifies bus traffic.
type MessageType string

const (
	// MessageTypeTelemetry is a raw telescope telemetry sample
	MessageTypeTelemetry MessageType = "telemetry"
	// MessageTypeStatus is a derived status record, e.g. a collision snapshot
	MessageTypeStatus MessageType = "status"
	// MessageTypeEvent is a one-shot notification, e.g. a solved rotation
	MessageTypeEvent MessageType = "event"
)

// Message is the envelope every publisher on the bus wraps its payload in.
// IDs are v4 UUIDs so consumers can deduplicate retained deliveries.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage wraps payload in an envelope stamped with a fresh ID and the
// current UTC time.
func NewMessage(msgType MessageType, source string, payload interface{}) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}, nil
}

// UnmarshalPayload decodes the envelope body into v.
func (m *Message) UnmarshalPayload(v interface{}) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("message %s has no payload", m.ID)
	}
	return json.Unmarshal(m.Payload, v)
}

// TelemetrySample is one telemetry update: named channel values as
// published by the observatory control system bridge. Values are floats
// for angle channels and strings for state channels.
type TelemetrySample struct {
	Values map[string]interface{} `json:"values"`
}

// EventMessage is the payload shape for MessageTypeEvent traffic.
type EventMessage struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data,omitempty"`
}
