package model

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Envelope is the canonical event envelope for everything published to NATS or RabbitMQ.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Site          string          `json:"site"`
	Profile       string          `json:"profile,omitempty"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps payload under topic. correlationID may be uuid.Nil, in which case a fresh one is minted.
func NewEnvelope(topic, eventType, site string, correlationID uuid.UUID, payload any) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if correlationID == uuid.Nil {
		correlationID = uuid.New()
	}
	return &Envelope{
		ID:            uuid.New(),
		CorrelationID: correlationID,
		Site:          site,
		Topic:         topic,
		EventType:     eventType,
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Payload:       data,
	}, nil
}
