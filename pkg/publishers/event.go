package publishers

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds emitted by the relay.
const (
	KindHeartbeat  = "heartbeat"
	KindAssetTrack = "asset_track"
)

// Event represents the payload published downstream.
type Event struct {
	Service   string          `json:"service"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// NewEvent constructs an Event for the given service with payload encoded as JSON.
func NewEvent(service, kind string, payload any) (Event, error) {
	evt := Event{
		Service:   service,
		Kind:      kind,
		EmittedAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		evt.Payload = raw
	}
	return evt, nil
}

// DedupID identifies one emission of an event; FIFO sinks use it for deduplication.
func (e Event) DedupID() string {
	return fmt.Sprintf("%s-%s-%d", e.Service, e.Kind, e.EmittedAt.UnixNano())
}

// attributes are attached as message attributes by queue and topic sinks.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"service": e.Service,
		"kind":    e.Kind,
	}
}
