// Package mqtt connects the watch surface to an MQTT broker and owns the
// inbound wire format for heart-rate samples.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"hrtriage/internal/incident"
)

// DefaultSampleTopic is the subscription topic for live heart-rate samples.
const DefaultSampleTopic = "hrtriage/samples"

// DefaultEventTopic is the publish topic for detector incident events.
const DefaultEventTopic = "hrtriage/incidents"

// Message is one raw broker message as delivered to a subscriber.
type Message struct {
	Topic   string
	Payload []byte
}

// Consumer receives messages from a broker subscription.
type Consumer interface {
	// Subscribe registers a handler for messages on the given topic.
	// The handler runs on the client's receive goroutine and must not block.
	Subscribe(topic string, handler func(Message)) error

	// Close disconnects from the broker.
	Close() error
}

// Publisher sends messages to the broker.
type Publisher interface {
	// Publish sends payload to topic and waits for the broker ack.
	// Returns error if publishing fails (should not crash the process).
	Publish(topic string, payload []byte) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SamplePayload is the inbound wire format for one heart-rate reading.
type SamplePayload struct {
	Timestamp string  `json:"timestamp"`
	BPM       float64 `json:"bpm"`
}

// ParseSample decodes an inbound sample message. The timestamp must be
// RFC3339; the reading itself is taken as-is and validated downstream.
func ParseSample(data []byte) (incident.Sample, error) {
	var p SamplePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return incident.Sample{}, fmt.Errorf("decode sample payload: %w", err)
	}

	t, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return incident.Sample{}, fmt.Errorf("parse sample timestamp: %w", err)
	}

	return incident.Sample{Time: t.UTC(), BPM: p.BPM}, nil
}
