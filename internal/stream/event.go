package stream

import (
	"encoding/json"
	"time"
)

// EventType identifies a detector emission.
type EventType string

const (
	EventIncidentOpen  EventType = "incident_open"
	EventIncidentClose EventType = "incident_close"
)

// Event is one detector emission. Close events carry the same aggregates a
// batch incident would; open events only mark the start.
type Event struct {
	Type  EventType
	ID    int       // pairs an open with its close, 1-based per run
	Time  time.Time // decision time: sample arrival or tick
	Start time.Time // first qualifying sample of the incident

	// Close-only aggregates.
	End             time.Time
	DurationSeconds float64
	MaxBPM          float64
	AvgBPM          float64
	SampleCount     int
}

// EventPayload is the outbound wire format for a detector event.
type EventPayload struct {
	Incident IncidentPayload `json:"incident"`
}

// IncidentPayload contains the event details.
type IncidentPayload struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	ID        int           `json:"id"`
	Start     string        `json:"start"`
	Stats     *StatsPayload `json:"stats,omitempty"`
}

// StatsPayload carries a closed incident's aggregates. This is the only
// place heart-rate values leave the watch process.
type StatsPayload struct {
	End             string  `json:"end"`
	DurationSeconds float64 `json:"duration_seconds"`
	MaxBPM          float64 `json:"max_bpm"`
	AvgBPM          float64 `json:"avg_bpm"`
	SampleCount     int     `json:"sample_count"`
}

// FormatEvent creates the JSON payload for a detector event.
func FormatEvent(e Event) ([]byte, error) {
	p := EventPayload{
		Incident: IncidentPayload{
			Timestamp: e.Time.UTC().Format(time.RFC3339),
			Event:     string(e.Type),
			ID:        e.ID,
			Start:     e.Start.UTC().Format(time.RFC3339),
		},
	}
	if e.Type == EventIncidentClose {
		p.Incident.Stats = &StatsPayload{
			End:             e.End.UTC().Format(time.RFC3339),
			DurationSeconds: e.DurationSeconds,
			MaxBPM:          e.MaxBPM,
			AvgBPM:          e.AvgBPM,
			SampleCount:     e.SampleCount,
		}
	}
	return json.Marshal(p)
}
