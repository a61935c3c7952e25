package stream

import (
	"encoding/json"
	"sync"
	"time"
)

// Config holds the watch settings shown on the status page.
type Config struct {
	Broker        string
	SampleTopic   string
	EventTopic    string
	ThresholdBPM  float64
	MaxGapSeconds float64
	HTTPAddr      string
}

// Snapshot is a point-in-time view of the watch daemon. It is a value type,
// safe to use after the lock is released. It carries timestamps and counts
// only; heart-rate readings never appear here.
type Snapshot struct {
	StartTime      time.Time
	Now            time.Time
	Config         Config
	Connected      bool
	Counts         Counts
	OpenIncident   bool
	OpenSince      time.Time
	LastSample     time.Time
	JournalPending int
}

// Uptime returns the duration since the watch started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable watch state behind an RWMutex so HTTP handlers can
// read while the monitor loop writes.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{snap: Snapshot{StartTime: startTime, Config: cfg}}
}

// Update sets the detector-derived state. Called from the monitor loop.
func (t *Tracker) Update(counts Counts, open bool, openSince, lastSample time.Time, journalPending int) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.snap.OpenIncident = open
	t.snap.OpenSince = openSince
	t.snap.LastSample = lastSample
	t.snap.JournalPending = journalPending
	t.mu.Unlock()
}

// SetConnected sets the broker connection status.
func (t *Tracker) SetConnected(connected bool) {
	t.mu.Lock()
	t.snap.Connected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the watch state. The Now field is
// set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Timestamp      string     `json:"timestamp"`
	StartTime      string     `json:"start_time"`
	UptimeSeconds  int64      `json:"uptime_seconds"`
	OpenIncident   bool       `json:"open_incident"`
	OpenSince      string     `json:"open_since,omitempty"`
	LastSample     string     `json:"last_sample,omitempty"`
	JournalPending int        `json:"journal_pending"`
	MQTT           MQTTStatus `json:"mqtt"`
	Counts         Counts     `json:"sample_counts"`
	Config         ConfigJSON `json:"config"`
}

// MQTTStatus reports broker connection state.
type MQTTStatus struct {
	Connected   bool   `json:"connected"`
	Broker      string `json:"broker"`
	SampleTopic string `json:"sample_topic"`
	EventTopic  string `json:"event_topic"`
}

// ConfigJSON is the JSON representation of the detector config.
type ConfigJSON struct {
	ThresholdBPM  float64 `json:"threshold_bpm"`
	MaxGapSeconds float64 `json:"max_gap_seconds"`
	HTTPAddr      string  `json:"http_addr"`
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	inner := StatusInner{
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		OpenIncident:   snap.OpenIncident,
		JournalPending: snap.JournalPending,
		MQTT: MQTTStatus{
			Connected:   snap.Connected,
			Broker:      snap.Config.Broker,
			SampleTopic: snap.Config.SampleTopic,
			EventTopic:  snap.Config.EventTopic,
		},
		Counts: snap.Counts,
		Config: ConfigJSON{
			ThresholdBPM:  snap.Config.ThresholdBPM,
			MaxGapSeconds: snap.Config.MaxGapSeconds,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}
	if snap.OpenIncident && !snap.OpenSince.IsZero() {
		inner.OpenSince = snap.OpenSince.UTC().Format(time.RFC3339)
	}
	if !snap.LastSample.IsZero() {
		inner.LastSample = snap.LastSample.UTC().Format(time.RFC3339)
	}

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}
