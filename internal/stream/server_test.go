package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testTracker() *Tracker {
	tracker := NewTracker(time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), Config{
		Broker:        "tcp://localhost:1883",
		SampleTopic:   "hrtriage/samples",
		EventTopic:    "hrtriage/incidents",
		ThresholdBPM:  140,
		MaxGapSeconds: 120,
		HTTPAddr:      ":8080",
	})
	return tracker
}

func TestServerStatusEndpoint(t *testing.T) {
	tracker := testTracker()
	tracker.Update(
		Counts{Samples: 10, Qualifying: 4, Invalid: 1},
		true,
		time.Date(2025, 3, 10, 8, 5, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 8, 6, 0, 0, time.UTC),
		2,
	)
	tracker.SetConnected(true)

	srv := NewServer(":0", tracker)
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type: %s", ct)
	}

	var parsed StatusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if !s.OpenIncident {
		t.Error("expected open incident")
	}
	if s.OpenSince != "2025-03-10T08:05:00Z" {
		t.Errorf("unexpected open_since: %s", s.OpenSince)
	}
	if s.LastSample != "2025-03-10T08:06:00Z" {
		t.Errorf("unexpected last_sample: %s", s.LastSample)
	}
	if s.Counts.Samples != 10 || s.Counts.Qualifying != 4 || s.Counts.Invalid != 1 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if s.JournalPending != 2 {
		t.Errorf("unexpected journal_pending: %d", s.JournalPending)
	}
	if !s.MQTT.Connected {
		t.Error("expected connected broker")
	}
	if s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("unexpected broker: %s", s.MQTT.Broker)
	}
	if s.MQTT.SampleTopic != "hrtriage/samples" || s.MQTT.EventTopic != "hrtriage/incidents" {
		t.Errorf("unexpected topics: %+v", s.MQTT)
	}
	if s.Config.ThresholdBPM != 140 || s.Config.MaxGapSeconds != 120 {
		t.Errorf("unexpected config: %+v", s.Config)
	}
	if s.StartTime != "2025-03-10T08:00:00Z" {
		t.Errorf("unexpected start_time: %s", s.StartTime)
	}
}

func TestServerStatusOmitsEmptyTimes(t *testing.T) {
	srv := NewServer(":0", testTracker())
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	status := parsed["status"].(map[string]interface{})
	if _, exists := status["open_since"]; exists {
		t.Error("open_since should be omitted with no open incident")
	}
	if _, exists := status["last_sample"]; exists {
		t.Error("last_sample should be omitted before any sample")
	}
}

func TestServerNotFound(t *testing.T) {
	srv := NewServer(":0", testTracker())
	req := httptest.NewRequest("GET", "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Errorf("unexpected status code: %d", rec.Code)
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := NewServer(":0", testTracker())
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status code: %d", rec.Code)
	}

	body := rec.Body.String()
	for _, name := range []string{
		"hrtriage_watch_samples_total",
		"hrtriage_watch_invalid_samples_total",
		"hrtriage_watch_incidents_total",
		"hrtriage_watch_open_incident",
		"hrtriage_watch_last_sample_timestamp_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestSnapshotUptime(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
		Now:       time.Date(2025, 3, 10, 8, 15, 0, 0, time.UTC),
	}
	if snap.Uptime() != 15*time.Minute {
		t.Errorf("unexpected uptime: %v", snap.Uptime())
	}
}
