package ingest

import (
	"time"

	"hrtriage/internal/incident"
)

// Window is the closed analysis interval [Start, End]. The caller supplies
// the reference time, so two runs over the same archive agree on the window.
// The zero Window means no bounds: everything passes. The cache loads full
// archives that way and windows are applied on read instead.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowEnding returns the analysis window that ends at now and reaches the
// given number of months back.
func WindowEnding(now time.Time, months int) Window {
	now = now.UTC()
	return Window{Start: now.AddDate(0, -months, 0), End: now}
}

// IsZero reports whether the window is unbounded.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	if w.IsZero() {
		return true
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// Intersects reports whether the interval [start, end] touches the window.
func (w Window) Intersects(start, end time.Time) bool {
	if w.IsZero() {
		return true
	}
	return !end.Before(w.Start) && !start.After(w.End)
}

// ClipSamples keeps the samples inside the window. Relative order is
// preserved; nothing is re-sorted here.
func (w Window) ClipSamples(samples []incident.Sample) []incident.Sample {
	kept := make([]incident.Sample, 0, len(samples))
	for _, s := range samples {
		if w.Contains(s.Time) {
			kept = append(kept, s)
		}
	}
	return kept
}

// ClipWorkouts keeps every workout that touches the window. A session that
// straddles the window edge still has to be visible to overlap scoring, so
// intersection is the test, not containment. Malformed intervals are kept
// as-is; rejecting them is the analyzer's job, with its own accounting.
func (w Window) ClipWorkouts(workouts []incident.WorkoutInterval) []incident.WorkoutInterval {
	kept := make([]incident.WorkoutInterval, 0, len(workouts))
	for _, wo := range workouts {
		start, end := wo.Start, wo.End
		if end.Before(start) {
			start, end = end, start
		}
		if w.Intersects(start, end) {
			kept = append(kept, wo)
		}
	}
	return kept
}

// ClipSignals keeps every activity signal that touches the window.
func (w Window) ClipSignals(signals []incident.ActivitySignal) []incident.ActivitySignal {
	kept := make([]incident.ActivitySignal, 0, len(signals))
	for _, sig := range signals {
		if w.Intersects(sig.Start, sig.End) {
			kept = append(kept, sig)
		}
	}
	return kept
}
