package incident

import (
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	// base is Monday 2025-03-10. The last incident lands in the following
	// ISO week; the Sunday-evening one must normalize back to the Monday.
	incidents := []Incident{
		{IncidentID: 1, Start: at(0), DurationSeconds: 100, MaxBPM: 190, Classification: ClassWorkout},
		{IncidentID: 2, Start: at(3600), DurationSeconds: 30, MaxBPM: 155, Classification: ClassPossibleWorkout},
		{IncidentID: 3, Start: at(86400), DurationSeconds: 0, MaxBPM: 171, Classification: ClassNonWorkout},
		{IncidentID: 4, Start: at(572400), DurationSeconds: 50, MaxBPM: 140, Classification: ClassUnknown},
		{IncidentID: 5, Start: at(8 * 86400), DurationSeconds: 200, MaxBPM: 160, Classification: ClassUnknown},
	}

	got := Summarize(incidents)

	if got.TotalIncidents != 5 {
		t.Errorf("TotalIncidents = %d, want 5", got.TotalIncidents)
	}
	if got.WorkoutCount != 1 || got.PossibleWorkoutCount != 1 || got.NonWorkoutCount != 1 || got.UnknownCount != 2 {
		t.Errorf("counts = %d/%d/%d/%d, want 1/1/1/2",
			got.WorkoutCount, got.PossibleWorkoutCount, got.NonWorkoutCount, got.UnknownCount)
	}
	if got.ExplainedRate != 0.4 {
		t.Errorf("ExplainedRate = %v, want 0.4", got.ExplainedRate)
	}
	if got.MedianDurationSeconds != 50 {
		t.Errorf("MedianDurationSeconds = %v, want 50", got.MedianDurationSeconds)
	}
	if got.P85DurationSeconds != 200 {
		t.Errorf("P85DurationSeconds = %v, want 200", got.P85DurationSeconds)
	}
	if got.PeakBPM != 190 || !got.PeakStart.Equal(at(0)) {
		t.Errorf("peak = %v at %v, want 190 at %v", got.PeakBPM, got.PeakStart, at(0))
	}

	wantCadence := []WeeklyCount{
		{WeekStarting: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Incidents: 4},
		{WeekStarting: time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC), Incidents: 1},
	}
	if len(got.WeeklyCadence) != len(wantCadence) {
		t.Fatalf("WeeklyCadence has %d buckets, want %d", len(got.WeeklyCadence), len(wantCadence))
	}
	for i, want := range wantCadence {
		if !got.WeeklyCadence[i].WeekStarting.Equal(want.WeekStarting) || got.WeeklyCadence[i].Incidents != want.Incidents {
			t.Errorf("WeeklyCadence[%d] = %+v, want %+v", i, got.WeeklyCadence[i], want)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	got := Summarize(nil)
	if got.TotalIncidents != 0 || got.ExplainedRate != 0 || len(got.WeeklyCadence) != 0 {
		t.Errorf("Summarize(nil) = %+v, want zero summary", got)
	}
}

func TestSummarizeExplainedRateRounding(t *testing.T) {
	incidents := []Incident{
		{IncidentID: 1, Start: at(0), MaxBPM: 150, Classification: ClassWorkout},
		{IncidentID: 2, Start: at(60), MaxBPM: 150, Classification: ClassUnknown},
		{IncidentID: 3, Start: at(120), MaxBPM: 150, Classification: ClassUnknown},
	}

	got := Summarize(incidents)
	if got.ExplainedRate != 0.333 {
		t.Errorf("ExplainedRate = %v, want 0.333", got.ExplainedRate)
	}
}
