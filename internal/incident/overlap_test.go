package incident

import (
	"reflect"
	"testing"
)

func TestOverlapSingleInterval(t *testing.T) {
	span := Span{Start: at(0), End: at(200)}
	workouts := []WorkoutInterval{
		{Start: at(50), End: at(250), Type: "running"},
	}

	got := Overlap(span, workouts)
	if got.Seconds != 150 {
		t.Errorf("Overlap().Seconds = %v, want 150", got.Seconds)
	}
	if got.Best == nil || got.Best.Type != "running" {
		t.Errorf("Overlap().Best = %+v, want the running interval", got.Best)
	}
	if got.Seconds > 200 {
		t.Errorf("single-interval overlap %v exceeds span duration 200", got.Seconds)
	}
}

func TestOverlapSumsIntersections(t *testing.T) {
	// Two workouts each cover 60s of a 100s span. The total is the sum of
	// both intersections even though it exceeds the span duration.
	span := Span{Start: at(0), End: at(100)}
	workouts := []WorkoutInterval{
		{Start: at(-50), End: at(60), Type: "cycling"},
		{Start: at(40), End: at(200), Type: "running"},
	}

	got := Overlap(span, workouts)
	if got.Seconds != 120 {
		t.Errorf("Overlap().Seconds = %v, want 120", got.Seconds)
	}
	// Equal intersections resolve to the earliest-starting interval.
	if got.Best == nil || got.Best.Type != "cycling" {
		t.Errorf("Overlap().Best = %+v, want the earlier cycling interval", got.Best)
	}
}

func TestOverlapBestIsLargest(t *testing.T) {
	span := Span{Start: at(0), End: at(300)}
	workouts := []WorkoutInterval{
		{Start: at(0), End: at(50), Type: "walking"},
		{Start: at(100), End: at(280), Type: "running"},
	}

	got := Overlap(span, workouts)
	if got.Seconds != 230 {
		t.Errorf("Overlap().Seconds = %v, want 230", got.Seconds)
	}
	if got.Best == nil || got.Best.Type != "running" {
		t.Errorf("Overlap().Best = %+v, want the running interval", got.Best)
	}
}

func TestOverlapNoIntersection(t *testing.T) {
	span := Span{Start: at(0), End: at(100)}
	workouts := []WorkoutInterval{
		{Start: at(200), End: at(300), Type: "running"},
		{Start: at(-300), End: at(-10), Type: "rowing"},
	}

	got := Overlap(span, workouts)
	if got.Seconds != 0 {
		t.Errorf("Overlap().Seconds = %v, want 0", got.Seconds)
	}
	if got.Best != nil {
		t.Errorf("Overlap().Best = %+v, want nil", got.Best)
	}
}

func TestOverlapTouchingBoundary(t *testing.T) {
	// A workout that ends exactly where the span starts contributes zero.
	span := Span{Start: at(100), End: at(200)}
	workouts := []WorkoutInterval{
		{Start: at(0), End: at(100), Type: "running"},
	}

	got := Overlap(span, workouts)
	if got.Seconds != 0 || got.Best != nil {
		t.Errorf("Overlap() = %+v, want zero overlap for touching boundary", got)
	}
}

func TestOverlapInstantIncident(t *testing.T) {
	tests := []struct {
		name     string
		instant  Span
		workout  WorkoutInterval
		wantSec  float64
		wantBest bool
	}{
		{
			name:     "inside workout",
			instant:  Span{Start: at(50), End: at(50)},
			workout:  WorkoutInterval{Start: at(0), End: at(100), Type: "running"},
			wantSec:  1,
			wantBest: true,
		},
		{
			name:     "exactly at workout end",
			instant:  Span{Start: at(100), End: at(100)},
			workout:  WorkoutInterval{Start: at(0), End: at(100), Type: "running"},
			wantSec:  1,
			wantBest: true,
		},
		{
			name:     "outside workout",
			instant:  Span{Start: at(150), End: at(150)},
			workout:  WorkoutInterval{Start: at(0), End: at(100), Type: "running"},
			wantSec:  0,
			wantBest: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlap(tt.instant, []WorkoutInterval{tt.workout})
			if got.Seconds != tt.wantSec {
				t.Errorf("Overlap().Seconds = %v, want %v", got.Seconds, tt.wantSec)
			}
			if (got.Best != nil) != tt.wantBest {
				t.Errorf("Overlap().Best = %+v, wantBest %v", got.Best, tt.wantBest)
			}
		})
	}
}

func TestOverlapSkipsMalformed(t *testing.T) {
	span := Span{Start: at(20), End: at(80)}
	workouts := []WorkoutInterval{
		{Start: at(100), End: at(0), Type: "running"},
		{Start: at(500), End: at(400), Type: "rowing"},
	}

	got := Overlap(span, workouts)
	if got.Seconds != 0 {
		t.Errorf("Overlap().Seconds = %v, want 0 (malformed intervals never contribute)", got.Seconds)
	}
	if got.Best != nil {
		t.Errorf("Overlap().Best = %+v, want nil", got.Best)
	}
	// Only the interval whose swapped span would have intersected is counted.
	if got.MalformedSkipped != 1 {
		t.Errorf("Overlap().MalformedSkipped = %d, want 1", got.MalformedSkipped)
	}
}

func TestOverlapOrderInvariant(t *testing.T) {
	span := Span{Start: at(0), End: at(600)}
	forward := []WorkoutInterval{
		{Start: at(-100), End: at(50), Type: "walking"},
		{Start: at(40), End: at(90), Type: "running"},
		{Start: at(80), End: at(400), Type: "running"},
		{Start: at(700), End: at(300), Type: "rowing"},
	}
	reversed := make([]WorkoutInterval, len(forward))
	for i, w := range forward {
		reversed[len(forward)-1-i] = w
	}

	a := Overlap(span, forward)
	b := Overlap(span, reversed)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Overlap() depends on input order: %+v vs %+v", a, b)
	}
}
