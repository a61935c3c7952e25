package report

import (
	"testing"
	"time"

	"hrtriage/internal/incident"
)

var chartBase = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) // a Monday

func TestSnapToStart(t *testing.T) {
	tests := []struct {
		name   string
		in     time.Time
		bucket string
		want   time.Time
	}{
		{"midweek to monday", time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC), "week", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"sunday to previous monday", time.Date(2025, 3, 16, 1, 0, 0, 0, time.UTC), "week", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"month to first", time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC), "month", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"day to midnight", time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC), "day", time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SnapToStart(tt.in, tt.bucket); !got.Equal(tt.want) {
				t.Errorf("SnapToStart(%v, %q) = %v, want %v", tt.in, tt.bucket, got, tt.want)
			}
		})
	}
}

func TestSnapToEnd(t *testing.T) {
	in := time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)

	wantWeek := time.Date(2025, 3, 16, 23, 59, 59, 999999999, time.UTC)
	if got := SnapToEnd(in, "week"); !got.Equal(wantWeek) {
		t.Errorf("SnapToEnd(week) = %v, want %v", got, wantWeek)
	}

	wantMonth := time.Date(2025, 3, 31, 23, 59, 59, 999999999, time.UTC)
	if got := SnapToEnd(in, "month"); !got.Equal(wantMonth) {
		t.Errorf("SnapToEnd(month) = %v, want %v", got, wantMonth)
	}
}

func TestSubdivideAndIndex(t *testing.T) {
	w := NewChartWindow(chartBase, chartBase.AddDate(0, 0, 8), "week")

	buckets := w.Subdivide()
	if len(buckets) != 2 {
		t.Fatalf("Subdivide() returned %d buckets, want 2", len(buckets))
	}
	if !buckets[1].Equal(time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second bucket = %v, want 2025-03-17", buckets[1])
	}

	if got := w.FindBucketIndex(time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)); got != 0 {
		t.Errorf("FindBucketIndex(mid first week) = %d, want 0", got)
	}
	if got := w.FindBucketIndex(time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)); got != 1 {
		t.Errorf("FindBucketIndex(second week) = %d, want 1", got)
	}
	if got := w.FindBucketIndex(time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("FindBucketIndex(outside) = %d, want -1", got)
	}
}

func TestGenerateLabel(t *testing.T) {
	at := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		bucket string
		want   string
	}{
		{"week", "2025-W11"},
		{"month", "Mar 2025"},
		{"day", "2025-03-10"},
	}
	for _, tt := range tests {
		w := ChartWindow{Bucket: tt.bucket}
		if got := w.GenerateLabel(at); got != tt.want {
			t.Errorf("GenerateLabel(%s) = %q, want %q", tt.bucket, got, tt.want)
		}
	}
}

func TestBucketCounts(t *testing.T) {
	w := NewChartWindow(chartBase, chartBase.AddDate(0, 0, 8), "week")
	incidents := []incident.Incident{
		{Start: chartBase},
		{Start: chartBase.Add(26 * time.Hour)},
		{Start: chartBase.AddDate(0, 0, 7)},
		{Start: chartBase.AddDate(0, 2, 0)}, // outside the window
	}

	counts := w.BucketCounts(incidents)
	if len(counts) != 2 || counts[0] != 2 || counts[1] != 1 {
		t.Errorf("BucketCounts() = %v, want [2 1]", counts)
	}
}
