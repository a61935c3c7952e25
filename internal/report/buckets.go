package report

import (
	"fmt"
	"time"

	"hrtriage/internal/incident"
)

// ChartWindow defines the temporal axis that charts and the HTML report
// bucket incidents into.
type ChartWindow struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Bucket string    `json:"bucket"` // "day", "week", "month"
}

// NewChartWindow creates a window with boundaries snapped to whole buckets.
func NewChartWindow(start, end time.Time, bucket string) ChartWindow {
	if bucket == "" {
		bucket = "week"
	}
	return ChartWindow{
		Start:  SnapToStart(start, bucket),
		End:    SnapToEnd(end, bucket),
		Bucket: bucket,
	}
}

// SnapToStart normalizes a timestamp to the beginning of its bucket (0:00:00).
func SnapToStart(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	switch bucket {
	case "month":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	case "week":
		// Snap to Monday
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday -> 7
		}
		daysToSubtract := weekday - 1
		return time.Date(t.Year(), t.Month(), t.Day()-daysToSubtract, 0, 0, 0, 0, t.Location())
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
}

// SnapToEnd normalizes a timestamp to the very end of its bucket.
func SnapToEnd(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	switch bucket {
	case "month":
		nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		return nextMonth.Add(-time.Nanosecond)
	case "week":
		weekday := int(t.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		daysToAdd := 7 - weekday
		return time.Date(t.Year(), t.Month(), t.Day()+daysToAdd, 23, 59, 59, 999999999, t.Location())
	default: // day
		return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
	}
}

// Subdivide returns the start time of every bucket in the window.
func (w ChartWindow) Subdivide() []time.Time {
	var buckets []time.Time
	current := w.Start

	for current.Before(w.End) {
		buckets = append(buckets, current)
		switch w.Bucket {
		case "month":
			current = current.AddDate(0, 1, 0)
		case "week":
			current = current.AddDate(0, 0, 7)
		default: // day
			current = current.AddDate(0, 0, 1)
		}
	}
	return buckets
}

// FindBucketIndex returns the index of the bucket containing t, or -1 when
// t falls outside the window.
func (w ChartWindow) FindBucketIndex(t time.Time) int {
	tNorm := SnapToStart(t, w.Bucket)
	if tNorm.Before(w.Start) || tNorm.After(w.End) {
		return -1
	}

	switch w.Bucket {
	case "month":
		return (tNorm.Year()-w.Start.Year())*12 + int(tNorm.Month()-w.Start.Month())
	case "week":
		// Integer division on hours avoids floating point drift
		return int(tNorm.Sub(w.Start).Hours() / (24 * 7))
	default: // day
		return int(tNorm.Sub(w.Start).Hours() / 24)
	}
}

// GenerateLabel returns a human-readable label for a bucket.
func (w ChartWindow) GenerateLabel(t time.Time) string {
	switch w.Bucket {
	case "month":
		return t.Format("Jan 2006")
	case "week":
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	default: // day
		return t.Format("2006-01-02")
	}
}

// BucketCounts folds the incidents into per-bucket counts over the whole
// window, including empty buckets so quiet weeks stay visible in charts.
func (w ChartWindow) BucketCounts(incidents []incident.Incident) []int {
	counts := make([]int, len(w.Subdivide()))
	for _, inc := range incidents {
		if idx := w.FindBucketIndex(inc.Start); idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return counts
}
