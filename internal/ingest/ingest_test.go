package ingest

import (
	"context"
	"testing"
	"time"
)

func TestLoadDirMergesAndSorts(t *testing.T) {
	dir := t.TempDir()
	// Two files with interleaved timestamps; merged output must come back
	// in one chronological series.
	writeFile(t, dir, "hr_morning.csv",
		"timestamp,bpm\n"+
			"2025-03-10T08:00:00Z,70\n"+
			"2025-03-10T08:10:00Z,75\n")
	writeFile(t, dir, "hr_watch.csv",
		"timestamp,bpm\n"+
			"2025-03-10T08:05:00Z,72\n")
	writeFile(t, dir, "workouts.csv",
		"start,end,type\n"+
			"2025-03-10T07:30:00Z,2025-03-10T08:30:00Z,Running\n")
	writeFile(t, dir, "readme.txt", "not a data file")

	window := Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	result, err := LoadDir(context.Background(), dir, window)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}

	if len(result.Reports) != 3 {
		t.Errorf("got %d reports, want 3 (txt files are not data)", len(result.Reports))
	}
	if len(result.Dataset.Samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(result.Dataset.Samples))
	}
	for i := 1; i < len(result.Dataset.Samples); i++ {
		if result.Dataset.Samples[i].Time.Before(result.Dataset.Samples[i-1].Time) {
			t.Fatalf("merged samples are not chronological at index %d", i)
		}
	}
	if result.Dataset.Samples[1].BPM != 72 {
		t.Errorf("middle sample = %v, want the 72 bpm reading from the second file", result.Dataset.Samples[1].BPM)
	}
	if len(result.Dataset.Workouts) != 1 {
		t.Errorf("got %d workouts, want 1", len(result.Dataset.Workouts))
	}
}

func TestLoadSkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "hr.csv",
		"timestamp,bpm\n2025-03-10T08:00:00Z,70\n")
	bad := writeFile(t, dir, "mystery.csv",
		"a,b\nx,y\n")

	window := Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	result, err := Load(context.Background(), []string{good, bad}, window)
	if err != nil {
		t.Fatalf("Load() error = %v, want broken files to be skipped, not fatal", err)
	}

	if len(result.Dataset.Samples) != 1 {
		t.Errorf("got %d samples, want 1", len(result.Dataset.Samples))
	}

	var badReport *FileReport
	for i := range result.Reports {
		if result.Reports[i].Path == bad {
			badReport = &result.Reports[i]
		}
	}
	if badReport == nil {
		t.Fatal("no report for the broken file")
	}
	if badReport.Error == "" {
		t.Error("broken file report has no error")
	}
	if badReport.Kind != KindUnknown {
		t.Errorf("broken file kind = %q, want unknown", badReport.Kind)
	}
}

func TestLoadAppliesWindow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hr.csv",
		"timestamp,bpm\n"+
			"2024-01-01T08:00:00Z,70\n"+ // a year early
			"2025-03-10T08:00:00Z,74\n")

	window := Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	result, err := Load(context.Background(), []string{path}, window)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(result.Dataset.Samples) != 1 {
		t.Fatalf("got %d samples, want 1 inside the window", len(result.Dataset.Samples))
	}
	if result.Dataset.Samples[0].BPM != 74 {
		t.Errorf("kept sample = %v, want the in-window 74", result.Dataset.Samples[0].BPM)
	}
}
