package report

import (
	"strings"
	"testing"
	"time"

	"hrtriage/internal/incident"
)

func htmlFixture() Result {
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	incidents := []incident.Incident{
		{
			IncidentID:      1,
			Start:           base,
			End:             base.Add(100 * time.Second),
			DurationSeconds: 100,
			MaxBPM:          165,
			AvgBPM:          150.5,
			SampleCount:     10,
			Classification:  incident.ClassWorkout,
			Confidence:      incident.ConfidenceHigh,
			WorkoutType:     "running",
			OverlapSeconds:  80,
			Notes:           "explicit workout overlap",
		},
	}
	return Result{
		Incidents: incidents,
		Summary:   incident.Summarize(incidents),
		Window:    NewChartWindow(base, base.AddDate(0, 0, 8), "week"),
	}
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML(htmlFixture())
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	html := string(page)

	for _, want := range []string{
		"<title>Heart Rate Incident Report</title>",
		"Analysis window 2025-03-10 to 2025-03-23, bucketed by week.",
		"<td>Total incidents</td><td>1</td>",
		"<td>running</td>",
		"window.REPORT_DATA",
		"\"medianSeconds\":100",
		"id=\"cadence\"",
		"id=\"durations\"",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderHTMLMinifiesScript(t *testing.T) {
	page, err := RenderHTML(htmlFixture())
	if err != nil {
		t.Fatalf("RenderHTML() error: %v", err)
	}
	html := string(page)

	// DOM calls survive minification, readable source spacing does not
	if !strings.Contains(html, "addEventListener(") {
		t.Errorf("chart script missing from page")
	}
	for _, source := range []string{
		"const ctx = canvas.getContext('2d');",
		"const pad = 36;",
	} {
		if strings.Contains(html, source) {
			t.Errorf("unminified source %q survived in page", source)
		}
	}
}

func TestRenderHTMLEmpty(t *testing.T) {
	page, err := RenderHTML(Result{Window: NewChartWindow(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC), "week")})
	if err != nil {
		t.Fatalf("RenderHTML(empty) error: %v", err)
	}
	html := string(page)

	if strings.Contains(html, "id=\"cadence\"") {
		t.Errorf("empty report should not render chart canvases")
	}
	if !strings.Contains(html, "<td>Total incidents</td><td>0</td>") {
		t.Errorf("empty report should still render the summary table")
	}
}
