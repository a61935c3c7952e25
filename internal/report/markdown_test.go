package report

import (
	"strings"
	"testing"

	"hrtriage/internal/incident"
)

func TestRenderSummaryMarkdownEmpty(t *testing.T) {
	md := RenderSummaryMarkdown(Result{}, true)

	if !strings.Contains(md, "| Total incidents | 0 |") {
		t.Errorf("empty summary should render the classification table:\n%s", md)
	}
	if strings.Contains(md, "## Durations") {
		t.Errorf("empty summary should not render a durations section:\n%s", md)
	}
	if strings.Contains(md, "```mermaid") {
		t.Errorf("empty summary should not render charts:\n%s", md)
	}
}

func TestRenderSummaryMarkdownChartsDisabled(t *testing.T) {
	incidents := []incident.Incident{
		{IncidentID: 1, DurationSeconds: 10, MaxBPM: 150, Classification: incident.ClassUnknown, Confidence: incident.ConfidenceNone},
	}
	r := Result{Incidents: incidents, Summary: incident.Summarize(incidents)}

	md := RenderSummaryMarkdown(r, false)
	if strings.Contains(md, "```mermaid") {
		t.Errorf("charts rendered while disabled:\n%s", md)
	}
	if !strings.Contains(md, "| Unknown | 1 |") {
		t.Errorf("classification table missing:\n%s", md)
	}
}
