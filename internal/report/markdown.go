package report

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// RenderSummaryMarkdown builds the human-readable run summary. Charts are
// appended when enabled; the tables render the same either way.
func RenderSummaryMarkdown(r Result, charts bool) string {
	s := r.Summary

	var sb strings.Builder
	sb.WriteString("# Heart Rate Incident Report\n\n")
	if !r.Window.Start.IsZero() {
		sb.WriteString(fmt.Sprintf("Analysis window: %s to %s (bucketed by %s).\n\n",
			r.Window.Start.Format("2006-01-02"), r.Window.End.Format("2006-01-02"), r.Window.Bucket))
	}

	sb.WriteString("## Classification\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("| --- | --- |\n")
	sb.WriteString(fmt.Sprintf("| Total incidents | %d |\n", s.TotalIncidents))
	sb.WriteString(fmt.Sprintf("| Workout | %d |\n", s.WorkoutCount))
	sb.WriteString(fmt.Sprintf("| Possible workout | %d |\n", s.PossibleWorkoutCount))
	sb.WriteString(fmt.Sprintf("| Non-workout | %d |\n", s.NonWorkoutCount))
	sb.WriteString(fmt.Sprintf("| Unknown | %d |\n", s.UnknownCount))
	sb.WriteString(fmt.Sprintf("| Explained rate | %.1f%% |\n", s.ExplainedRate*100))
	sb.WriteString("\n")

	if s.TotalIncidents > 0 {
		sb.WriteString("## Durations\n\n")
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("| --- | --- |\n")
		sb.WriteString(fmt.Sprintf("| Median | %.1fs |\n", s.MedianDurationSeconds))
		sb.WriteString(fmt.Sprintf("| P85 | %.1fs |\n", s.P85DurationSeconds))
		sb.WriteString(fmt.Sprintf("| Peak | %.1f bpm at %s |\n", s.PeakBPM, s.PeakStart.UTC().Format(time.RFC3339)))
		sb.WriteString("\n")
	}

	if notes := collectNotes(r); len(notes) > 0 {
		sb.WriteString("## Notes\n\n")
		for _, note := range notes {
			sb.WriteString(fmt.Sprintf("- %s\n", note))
		}
		sb.WriteString("\n")
	}

	if charts {
		if pie := GenerateClassificationPie(s); pie != "" {
			sb.WriteString("## Charts\n\n")
			sb.WriteString(pie)
			sb.WriteString("\n\n")
			if cadence := GenerateCadenceChart(r.Incidents, r.Window); cadence != "" {
				sb.WriteString(cadence)
				sb.WriteString("\n\n")
			}
			if durations := GenerateDurationChart(r.Incidents, s); durations != "" {
				sb.WriteString(durations)
				sb.WriteString("\n\n")
			}
		}
	}

	return sb.String()
}

// collectNotes lists per-incident data-quality notes, prefixed with the
// incident id so they trace back to the table. Classification reasons are
// already visible in the table and stay out of this section.
func collectNotes(r Result) []string {
	var notes []string
	for _, inc := range r.Incidents {
		for _, note := range strings.Split(inc.Notes, "; ") {
			if !strings.Contains(note, "invalid") && !strings.Contains(note, "malformed") {
				continue
			}
			notes = append(notes, fmt.Sprintf("incident %d: %s", inc.IncidentID, note))
		}
	}
	return notes
}

// WriteSummaryMarkdown renders the summary and writes it to path.
func WriteSummaryMarkdown(path string, r Result, charts bool) error {
	return os.WriteFile(path, []byte(RenderSummaryMarkdown(r, charts)), 0o644)
}
