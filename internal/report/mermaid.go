package report

import (
	"fmt"
	"math"
	"strings"

	"hrtriage/internal/incident"
)

// GenerateClassificationPie creates a Mermaid pie chart of the classification
// breakdown.
func GenerateClassificationPie(s incident.Summary) string {
	if s.TotalIncidents == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie title Incident Classification\n")
	slices := []struct {
		label string
		count int
	}{
		{"Workout", s.WorkoutCount},
		{"Possible Workout", s.PossibleWorkoutCount},
		{"Non-Workout", s.NonWorkoutCount},
		{"Unknown", s.UnknownCount},
	}
	for _, slice := range slices {
		if slice.count > 0 {
			sb.WriteString(fmt.Sprintf("    \"%s\" : %d\n", slice.label, slice.count))
		}
	}
	sb.WriteString("```")
	return sb.String()
}

// GenerateCadenceChart creates a Mermaid bar chart of incident counts per
// window bucket.
func GenerateCadenceChart(incidents []incident.Incident, w ChartWindow) string {
	counts := w.BucketCounts(incidents)
	starts := w.Subdivide()
	if len(counts) == 0 {
		return ""
	}

	// Subsample points if the chart is too wide for Mermaid's layout engine
	// Typically Mermaid xychart starts overflowing/overlapping text around 60 points
	subsampleRate := 1
	if len(counts) > 60 {
		subsampleRate = int(math.Ceil(float64(len(counts)) / 60.0))
	}

	var labels []string
	var values []string
	maxVal := 0
	for i, count := range counts {
		if count > maxVal {
			maxVal = count
		}
		if i%subsampleRate == 0 || i == len(counts)-1 {
			labels = append(labels, fmt.Sprintf("\"%s\"", w.GenerateLabel(starts[i])))
			values = append(values, fmt.Sprintf("%d", count))
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Incident Cadence\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Incidents\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateDurationChart creates a Mermaid line chart of incident durations
// with the median and P85 drawn as scalar reference lines.
func GenerateDurationChart(incidents []incident.Incident, s incident.Summary) string {
	if len(incidents) == 0 {
		return ""
	}

	// Reference levels are scalar across the entire chart for visual context
	median := fmt.Sprintf("%.1f", s.MedianDurationSeconds)
	p85 := fmt.Sprintf("%.1f", s.P85DurationSeconds)

	subsampleRate := 1
	if len(incidents) > 60 {
		subsampleRate = int(math.Ceil(float64(len(incidents)) / 60.0))
	}

	var labels []string
	var values []string
	var medians []string
	var p85s []string
	for i, inc := range incidents {
		if i%subsampleRate == 0 || i == len(incidents)-1 {
			labels = append(labels, fmt.Sprintf("%d", inc.IncidentID))
			values = append(values, fmt.Sprintf("%.1f", inc.DurationSeconds))
			medians = append(medians, median)
			p85s = append(p85s, p85)
		}
	}

	// Dynamically scale Y-axis based on max value to give breathing room above the P85
	maxY := s.P85DurationSeconds * 1.2
	for _, inc := range incidents {
		if inc.DurationSeconds > maxY {
			maxY = inc.DurationSeconds * 1.1
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Incident Durations\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Duration (Seconds)\" 0 --> %d\n", int(math.Ceil(maxY))))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(medians, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(p85s, ", ")))
	sb.WriteString("```")
	return sb.String()
}
