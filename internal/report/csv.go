package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"hrtriage/internal/incident"
)

// incidentHeader is the stable column order of the incidents table. Scripts
// downstream key on these names, so new columns are appended, never inserted.
var incidentHeader = []string{
	"incident_id",
	"start_time",
	"end_time",
	"duration_seconds",
	"max_bpm",
	"avg_bpm",
	"sample_count",
	"classification",
	"workout_confidence",
	"workout_type",
	"overlap_seconds",
	"notes",
}

// WriteIncidentsCSV writes the classified incidents as a CSV table, one row
// per incident, timestamps in RFC3339 UTC.
func WriteIncidentsCSV(path string, incidents []incident.Incident) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(incidentHeader); err != nil {
		return err
	}
	for _, inc := range incidents {
		if err := w.Write(incidentRowCSV(inc)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func incidentRowCSV(inc incident.Incident) []string {
	return []string{
		strconv.Itoa(inc.IncidentID),
		inc.Start.UTC().Format(time.RFC3339),
		inc.End.UTC().Format(time.RFC3339),
		formatSeconds(inc.DurationSeconds),
		formatBPM(inc.MaxBPM),
		formatBPM(inc.AvgBPM),
		strconv.Itoa(inc.SampleCount),
		string(inc.Classification),
		string(inc.Confidence),
		inc.WorkoutType,
		formatSeconds(inc.OverlapSeconds),
		inc.Notes,
	}
}

// Seconds carry two decimals, bpm aggregates one. Sub-second durations matter
// for instant incidents; fractional bpm beyond a tenth is sensor noise.
func formatSeconds(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatBPM(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
