package ingest

import (
	"os"
	"strings"

	"github.com/tormoder/fit"

	"hrtriage/internal/incident"
)

// ReadFIT extracts heart-rate samples and workout sessions from one .fit
// activity file. Watch recordings carry both: record messages hold the
// per-second heart rate, session messages delimit the workout itself.
func ReadFIT(path string) (Dataset, RowStats, error) {
	var (
		ds    Dataset
		stats RowStats
	)

	f, err := os.Open(path)
	if err != nil {
		return ds, stats, err
	}
	defer f.Close()

	decoded, err := fit.Decode(f)
	if err != nil {
		return ds, stats, err
	}
	activity, err := decoded.Activity()
	if err != nil {
		return ds, stats, err
	}

	for _, rec := range activity.Records {
		if rec == nil {
			continue
		}
		stats.Rows++
		// 0xFF marks an absent reading in the FIT profile.
		if rec.HeartRate == ^uint8(0) || rec.HeartRate == 0 || rec.Timestamp.IsZero() {
			stats.Dropped++
			continue
		}
		ds.Samples = append(ds.Samples, incident.Sample{
			Time: rec.Timestamp.UTC(),
			BPM:  float64(rec.HeartRate),
		})
		stats.Kept++
	}

	for _, session := range activity.Sessions {
		if session == nil {
			continue
		}
		stats.Rows++
		start := session.StartTime.UTC()
		end := session.Timestamp.UTC()
		if start.IsZero() || end.IsZero() {
			stats.Dropped++
			continue
		}
		ds.Workouts = append(ds.Workouts, incident.WorkoutInterval{
			Start: start,
			End:   end,
			Type:  sportName(session.Sport),
		})
		stats.Kept++
	}

	// A recording without session messages is still a workout; fall back to
	// the lap envelope so the overlap stage sees the exercise.
	if len(activity.Sessions) == 0 {
		for _, lap := range activity.Laps {
			if lap == nil || lap.StartTime.IsZero() || lap.Timestamp.IsZero() {
				continue
			}
			stats.Rows++
			ds.Workouts = append(ds.Workouts, incident.WorkoutInterval{
				Start: lap.StartTime.UTC(),
				End:   lap.Timestamp.UTC(),
				Type:  "unknown",
			})
			stats.Kept++
		}
	}

	return ds, stats, nil
}

func sportName(s fit.Sport) string {
	name := strings.ToLower(s.String())
	if name == "" || name == "all" || strings.Contains(name, "invalid") || strings.Contains(name, "(") {
		return "unknown"
	}
	return name
}
