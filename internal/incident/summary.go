package incident

import (
	"math"
	"slices"
	"time"
)

// WeeklyCount is one bucket of the incident cadence.
type WeeklyCount struct {
	WeekStarting time.Time `json:"weekStarting"`
	Incidents    int       `json:"incidents"`
}

// Summary aggregates a classified incident set for reporting.
type Summary struct {
	TotalIncidents        int           `json:"totalIncidents"`
	WorkoutCount          int           `json:"workoutCount"`
	PossibleWorkoutCount  int           `json:"possibleWorkoutCount"`
	NonWorkoutCount       int           `json:"nonWorkoutCount"`
	UnknownCount          int           `json:"unknownCount"`
	ExplainedRate         float64       `json:"explainedRate"`
	MedianDurationSeconds float64       `json:"medianDurationSeconds"`
	P85DurationSeconds    float64       `json:"p85DurationSeconds"`
	PeakBPM               float64       `json:"peakBpm"`
	PeakStart             time.Time     `json:"peakStart"`
	WeeklyCadence         []WeeklyCount `json:"weeklyCadence,omitempty"`
}

// Summarize folds a classified incident set into report aggregates. The
// explained rate is the share of incidents attributed to exercise (workout
// plus possible_workout). Deterministic for a given incident set.
func Summarize(incidents []Incident) Summary {
	s := Summary{TotalIncidents: len(incidents)}
	if len(incidents) == 0 {
		return s
	}

	weeks := make(map[time.Time]int)
	durations := make([]float64, 0, len(incidents))

	for _, inc := range incidents {
		switch inc.Classification {
		case ClassWorkout:
			s.WorkoutCount++
		case ClassPossibleWorkout:
			s.PossibleWorkoutCount++
		case ClassNonWorkout:
			s.NonWorkoutCount++
		default:
			s.UnknownCount++
		}

		durations = append(durations, inc.DurationSeconds)
		if inc.MaxBPM > s.PeakBPM {
			s.PeakBPM = inc.MaxBPM
			s.PeakStart = inc.Start
		}
		weeks[weekStart(inc.Start)]++
	}

	s.ExplainedRate = math.Round(float64(s.WorkoutCount+s.PossibleWorkoutCount)/float64(s.TotalIncidents)*1000) / 1000
	s.MedianDurationSeconds = math.Round(Median(durations)*10) / 10
	s.P85DurationSeconds = math.Round(Percentile(durations, 0.85)*10) / 10

	for week, count := range weeks {
		s.WeeklyCadence = append(s.WeeklyCadence, WeeklyCount{WeekStarting: week, Incidents: count})
	}
	slices.SortFunc(s.WeeklyCadence, func(a, b WeeklyCount) int {
		return a.WeekStarting.Compare(b.WeekStarting)
	})

	return s
}

// weekStart normalizes a timestamp to the Monday of its week.
func weekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - 1
	if offset < 0 {
		offset = 6 // Sunday
	}
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
}
