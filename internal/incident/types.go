package incident

import (
	"fmt"
	"time"
)

// Classification labels the relationship between an incident and exercise evidence.
type Classification string

const (
	// ClassWorkout indicates the incident falls mostly inside an explicit workout.
	ClassWorkout Classification = "workout"
	// ClassPossibleWorkout indicates partial or weak exercise evidence.
	ClassPossibleWorkout Classification = "possible_workout"
	// ClassNonWorkout indicates workout data exists but none coincides.
	ClassNonWorkout Classification = "non_workout"
	// ClassUnknown indicates no workout data was available for the run.
	ClassUnknown Classification = "unknown"
)

// Confidence is the ordinal trust level of a workout classification.
// Ordinal rather than numeric so the mapping stays deterministic and auditable.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// SignalKind identifies the source of a weak activity signal.
type SignalKind string

const (
	SignalSteps    SignalKind = "steps"
	SignalEnergy   SignalKind = "energy"
	SignalExercise SignalKind = "exercise"
)

// Sample is a single heart-rate measurement. Samples are read-only inputs
// scoped to one run; duplicates at the same timestamp are permitted.
type Sample struct {
	Time time.Time `json:"time"`
	BPM  float64   `json:"bpm"`
}

// WorkoutInterval is an explicit exercise session. End >= Start is an input
// invariant; intervals violating it are rejected, never repaired.
type WorkoutInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"`
}

// ActivitySignal is weak secondary evidence of exertion (steps, energy burn).
// It is consulted only when no WorkoutInterval overlaps an incident.
type ActivitySignal struct {
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
	Kind  SignalKind `json:"kind"`
}

// Span is a closed time interval [Start, End]. A zero-duration span is treated
// as a single instant by the overlap rules.
type Span struct {
	Start time.Time
	End   time.Time
}

// Incident is a maximal cluster of above-threshold samples, enriched with
// overlap and classification results. The ID is the 1-based position in
// start-time order, so output is reproducible across runs on identical input.
type Incident struct {
	IncidentID      int            `json:"incidentId"`
	Start           time.Time      `json:"start"`
	End             time.Time      `json:"end"`
	DurationSeconds float64        `json:"durationSeconds"`
	MaxBPM          float64        `json:"maxBpm"`
	AvgBPM          float64        `json:"avgBpm"`
	SampleCount     int            `json:"sampleCount"`
	Classification  Classification `json:"classification"`
	Confidence      Confidence     `json:"workoutConfidence"`
	WorkoutType     string         `json:"workoutType"`
	OverlapSeconds  float64        `json:"overlapSeconds"`
	Notes           string         `json:"notes"`
}

// Span returns the incident's time span.
func (i Incident) Span() Span {
	return Span{Start: i.Start, End: i.End}
}

// OrderingError reports a non-monotonic timestamp in the raw sample sequence.
// It references timestamps and positions only, never bpm values.
type OrderingError struct {
	Index int
	Prev  time.Time
	Cur   time.Time
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("samples out of order at index %d: %s follows %s",
		e.Index, e.Cur.Format(time.RFC3339), e.Prev.Format(time.RFC3339))
}
