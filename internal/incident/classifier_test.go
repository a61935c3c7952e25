package incident

import (
	"reflect"
	"testing"
)

func mkIncident(startSec, endSec int) Incident {
	return Incident{
		IncidentID:      1,
		Start:           at(startSec),
		End:             at(endSec),
		DurationSeconds: float64(endSec - startSec),
		MaxBPM:          165,
		AvgBPM:          152,
		SampleCount:     4,
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	tests := []struct {
		name      string
		incident  Incident
		workouts  []WorkoutInterval
		signals   []ActivitySignal
		wantClass Classification
		wantConf  Confidence
		wantType  string
		wantNotes string
	}{
		{
			name:     "majority overlap is a workout",
			incident: mkIncident(0, 200),
			workouts: []WorkoutInterval{
				{Start: at(-600), End: at(400), Type: "running"},
			},
			wantClass: ClassWorkout,
			wantConf:  ConfidenceHigh,
			wantType:  "running",
			wantNotes: "explicit workout overlap",
		},
		{
			name:     "exactly half counts as majority",
			incident: mkIncident(0, 200),
			workouts: []WorkoutInterval{
				{Start: at(100), End: at(300), Type: "cycling"},
			},
			wantClass: ClassWorkout,
			wantConf:  ConfidenceHigh,
			wantType:  "cycling",
			wantNotes: "explicit workout overlap",
		},
		{
			name:     "partial overlap is only possible",
			incident: mkIncident(0, 200),
			workouts: []WorkoutInterval{
				{Start: at(160), End: at(300), Type: "running"},
			},
			wantClass: ClassPossibleWorkout,
			wantConf:  ConfidenceMedium,
			wantType:  "running",
			wantNotes: "partial workout overlap (20% of incident)",
		},
		{
			name:     "activity signal without workout overlap",
			incident: mkIncident(0, 200),
			workouts: []WorkoutInterval{
				{Start: at(1000), End: at(2000), Type: "running"},
			},
			signals: []ActivitySignal{
				{Start: at(50), End: at(150), Kind: SignalSteps},
			},
			wantClass: ClassPossibleWorkout,
			wantConf:  ConfidenceLow,
			wantType:  "unknown",
			wantNotes: "inferred from activity signal (steps)",
		},
		{
			name:      "no workout data at all",
			incident:  mkIncident(0, 200),
			wantClass: ClassUnknown,
			wantConf:  ConfidenceNone,
			wantType:  "unknown",
			wantNotes: "no workout data available",
		},
		{
			name:     "workout data present but disjoint",
			incident: mkIncident(0, 200),
			workouts: []WorkoutInterval{
				{Start: at(1000), End: at(2000), Type: "running"},
			},
			wantClass: ClassNonWorkout,
			wantConf:  ConfidenceNone,
			wantType:  "unknown",
			wantNotes: "no explicit workout overlap",
		},
		{
			name:     "strong overlap beats activity signal",
			incident: mkIncident(0, 200),
			workouts: []WorkoutInterval{
				{Start: at(-600), End: at(400), Type: "rowing"},
			},
			signals: []ActivitySignal{
				{Start: at(0), End: at(200), Kind: SignalEnergy},
			},
			wantClass: ClassWorkout,
			wantConf:  ConfidenceHigh,
			wantType:  "rowing",
			wantNotes: "explicit workout overlap",
		},
		{
			name:     "signal rule fires even with zero workouts",
			incident: mkIncident(0, 200),
			signals: []ActivitySignal{
				{Start: at(100), End: at(400), Kind: SignalExercise},
			},
			wantClass: ClassPossibleWorkout,
			wantConf:  ConfidenceLow,
			wantType:  "unknown",
			wantNotes: "inferred from activity signal (exercise)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov := Overlap(tt.incident.Span(), tt.workouts)
			got := Classify(tt.incident, ov, tt.workouts, tt.signals)

			if got.Classification != tt.wantClass {
				t.Errorf("Classification = %q, want %q", got.Classification, tt.wantClass)
			}
			if got.Confidence != tt.wantConf {
				t.Errorf("Confidence = %q, want %q", got.Confidence, tt.wantConf)
			}
			if got.WorkoutType != tt.wantType {
				t.Errorf("WorkoutType = %q, want %q", got.WorkoutType, tt.wantType)
			}
			if got.Notes != tt.wantNotes {
				t.Errorf("Notes = %q, want %q", got.Notes, tt.wantNotes)
			}
			if got.OverlapSeconds != ov.Seconds {
				t.Errorf("OverlapSeconds = %v, want %v", got.OverlapSeconds, ov.Seconds)
			}
		})
	}
}

func TestClassifyInstantIncident(t *testing.T) {
	// A single-sample incident inside a workout gets the nominal one-second
	// overlap, which rule 1 treats as full coverage of a zero duration.
	inc := mkIncident(50, 50)
	workouts := []WorkoutInterval{{Start: at(0), End: at(100), Type: "running"}}

	got := Classify(inc, Overlap(inc.Span(), workouts), workouts, nil)
	if got.Classification != ClassWorkout || got.Confidence != ConfidenceHigh {
		t.Errorf("Classify() = %s/%s, want workout/high", got.Classification, got.Confidence)
	}
	if got.OverlapSeconds != 1 {
		t.Errorf("OverlapSeconds = %v, want nominal 1", got.OverlapSeconds)
	}
}

func TestClassifyAppendsToGrouperNotes(t *testing.T) {
	inc := mkIncident(0, 200)
	inc.Notes = "excluded 1 invalid bpm samples"

	got := Classify(inc, OverlapResult{}, nil, nil)
	want := "excluded 1 invalid bpm samples; no workout data available"
	if got.Notes != want {
		t.Errorf("Notes = %q, want %q", got.Notes, want)
	}
}

func TestClassifyMalformedNote(t *testing.T) {
	inc := mkIncident(0, 200)
	workouts := []WorkoutInterval{
		{Start: at(-600), End: at(400), Type: "running"},
		{Start: at(100), End: at(0), Type: "running"},
	}

	got := Classify(inc, Overlap(inc.Span(), workouts), workouts, nil)
	want := "explicit workout overlap; ignored 1 malformed workout intervals"
	if got.Notes != want {
		t.Errorf("Notes = %q, want %q", got.Notes, want)
	}
	if got.Classification != ClassWorkout {
		t.Errorf("Classification = %q, want %q", got.Classification, ClassWorkout)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	inc := mkIncident(0, 200)
	workouts := []WorkoutInterval{
		{Start: at(150), End: at(300), Type: "running"},
		{Start: at(-100), End: at(50), Type: "cycling"},
	}
	signals := []ActivitySignal{{Start: at(0), End: at(200), Kind: SignalSteps}}

	ov := Overlap(inc.Span(), workouts)
	first := Classify(inc, ov, workouts, signals)
	second := Classify(inc, ov, workouts, signals)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Classify() is not deterministic: %+v vs %+v", first, second)
	}
}
