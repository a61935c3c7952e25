package incident

import "fmt"

// ruleContext carries everything a classification rule may inspect.
type ruleContext struct {
	incident Incident
	overlap  OverlapResult
	workouts []WorkoutInterval
	signals  []ActivitySignal
}

// rule is one (predicate, outcome) pair of the priority-ordered policy.
type rule struct {
	name    string
	applies func(ruleContext) bool
	apply   func(ruleContext, *Incident)
}

// classificationRules is evaluated top to bottom and short-circuits at the
// first match. The order IS the policy: strong overlap beats partial overlap
// beats weak activity signals, and "no workout data at all" (rule 4) is
// distinct from "data present but non-matching" (rule 5). Keeping this an
// ordered list rather than independent conditionals is what preserves that
// distinction across refactors.
var classificationRules = []rule{
	{
		name: "workout_overlap_majority",
		applies: func(c ruleContext) bool {
			return c.overlap.Seconds > 0 && c.overlap.Seconds >= c.incident.DurationSeconds*0.5
		},
		apply: func(c ruleContext, inc *Incident) {
			inc.Classification = ClassWorkout
			inc.Confidence = ConfidenceHigh
			inc.WorkoutType = matchType(c.overlap)
			appendNote(inc, "explicit workout overlap")
		},
	},
	{
		name: "workout_overlap_partial",
		applies: func(c ruleContext) bool {
			return c.overlap.Seconds > 0
		},
		apply: func(c ruleContext, inc *Incident) {
			inc.Classification = ClassPossibleWorkout
			inc.Confidence = ConfidenceMedium
			inc.WorkoutType = matchType(c.overlap)
			// Rule 1 absorbs every zero-duration overlap, so the division is
			// safe here.
			fraction := c.overlap.Seconds / c.incident.DurationSeconds
			appendNote(inc, fmt.Sprintf("partial workout overlap (%.0f%% of incident)", fraction*100))
		},
	},
	{
		name: "activity_signal",
		applies: func(c ruleContext) bool {
			_, ok := overlappingSignal(c.incident.Span(), c.signals)
			return ok
		},
		apply: func(c ruleContext, inc *Incident) {
			kind, _ := overlappingSignal(c.incident.Span(), c.signals)
			inc.Classification = ClassPossibleWorkout
			inc.Confidence = ConfidenceLow
			inc.WorkoutType = "unknown"
			appendNote(inc, fmt.Sprintf("inferred from activity signal (%s)", kind))
		},
	},
	{
		name: "no_workout_data",
		applies: func(c ruleContext) bool {
			return len(c.workouts) == 0
		},
		apply: func(c ruleContext, inc *Incident) {
			inc.Classification = ClassUnknown
			inc.Confidence = ConfidenceNone
			inc.WorkoutType = "unknown"
			appendNote(inc, "no workout data available")
		},
	},
	{
		name:    "no_overlap",
		applies: func(c ruleContext) bool { return true },
		apply: func(c ruleContext, inc *Incident) {
			inc.Classification = ClassNonWorkout
			inc.Confidence = ConfidenceNone
			inc.WorkoutType = "unknown"
			appendNote(inc, "no explicit workout overlap")
		},
	},
}

// Classify applies the priority-ordered rule policy to one incident and
// returns the enriched copy. Deterministic: no wall clock, no randomness; the
// run window is applied upstream at ingestion.
func Classify(inc Incident, ov OverlapResult, workouts []WorkoutInterval, signals []ActivitySignal) Incident {
	inc.OverlapSeconds = ov.Seconds
	inc.WorkoutType = "unknown"

	c := ruleContext{incident: inc, overlap: ov, workouts: workouts, signals: signals}
	for _, r := range classificationRules {
		if r.applies(c) {
			r.apply(c, &inc)
			break
		}
	}

	if ov.MalformedSkipped > 0 {
		appendNote(&inc, fmt.Sprintf("ignored %d malformed workout intervals", ov.MalformedSkipped))
	}
	return inc
}

func matchType(ov OverlapResult) string {
	if ov.Best == nil || ov.Best.Type == "" {
		return "unknown"
	}
	return ov.Best.Type
}

func appendNote(inc *Incident, note string) {
	if inc.Notes == "" {
		inc.Notes = note
		return
	}
	inc.Notes += "; " + note
}

// overlappingSignal returns the kind of the signal with the largest overlap
// against the span; ties go to the earliest start, then end, then kind, so
// the answer is stable under reordering of the signal set.
func overlappingSignal(span Span, signals []ActivitySignal) (SignalKind, bool) {
	var (
		found   bool
		bestSec float64
		best    ActivitySignal
	)
	for _, sig := range signals {
		sec := intersectSeconds(span, WorkoutInterval{Start: sig.Start, End: sig.End})
		if sec <= 0 {
			continue
		}
		if !found || sec > bestSec || (sec == bestSec && signalBefore(sig, best)) {
			found = true
			bestSec = sec
			best = sig
		}
	}
	return best.Kind, found
}

func signalBefore(a, b ActivitySignal) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	if !a.End.Equal(b.End) {
		return a.End.Before(b.End)
	}
	return a.Kind < b.Kind
}
