package incident

import (
	"slices"
	"strings"
)

// OverlapResult carries the summed intersection of an incident span against a
// workout set, plus the single best-matching interval.
type OverlapResult struct {
	// Seconds is the sum of all pairwise intersection lengths. Back-to-back
	// sessions are counted individually, not merged, so the sum may exceed
	// the incident duration.
	Seconds float64
	// Best is the interval with the largest individual intersection; ties go
	// to the earliest start, then earliest end, then type. Nil when nothing
	// intersects.
	Best *WorkoutInterval
	// MalformedSkipped counts rejected end-before-start intervals whose
	// swapped span would have touched this incident.
	MalformedSkipped int
}

// Overlap computes the temporal intersection between an incident span and a
// set of workout intervals. Pure function; the result is invariant under
// reordering of the workout set. A zero-duration span is an instant: an
// instant inside [w.Start, w.End] counts as one nominal second of overlap so
// the downstream ratio rules can fire.
func Overlap(span Span, workouts []WorkoutInterval) OverlapResult {
	// 1. Sort a copy so the float sum and the tie-breaking are both
	// independent of input order.
	sorted := make([]WorkoutInterval, len(workouts))
	copy(sorted, workouts)
	slices.SortFunc(sorted, compareIntervals)

	var res OverlapResult
	var bestSec float64

	for i := range sorted {
		w := sorted[i]

		// 2. Malformed intervals are excluded, never repaired. Record the
		// ones whose swapped span touches this incident so the classifier
		// can attach a note.
		if w.End.Before(w.Start) {
			if intersectSeconds(span, WorkoutInterval{Start: w.End, End: w.Start}) > 0 {
				res.MalformedSkipped++
			}
			continue
		}

		// 3. Accumulate per-interval intersections.
		sec := intersectSeconds(span, w)
		if sec <= 0 {
			continue
		}
		res.Seconds += sec

		// Strict > keeps the earliest of equal intersections as best, since
		// the walk is in sorted order.
		if res.Best == nil || sec > bestSec {
			res.Best = &sorted[i]
			bestSec = sec
		}
	}

	return res
}

// intersectSeconds returns the clamped intersection length between a span and
// one interval, with the instant rule for zero-duration spans.
func intersectSeconds(span Span, w WorkoutInterval) float64 {
	if span.End.Equal(span.Start) {
		if !span.Start.Before(w.Start) && !span.Start.After(w.End) {
			return 1
		}
		return 0
	}

	overlapStart := span.Start
	if w.Start.After(overlapStart) {
		overlapStart = w.Start
	}
	overlapEnd := span.End
	if w.End.Before(overlapEnd) {
		overlapEnd = w.End
	}
	if overlapStart.Before(overlapEnd) {
		return overlapEnd.Sub(overlapStart).Seconds()
	}
	return 0
}

func compareIntervals(a, b WorkoutInterval) int {
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	if c := a.End.Compare(b.End); c != 0 {
		return c
	}
	return strings.Compare(a.Type, b.Type)
}
