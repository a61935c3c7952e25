package incident

import (
	"fmt"
	"math"
	"time"
)

// GroupOptions configures the grouping pass.
type GroupOptions struct {
	// ThresholdBPM is the strict lower bound a sample must exceed to qualify.
	ThresholdBPM float64
	// MaxGapSeconds is the largest gap between consecutive qualifying samples
	// that still joins them into one incident. The bound is inclusive.
	MaxGapSeconds float64
}

// DefaultGroupOptions returns the standard threshold (140 bpm) and gap (120s).
func DefaultGroupOptions() GroupOptions {
	return GroupOptions{ThresholdBPM: 140, MaxGapSeconds: 120}
}

// GroupStats summarizes one grouping pass. Counts only, never sample values.
type GroupStats struct {
	Qualifying int `json:"qualifying"`
	Invalid    int `json:"invalid"`
}

// cluster holds the open incident's running aggregates. O(1) regardless of
// cluster size; the mean is updated incrementally for numerical stability.
type cluster struct {
	start   time.Time
	end     time.Time
	maxBPM  float64
	meanBPM float64
	count   int
	invalid int
}

// Group clusters above-threshold samples into incidents using the max-gap
// rule. The raw sequence must be in non-decreasing timestamp order; a
// violation returns an *OrderingError rather than silently re-sorting, which
// would hide upstream ingestion bugs. Below-threshold samples belong to no
// incident and are discarded. An empty qualifying set yields an empty result
// and a nil error.
func Group(samples []Sample, opts GroupOptions) ([]Incident, GroupStats, error) {
	var (
		incidents      []Incident
		stats          GroupStats
		cur            *cluster
		pendingInvalid int
	)

	for i, s := range samples {
		// 1. Ordering check on the raw sequence, before any filtering.
		if i > 0 && s.Time.Before(samples[i-1].Time) {
			return nil, stats, &OrderingError{Index: i, Prev: samples[i-1].Time, Cur: s.Time}
		}

		// 2. Invalid readings never qualify. Ones arriving while a cluster is
		// open are held pending; they only count against the cluster if a
		// later qualifying sample extends the span past them.
		if math.IsNaN(s.BPM) || math.IsInf(s.BPM, 0) {
			stats.Invalid++
			if cur != nil {
				pendingInvalid++
			}
			continue
		}

		// 3. Strict threshold filter.
		if s.BPM <= opts.ThresholdBPM {
			continue
		}
		stats.Qualifying++

		// 4. Extend the open cluster while the gap allows. Identical
		// timestamps are zero-gap; the boundary itself is inclusive.
		if cur != nil && s.Time.Sub(cur.end).Seconds() <= opts.MaxGapSeconds {
			cur.end = s.Time
			cur.count++
			cur.meanBPM += (s.BPM - cur.meanBPM) / float64(cur.count)
			if s.BPM > cur.maxBPM {
				cur.maxBPM = s.BPM
			}
			cur.invalid += pendingInvalid
			pendingInvalid = 0
			continue
		}

		// 5. Gap exceeded (or first qualifying sample): close and reopen.
		if cur != nil {
			incidents = append(incidents, cur.close())
		}
		cur = &cluster{start: s.Time, end: s.Time, maxBPM: s.BPM, meanBPM: s.BPM, count: 1}
		pendingInvalid = 0
	}

	if cur != nil {
		incidents = append(incidents, cur.close())
	}

	// 6. IDs are 1-based positions in start-time order, reproducible across
	// runs on identical input.
	for i := range incidents {
		incidents[i].IncidentID = i + 1
	}

	return incidents, stats, nil
}

// FilterMinDuration drops incidents shorter than minSeconds and renumbers the
// survivors so IDs stay 1-based positions in the final output. A zero or
// negative minimum keeps everything.
func FilterMinDuration(incidents []Incident, minSeconds float64) []Incident {
	if minSeconds <= 0 {
		return incidents
	}

	kept := make([]Incident, 0, len(incidents))
	for _, inc := range incidents {
		if inc.DurationSeconds >= minSeconds {
			kept = append(kept, inc)
		}
	}
	for i := range kept {
		kept[i].IncidentID = i + 1
	}
	return kept
}

// close finalizes the open cluster. A single-sample cluster becomes a
// zero-duration incident and is retained; a brief spike is still reportable.
func (c *cluster) close() Incident {
	inc := Incident{
		Start:           c.start,
		End:             c.end,
		DurationSeconds: c.end.Sub(c.start).Seconds(),
		MaxBPM:          c.maxBPM,
		AvgBPM:          c.meanBPM,
		SampleCount:     c.count,
	}
	if c.invalid > 0 {
		inc.Notes = fmt.Sprintf("excluded %d invalid bpm samples", c.invalid)
	}
	return inc
}
