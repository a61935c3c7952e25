// Package stream watches a live heart-rate feed and raises incident events
// in real time, applying the batch grouping rules sample by sample. The
// detector itself is pure: time is always injected, and nothing here touches
// the broker, the journal, or the clock.
package stream

import (
	"math"
	"time"

	"hrtriage/internal/incident"
)

// Counts tracks sample dispositions since startup. Counts only, never
// sample values.
type Counts struct {
	Samples    int `json:"samples"`
	Qualifying int `json:"qualifying"`
	Invalid    int `json:"invalid"`
	Stale      int `json:"stale"`
	Opened     int `json:"opened"`
	Closed     int `json:"closed"`
}

// liveCluster holds the open incident's running aggregates, mirroring the
// batch grouper's cluster arithmetic.
type liveCluster struct {
	id      int
	start   time.Time
	end     time.Time // last qualifying sample
	maxBPM  float64
	meanBPM float64
	count   int
}

// Detector is the live counterpart of the batch grouper. A cluster opens on
// a qualifying sample and closes once the wall clock moves more than the max
// gap past the last qualifying sample, checked on every arrival and on every
// tick.
type Detector struct {
	opts     incident.GroupOptions
	cur      *liveCluster
	lastTime time.Time
	counts   Counts
	nextID   int
}

// NewDetector creates a detector with the given grouping options. Zero or
// negative fields fall back to the defaults.
func NewDetector(opts incident.GroupOptions) *Detector {
	def := incident.DefaultGroupOptions()
	if opts.ThresholdBPM <= 0 {
		opts.ThresholdBPM = def.ThresholdBPM
	}
	if opts.MaxGapSeconds <= 0 {
		opts.MaxGapSeconds = def.MaxGapSeconds
	}
	return &Detector{opts: opts}
}

// Process feeds one sample at its arrival time. It returns zero or more
// events: a close for an incident whose gap just expired, an open for a new
// incident, or both when a distant sample does the two at once.
func (d *Detector) Process(s incident.Sample, now time.Time) []Event {
	events := d.expire(now)

	d.counts.Samples++

	// Invalid readings never qualify and never touch the open cluster.
	if math.IsNaN(s.BPM) || math.IsInf(s.BPM, 0) {
		d.counts.Invalid++
		return events
	}

	// A live stream cannot abort on disorder the way a batch run does.
	// Samples older than one already seen are dropped instead; equal
	// timestamps are fine.
	if s.Time.Before(d.lastTime) {
		d.counts.Stale++
		return events
	}
	d.lastTime = s.Time

	// Strict threshold filter.
	if s.BPM <= d.opts.ThresholdBPM {
		return events
	}
	d.counts.Qualifying++

	// Extend the open cluster while the sample-to-sample gap allows. The
	// boundary is inclusive, matching the batch rule.
	if d.cur != nil && s.Time.Sub(d.cur.end).Seconds() <= d.opts.MaxGapSeconds {
		d.cur.end = s.Time
		d.cur.count++
		d.cur.meanBPM += (s.BPM - d.cur.meanBPM) / float64(d.cur.count)
		if s.BPM > d.cur.maxBPM {
			d.cur.maxBPM = s.BPM
		}
		return events
	}

	// Gap exceeded by the sample itself: close and reopen.
	if d.cur != nil {
		events = append(events, d.closeCluster(now))
	}

	d.nextID++
	d.cur = &liveCluster{id: d.nextID, start: s.Time, end: s.Time, maxBPM: s.BPM, meanBPM: s.BPM, count: 1}
	d.counts.Opened++
	events = append(events, Event{Type: EventIncidentOpen, ID: d.cur.id, Time: now, Start: s.Time})
	return events
}

// Tick closes the open incident once its gap has expired with no qualifying
// sample arriving. Sample arrival alone cannot close the final incident of a
// stream that goes quiet, so call this periodically.
func (d *Detector) Tick(now time.Time) []Event {
	return d.expire(now)
}

// expire closes the open cluster if the wall clock has moved strictly past
// the gap. The boundary itself keeps the cluster open.
func (d *Detector) expire(now time.Time) []Event {
	if d.cur == nil {
		return nil
	}
	if now.Sub(d.cur.end).Seconds() <= d.opts.MaxGapSeconds {
		return nil
	}
	return []Event{d.closeCluster(now)}
}

// closeCluster finalizes the open cluster. A single-sample cluster closes as
// a zero-duration incident, same as batch.
func (d *Detector) closeCluster(now time.Time) Event {
	c := d.cur
	d.cur = nil
	d.counts.Closed++
	return Event{
		Type:            EventIncidentClose,
		ID:              c.id,
		Time:            now,
		Start:           c.start,
		End:             c.end,
		DurationSeconds: c.end.Sub(c.start).Seconds(),
		MaxBPM:          c.maxBPM,
		AvgBPM:          c.meanBPM,
		SampleCount:     c.count,
	}
}

// Counts returns the sample disposition totals since startup.
func (d *Detector) Counts() Counts {
	return d.counts
}

// OpenIncident reports whether an incident is currently open and when it
// started.
func (d *Detector) OpenIncident() (time.Time, bool) {
	if d.cur == nil {
		return time.Time{}, false
	}
	return d.cur.start, true
}

// LastSample returns the newest sample timestamp accepted so far.
func (d *Detector) LastSample() time.Time {
	return d.lastTime
}
