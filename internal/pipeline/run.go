// Package pipeline wires ingestion, the sample cache, and the incident
// analyzer into one batch run: scan sources, hydrate the dataset (cache or
// fresh ingest), group, score, classify, summarize.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"hrtriage/internal/incident"
	"hrtriage/internal/ingest"
	"hrtriage/internal/samplestore"
)

// Options configure one analysis run. Now is captured once by the caller so
// every window decision inside the run agrees on one reference time.
type Options struct {
	InputDir           string
	WorkoutsDir        string
	ThresholdBPM       float64
	MaxGapSeconds      float64
	MinDurationSeconds float64
	WindowMonths       int
	StartDate          time.Time
	EndDate            time.Time
	Now                time.Time
	CachePath          string // empty disables the sample cache
}

// Result is the outcome of one analysis pass.
type Result struct {
	Incidents   []incident.Incident `json:"incidents"`
	Summary     incident.Summary    `json:"summary"`
	GroupStats  incident.GroupStats `json:"groupStats"`
	Window      ingest.Window       `json:"window"`
	Reports     []ingest.FileReport `json:"reports,omitempty"`
	Fingerprint string              `json:"fingerprint"`
	FromCache   bool                `json:"fromCache"`
}

// Run executes the full batch pipeline over the configured input roots.
func Run(ctx context.Context, opts Options) (*Result, error) {
	window := opts.window()

	// 1. Discover source files across the input roots.
	paths, err := ingest.Scan(opts.InputDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.InputDir, err)
	}
	if opts.WorkoutsDir != "" {
		more, err := ingest.Scan(opts.WorkoutsDir)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", opts.WorkoutsDir, err)
		}
		paths = append(paths, more...)
	}

	// 2. Fingerprint the sources to decide cache reuse.
	fingerprint, err := Fingerprint(paths)
	if err != nil {
		return nil, err
	}

	// 3. Hydrate the dataset, from the cache when the fingerprint matches.
	ds, reports, fromCache, err := hydrate(ctx, opts, window, fingerprint, paths)
	if err != nil {
		return nil, err
	}

	// 4. Group samples into incidents. An ordering violation here means the
	// upstream feed broke its contract; it aborts the run rather than being
	// papered over.
	incidents, stats, err := incident.Group(ds.Samples, opts.groupOptions())
	if err != nil {
		return nil, err
	}

	// 5. Score and classify each incident independently.
	for i := range incidents {
		ov := incident.Overlap(incidents[i].Span(), ds.Workouts)
		incidents[i] = incident.Classify(incidents[i], ov, ds.Workouts, ds.Signals)
	}

	// 6. Apply the duration floor, renumber, summarize.
	incidents = incident.FilterMinDuration(incidents, opts.MinDurationSeconds)

	result := &Result{
		Incidents:   incidents,
		Summary:     incident.Summarize(incidents),
		GroupStats:  stats,
		Window:      window,
		Reports:     reports,
		Fingerprint: fingerprint,
		FromCache:   fromCache,
	}

	log.Info().
		Int("incidents", len(incidents)).
		Int("qualifying", stats.Qualifying).
		Int("invalid", stats.Invalid).
		Bool("fromCache", fromCache).
		Time("windowStart", window.Start).
		Time("windowEnd", window.End).
		Msg("Analysis complete")
	return result, nil
}

// window resolves the run window: explicit dates win, otherwise the rolling
// months window anchored at Now.
func (o Options) window() ingest.Window {
	months := o.WindowMonths
	if months <= 0 {
		months = 9
	}
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	w := ingest.WindowEnding(now, months)
	if !o.StartDate.IsZero() {
		w.Start = o.StartDate.UTC()
	}
	if !o.EndDate.IsZero() {
		w.End = o.EndDate.UTC()
	}
	return w
}

func (o Options) groupOptions() incident.GroupOptions {
	g := incident.DefaultGroupOptions()
	if o.ThresholdBPM > 0 {
		g.ThresholdBPM = o.ThresholdBPM
	}
	if o.MaxGapSeconds > 0 {
		g.MaxGapSeconds = o.MaxGapSeconds
	}
	return g
}

// DateRange parses optional YYYY-MM-DD window bounds as UTC calendar days.
// The end bound covers its whole day. Zero times mean unset.
func DateRange(start, end string) (time.Time, time.Time, error) {
	var s, e time.Time
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return s, e, fmt.Errorf("parsing start date %q: %w", start, err)
		}
		s = t.UTC()
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return s, e, fmt.Errorf("parsing end date %q: %w", end, err)
		}
		e = t.UTC().AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !s.IsZero() && !e.IsZero() && e.Before(s) {
		return s, e, fmt.Errorf("end date %s precedes start date %s", end, start)
	}
	return s, e, nil
}

// Fingerprint derives the dataset identity from the source file list: path,
// size, and mtime of every file, in scan order. Any change to any source
// changes the fingerprint and invalidates the cache.
func Fingerprint(paths []string) (string, error) {
	h := sha256.New()
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("fingerprinting %s: %w", path, err)
		}
		fmt.Fprintf(h, "%s|%d|%d\n", path, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hydrate produces the window's dataset. With a cache configured it tries the
// stored dataset first, refills it on a fingerprint miss, and falls back to
// plain ingestion whenever the cache misbehaves; a broken cache never fails
// the run.
func hydrate(ctx context.Context, opts Options, window ingest.Window, fingerprint string, paths []string) (ingest.Dataset, []ingest.FileReport, bool, error) {
	if opts.CachePath == "" {
		res, err := ingest.Load(ctx, paths, window)
		if err != nil {
			return ingest.Dataset{}, nil, false, err
		}
		return res.Dataset, res.Reports, false, nil
	}

	store, err := samplestore.New(opts.CachePath)
	if err != nil {
		log.Warn().Err(err).Str("path", opts.CachePath).Msg("Hydrate: cache unavailable, ingesting directly")
		res, err := ingest.Load(ctx, paths, window)
		if err != nil {
			return ingest.Dataset{}, nil, false, err
		}
		return res.Dataset, res.Reports, false, nil
	}
	defer store.Close()

	// 1. Cache hit: same fingerprint means the exact same source files.
	info, err := store.Info()
	if err == nil && info != nil && info.Fingerprint == fingerprint {
		ds, err := readRange(store, window)
		if err == nil {
			log.Debug().Str("fingerprint", fingerprint).Msg("Hydrate: loaded from cache")
			return ds, nil, true, nil
		}
		log.Warn().Err(err).Msg("Hydrate: cache read failed, re-ingesting")
	}

	// 2. Miss: ingest the full archive unclipped so future runs with other
	// windows can reuse it, then refill the cache.
	res, err := ingest.Load(ctx, paths, ingest.Window{})
	if err != nil {
		return ingest.Dataset{}, nil, false, err
	}
	if err := store.Replace(fingerprint, len(paths), res.Dataset.Samples, res.Dataset.Workouts, res.Dataset.Signals); err != nil {
		log.Warn().Err(err).Msg("Hydrate: failed to refill cache")
		return clipDataset(res.Dataset, window), res.Reports, false, nil
	}

	// 3. Read the window back through the store so hit and miss runs share
	// one read path.
	ds, err := readRange(store, window)
	if err != nil {
		log.Warn().Err(err).Msg("Hydrate: cache read-back failed")
		return clipDataset(res.Dataset, window), res.Reports, false, nil
	}
	return ds, res.Reports, false, nil
}

func readRange(store *samplestore.Store, window ingest.Window) (ingest.Dataset, error) {
	samples, err := store.SamplesInRange(window.Start, window.End)
	if err != nil {
		return ingest.Dataset{}, err
	}
	workouts, err := store.WorkoutsInRange(window.Start, window.End)
	if err != nil {
		return ingest.Dataset{}, err
	}
	signals, err := store.SignalsInRange(window.Start, window.End)
	if err != nil {
		return ingest.Dataset{}, err
	}
	return ingest.Dataset{Samples: samples, Workouts: workouts, Signals: signals}, nil
}

func clipDataset(ds ingest.Dataset, window ingest.Window) ingest.Dataset {
	return ingest.Dataset{
		Samples:  window.ClipSamples(ds.Samples),
		Workouts: window.ClipWorkouts(ds.Workouts),
		Signals:  window.ClipSignals(ds.Signals),
	}
}
