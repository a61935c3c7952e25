// Package engine generates synthetic heart-rate archives for demos and test
// fixtures. Output matches the Apple Health export shape: a merged export.csv
// of heart-rate and step records plus a workouts.csv session log. The same
// seed always reproduces the same archive.
package engine

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// GeneratorConfig controls the shape of a generated archive.
type GeneratorConfig struct {
	Scenario string
	Days     int
	Seed     int64
	// End marks the exclusive upper bound of the archive, snapped back to
	// midnight UTC. Zero means now.
	End time.Time
}

// Sample is one generated heart-rate reading.
type Sample struct {
	Time time.Time
	BPM  float64
}

// StepInterval is a step-count record covering a span of time.
type StepInterval struct {
	Start time.Time
	End   time.Time
	Count int
}

// Workout is one logged exercise session.
type Workout struct {
	Start time.Time
	End   time.Time
	Type  string
}

// Archive holds everything Generate produced, sorted chronologically.
type Archive struct {
	Samples  []Sample
	Steps    []StepInterval
	Workouts []Workout
}

// session is a contiguous elevated period inside one day. A session with a
// kind becomes a logged workout; one without is a bare spike. A non-zero cap
// bounds every reading in the session.
type session struct {
	start time.Time
	end   time.Time
	peak  float64
	cap   float64
	kind  string
	steps bool
}

// Generate builds a synthetic archive for the configured scenario.
//
// quiet days stay below 140 bpm apart from gentle logged walks. active days
// carry one hard workout each, with the elevated readings fully inside the
// logged span. spiky days mix a calm baseline with short unexplained
// excursions, some trailed by step bursts that look like unlogged exercise.
func Generate(cfg GeneratorConfig) (*Archive, error) {
	switch cfg.Scenario {
	case "quiet", "active", "spiky":
	default:
		return nil, fmt.Errorf("unknown scenario %q (want quiet, active, or spiky)", cfg.Scenario)
	}
	if cfg.Days <= 0 {
		cfg.Days = 30
	}
	if cfg.End.IsZero() {
		cfg.End = time.Now()
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	end := cfg.End.UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -cfg.Days)

	archive := &Archive{}
	for day := 0; day < cfg.Days; day++ {
		dayStart := start.AddDate(0, 0, day)
		sessions := sessionsForDay(r, cfg.Scenario, day, dayStart)
		for _, s := range sessions {
			emitSession(r, s, archive)
		}
		fillDay(r, dayStart, sessions, archive)
	}

	sortArchive(archive)
	return archive, nil
}

func sessionsForDay(r *rand.Rand, scenario string, day int, dayStart time.Time) []session {
	var sessions []session
	switch scenario {
	case "quiet":
		// An easy walk every third day, never enough to cross 140.
		if day%3 == 0 {
			start := dayStart.Add(10*time.Hour + time.Duration(r.Intn(60))*time.Minute)
			sessions = append(sessions, session{
				start: start,
				end:   start.Add(time.Duration(25+r.Intn(15)) * time.Minute),
				peak:  110 + r.Float64()*10,
				cap:   135,
				kind:  "Walking",
				steps: true,
			})
		}
	case "active":
		hour := 7
		if day%2 == 1 {
			hour = 18
		}
		kind := [...]string{"Running", "Cycling", "HIIT"}[day%3]
		start := dayStart.Add(time.Duration(hour)*time.Hour + time.Duration(r.Intn(40))*time.Minute)
		sessions = append(sessions, session{
			start: start,
			end:   start.Add(time.Duration(30+r.Intn(21)) * time.Minute),
			peak:  155 + r.Float64()*20,
			kind:  kind,
			steps: kind != "Cycling",
		})
	case "spiky":
		// A genuine logged run once a week so the archive is not all noise.
		if day%7 == 6 {
			start := dayStart.Add(9*time.Hour + time.Duration(r.Intn(60))*time.Minute)
			sessions = append(sessions, session{
				start: start,
				end:   start.Add(time.Duration(30+r.Intn(15)) * time.Minute),
				peak:  150 + r.Float64()*15,
				kind:  "Running",
				steps: true,
			})
		}
		for n := 1 + r.Intn(3); n > 0; n-- {
			start := dayStart.Add(8*time.Hour + time.Duration(r.Int63n(int64(14*time.Hour))))
			sessions = append(sessions, session{
				start: start,
				end:   start.Add(time.Duration(60+r.Intn(180)) * time.Second),
				peak:  150 + r.Float64()*30,
				steps: r.Float64() < 0.4,
			})
		}
	}
	return separate(sessions, dayStart.Add(24*time.Hour))
}

// separate sorts the day's sessions and pushes each one behind its
// predecessor so no two elevated periods overlap. A session pushed past the
// end of the day is dropped.
func separate(sessions []session, dayEnd time.Time) []session {
	slices.SortFunc(sessions, func(a, b session) int { return a.start.Compare(b.start) })
	kept := sessions[:0]
	var prevEnd time.Time
	for _, s := range sessions {
		if !prevEnd.IsZero() && s.start.Before(prevEnd.Add(10*time.Minute)) {
			shift := prevEnd.Add(10 * time.Minute).Sub(s.start)
			s.start = s.start.Add(shift)
			s.end = s.end.Add(shift)
		}
		if s.end.After(dayEnd) {
			continue
		}
		kept = append(kept, s)
		prevEnd = s.end
	}
	return kept
}

// emitSession writes the dense 15-second readings of one elevated period,
// plus the step and workout records that go with it.
func emitSession(r *rand.Rand, s session, archive *Archive) {
	total := s.end.Sub(s.start).Seconds()
	for off := 0.0; off <= total; off += 15 {
		t := s.start.Add(time.Duration(off) * time.Second)
		bpm := sessionBPM(r, s.peak, off, total)
		if s.cap > 0 && bpm > s.cap {
			bpm = s.cap
		}
		archive.Samples = append(archive.Samples, Sample{Time: t, BPM: bpm})
	}
	switch {
	case s.kind != "" && s.steps:
		cadence := 110 + r.Intn(60)
		for t := s.start; t.Before(s.end); t = t.Add(10 * time.Minute) {
			intervalEnd := t.Add(10 * time.Minute)
			if intervalEnd.After(s.end) {
				intervalEnd = s.end
			}
			minutes := intervalEnd.Sub(t).Minutes()
			archive.Steps = append(archive.Steps, StepInterval{Start: t, End: intervalEnd, Count: int(minutes * float64(cadence))})
		}
	case s.kind == "" && s.steps:
		// A burst of movement around the spike, enough to look like
		// unlogged exercise.
		archive.Steps = append(archive.Steps, StepInterval{
			Start: s.start.Add(-4 * time.Minute),
			End:   s.end,
			Count: 250 + r.Intn(350),
		})
	}
	if s.kind != "" {
		archive.Workouts = append(archive.Workouts, Workout{Start: s.start, End: s.end, Type: s.kind})
	}
}

// fillDay lays down the resting baseline at a 5-minute cadence around the
// day's sessions, plus scattered everyday step intervals.
func fillDay(r *rand.Rand, dayStart time.Time, sessions []session, archive *Archive) {
	dayEnd := dayStart.Add(24 * time.Hour)
	for t := dayStart; t.Before(dayEnd); t = t.Add(5 * time.Minute) {
		if inSession(t, sessions) {
			continue
		}
		archive.Samples = append(archive.Samples, Sample{Time: t, BPM: restingBPM(r, t)})
	}
	for hour := 9; hour <= 21; hour++ {
		if r.Float64() > 0.5 {
			continue
		}
		start := dayStart.Add(time.Duration(hour)*time.Hour + time.Duration(r.Intn(50))*time.Minute)
		end := start.Add(10 * time.Minute)
		if touchesSession(start, end, sessions) {
			continue
		}
		archive.Steps = append(archive.Steps, StepInterval{Start: start, End: end, Count: 80 + r.Intn(420)})
	}
}

// restingBPM follows a gentle circadian curve: lowest in the small hours,
// peaking mid-afternoon.
func restingBPM(r *rand.Rand, t time.Time) float64 {
	hour := float64(t.Hour()) + float64(t.Minute())/60
	phase := (hour - 15) / 24 * 2 * math.Pi
	return math.Round(62 + 7*math.Cos(phase) + r.NormFloat64()*2.5)
}

// sessionBPM ramps through the warmup, oscillates around the session peak,
// and winds down near the end.
func sessionBPM(r *rand.Rand, peak, off, total float64) float64 {
	level := peak
	switch progress := off / total; {
	case progress < 0.2:
		level = peak * (0.75 + 0.25*progress/0.2)
	case progress > 0.85:
		level = peak * (1 - 0.2*(progress-0.85)/0.15)
	}
	return math.Round(level + 6*math.Sin(off/45) + r.NormFloat64()*3)
}

func inSession(t time.Time, sessions []session) bool {
	for _, s := range sessions {
		if !t.Before(s.start) && !t.After(s.end) {
			return true
		}
	}
	return false
}

func touchesSession(start, end time.Time, sessions []session) bool {
	for _, s := range sessions {
		if !start.After(s.end) && !s.start.After(end) {
			return true
		}
	}
	return false
}

func sortArchive(a *Archive) {
	slices.SortFunc(a.Samples, func(x, y Sample) int { return x.Time.Compare(y.Time) })
	slices.SortFunc(a.Steps, func(x, y StepInterval) int { return x.Start.Compare(y.Start) })
	slices.SortFunc(a.Workouts, func(x, y Workout) int { return x.Start.Compare(y.Start) })
}

const timeLayout = "2006-01-02 15:04:05 -0700"

// Save writes the archive as export.csv and workouts.csv under outDir,
// creating the directory if needed.
func Save(outDir string, a *Archive) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	if err := writeExport(filepath.Join(outDir, "export.csv"), a); err != nil {
		return err
	}
	return writeWorkouts(filepath.Join(outDir, "workouts.csv"), a.Workouts)
}

func writeExport(path string, a *Archive) error {
	type record struct {
		ident string
		start time.Time
		end   time.Time
		value string
	}
	records := make([]record, 0, len(a.Samples)+len(a.Steps))
	for _, s := range a.Samples {
		records = append(records, record{
			ident: "HKQuantityTypeIdentifierHeartRate",
			start: s.Time,
			end:   s.Time,
			value: strconv.FormatFloat(s.BPM, 'f', -1, 64),
		})
	}
	for _, st := range a.Steps {
		records = append(records, record{
			ident: "HKQuantityTypeIdentifierStepCount",
			start: st.Start,
			end:   st.End,
			value: strconv.Itoa(st.Count),
		})
	}
	slices.SortStableFunc(records, func(x, y record) int {
		if c := x.start.Compare(y.start); c != 0 {
			return c
		}
		return strings.Compare(x.ident, y.ident)
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"type", "startDate", "endDate", "value"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{rec.ident, rec.start.Format(timeLayout), rec.end.Format(timeLayout), rec.value}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeWorkouts(path string, workouts []Workout) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"start", "end", "type"}); err != nil {
		return err
	}
	for _, wo := range workouts {
		row := []string{wo.Start.Format(timeLayout), wo.End.Format(timeLayout), wo.Type}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
