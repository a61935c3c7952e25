package ingest

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hrtriage/internal/incident"
)

// previewLimit caps how many rows Probe reads when characterizing a file.
const previewLimit = 500

// timeParseFloor is the minimum share of preview values that must parse as
// timestamps before a column is accepted as a time column. Health exports
// are messy; a fifth of the preview is enough to commit.
const timeParseFloor = 0.20

// FileKind classifies what a CSV file contributes to the dataset.
type FileKind string

const (
	// KindSamples is a heart-rate series: one timestamp, one bpm per row.
	KindSamples FileKind = "samples"
	// KindWorkouts is an explicit session log: start, end, type per row.
	KindWorkouts FileKind = "workouts"
	// KindSignals is weak activity evidence: steps, energy, exercise minutes.
	KindSignals FileKind = "signals"
	// KindRecords is a mixed Apple Health record export where each row names
	// its own type identifier and is routed individually.
	KindRecords FileKind = "records"
	// KindUnknown means no heuristic matched; the file is skipped.
	KindUnknown FileKind = "unknown"
)

// ColumnRole is the inferred meaning of one CSV column.
type ColumnRole string

const (
	RoleTimestamp ColumnRole = "timestamp"
	RoleStart     ColumnRole = "start"
	RoleEnd       ColumnRole = "end"
	RoleBPM       ColumnRole = "bpm"
	RoleValue     ColumnRole = "value"
	RoleType      ColumnRole = "type"
	RoleIgnored   ColumnRole = "ignored"
)

// ColumnGuess is the characterization of a single column over the preview.
type ColumnGuess struct {
	Name        string     `json:"name"`
	Role        ColumnRole `json:"role"`
	TimeRate    float64    `json:"timeParseRate"`
	NumericRate float64    `json:"numericParseRate"`
}

// SchemaReport is the result of probing one file. It is both the input to
// the reader and the payload of the schema surfaces, so everything a human
// would want to audit is on the exported fields.
type SchemaReport struct {
	Path        string        `json:"path"`
	Kind        FileKind      `json:"kind"`
	PreviewRows int           `json:"previewRows"`
	Columns     []ColumnGuess `json:"columns"`
	Plausible   bool          `json:"plausible"`
	Notes       []string      `json:"notes,omitempty"`

	// Resolved column indices for the reader. Not serialized.
	tsIdx    int
	startIdx int
	endIdx   int
	bpmIdx   int
	valueIdx int
	typeIdx  int
}

// Keyword sets used to bias column roles. Matching uses normalized
// lower-case names, same as the values they are compared against.
var (
	timestampCandidates = []string{"startdate", "timestamp", "date", "start_time", "creationdate", "time"}
	bpmKeywords         = []string{"bpm", "heart", "pulse", "hr"}
	startKeywords       = []string{"start", "begin"}
	endKeywords         = []string{"end", "stop", "finish"}
	typeKeywords        = []string{"type", "activity", "workout"}
)

// Identifier fragments that mark a value as heart rate or as a weak
// activity signal. HRV streams must never be mistaken for heart rate.
var (
	heartRateIdentifiers = []string{"heartrate", "heart_rate", "heart rate"}
	hrExclusions         = []string{"variability", "hrv", "resting", "recovery", "walkingheartrateaverage"}
)

// signalIdentifiers is ordered so identifier routing stays deterministic.
var signalIdentifiers = []struct {
	kind      incident.SignalKind
	fragments []string
}{
	{incident.SignalSteps, []string{"stepcount", "steps", "step_count"}},
	{incident.SignalEnergy, []string{"activeenergy", "energyburned", "active_energy", "calories"}},
	{incident.SignalExercise, []string{"exercisetime", "exercise_time", "appleexercisetime", "exerciseminutes"}},
}

// timeLayouts are tried in order when parsing a timestamp cell. Apple Health
// exports use the zone-suffixed space layout; most other trackers emit
// RFC3339 or a bare date.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Probe reads up to previewLimit rows of a CSV file and infers what the file
// is and which column plays which role. It never loads the whole file.
func Probe(path string) (*SchemaReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, preview, err := readPreview(f)
	if err != nil {
		return nil, err
	}

	report := &SchemaReport{
		Path:        path,
		PreviewRows: len(preview),
		tsIdx:       -1,
		startIdx:    -1,
		endIdx:      -1,
		bpmIdx:      -1,
		valueIdx:    -1,
		typeIdx:     -1,
	}
	if len(header) == 0 {
		report.Kind = KindUnknown
		report.Notes = append(report.Notes, "empty file")
		return report, nil
	}

	// 1. Characterize every column over the preview.
	names := normalizeHeader(header)
	guesses := make([]ColumnGuess, len(names))
	for i, name := range names {
		guesses[i] = ColumnGuess{
			Name:        name,
			Role:        RoleIgnored,
			TimeRate:    columnTimeRate(preview, i),
			NumericRate: columnNumericRate(preview, i),
		}
	}

	// 2. Assign time roles. Paired start/end columns outrank a lone
	// timestamp because interval files also carry a creation date.
	startIdx := pickColumn(guesses, startKeywords, timeParseFloor)
	endIdx := pickColumn(guesses, endKeywords, timeParseFloor)
	if startIdx >= 0 && endIdx >= 0 && startIdx != endIdx {
		guesses[startIdx].Role = RoleStart
		guesses[endIdx].Role = RoleEnd
		report.startIdx, report.endIdx = startIdx, endIdx
	} else if tsIdx := pickTimestamp(names, guesses); tsIdx >= 0 {
		guesses[tsIdx].Role = RoleTimestamp
		report.tsIdx = tsIdx
	}

	// 3. Assign the type column, if any.
	if typeIdx := pickColumn(guesses, typeKeywords, -1); typeIdx >= 0 && guesses[typeIdx].TimeRate < timeParseFloor {
		guesses[typeIdx].Role = RoleType
		report.typeIdx = typeIdx
	}

	// 4. Assign the value column: bpm keywords first, generic "value" as
	// the fallback, highest numeric density as the last resort.
	if bpmIdx := pickNumericColumn(guesses, bpmKeywords); bpmIdx >= 0 {
		guesses[bpmIdx].Role = RoleBPM
		report.bpmIdx = bpmIdx
	} else if valIdx := pickNumericColumn(guesses, []string{"value", "count", "qty", "quantity"}); valIdx >= 0 {
		guesses[valIdx].Role = RoleValue
		report.valueIdx = valIdx
	}

	report.Columns = guesses

	// 5. Decide the file kind from roles, row content, and the filename.
	report.Kind = decideKind(report, names, preview)

	// 6. Sanity-check heart-rate magnitudes on the preview so a cadence or
	// power column cannot masquerade as heart rate.
	report.Plausible = true
	if report.Kind == KindSamples {
		values := previewValues(preview, report.valueColumn())
		if !plausibleHeartRate(values) {
			report.Plausible = false
			report.Notes = append(report.Notes, "values out of heart-rate range in preview")
		}
	}

	return report, nil
}

// ProbeDir probes every source file under root without loading any of them.
// FIT recordings carry their schema in the container, so they get a fixed
// report; a CSV that cannot be opened is reported as unknown with the error
// as a note instead of failing the whole probe.
func ProbeDir(root string) ([]*SchemaReport, error) {
	paths, err := Scan(root)
	if err != nil {
		return nil, err
	}
	reports := make([]*SchemaReport, 0, len(paths))
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ".fit") {
			reports = append(reports, &SchemaReport{
				Path:      path,
				Kind:      KindSamples,
				Plausible: true,
				Notes:     []string{"fit recording, fixed schema"},
			})
			continue
		}
		report, err := Probe(path)
		if err != nil {
			report = &SchemaReport{
				Path:  path,
				Kind:  KindUnknown,
				Notes: []string{err.Error()},
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// valueColumn returns whichever column carries the numeric reading.
func (r *SchemaReport) valueColumn() int {
	if r.bpmIdx >= 0 {
		return r.bpmIdx
	}
	return r.valueIdx
}

func readPreview(f *os.File) ([]string, [][]string, error) {
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var preview [][]string
	for len(preview) < previewLimit {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A ragged row mid-preview is characterization data, not a
			// reason to reject the file.
			continue
		}
		preview = append(preview, row)
	}
	return header, preview, nil
}

func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return names
}

func columnTimeRate(preview [][]string, idx int) float64 {
	total, parsed := 0, 0
	for _, row := range preview {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			continue
		}
		total++
		if _, ok := ParseTime(row[idx]); ok {
			parsed++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(parsed) / float64(total)
}

func columnNumericRate(preview [][]string, idx int) float64 {
	total, parsed := 0, 0
	for _, row := range preview {
		if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
			continue
		}
		total++
		if _, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64); err == nil {
			parsed++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(parsed) / float64(total)
}

// pickColumn returns the first column whose name contains any keyword and,
// when minTimeRate is non-negative, whose preview parses as timestamps at
// that rate or better.
func pickColumn(guesses []ColumnGuess, keywords []string, minTimeRate float64) int {
	for i, g := range guesses {
		if g.Role != RoleIgnored {
			continue
		}
		if !matchesAny(g.Name, keywords) {
			continue
		}
		if minTimeRate >= 0 && g.TimeRate < minTimeRate {
			continue
		}
		return i
	}
	return -1
}

// pickTimestamp walks the candidate names in priority order, then falls back
// to any column that parses as time often enough.
func pickTimestamp(names []string, guesses []ColumnGuess) int {
	for _, candidate := range timestampCandidates {
		for i, name := range names {
			if guesses[i].Role != RoleIgnored {
				continue
			}
			if name == candidate && guesses[i].TimeRate >= timeParseFloor {
				return i
			}
		}
	}
	for i, g := range guesses {
		if g.Role == RoleIgnored && g.TimeRate >= timeParseFloor {
			return i
		}
	}
	return -1
}

func pickNumericColumn(guesses []ColumnGuess, keywords []string) int {
	best, bestRate := -1, 0.0
	for i, g := range guesses {
		if g.Role != RoleIgnored || g.TimeRate >= timeParseFloor {
			continue
		}
		if !matchesAny(g.Name, keywords) {
			continue
		}
		if g.NumericRate > bestRate {
			best, bestRate = i, g.NumericRate
		}
	}
	if bestRate < 0.5 {
		return -1
	}
	return best
}

func decideKind(report *SchemaReport, names []string, preview [][]string) FileKind {
	base := strings.ToLower(filepath.Base(report.Path))

	// Interval files: a start/end pair plus a type column is a workout log;
	// a start/end pair with a numeric value and a signal-flavored name is
	// an activity signal file.
	if report.startIdx >= 0 && report.endIdx >= 0 {
		if _, ok := signalKindForName(base); ok {
			return KindSignals
		}
		if report.typeIdx >= 0 {
			if routed := typeColumnRouting(preview, report.typeIdx); routed != KindUnknown {
				return routed
			}
			return KindWorkouts
		}
		if matchesAny(base, []string{"workout", "session", "training"}) {
			return KindWorkouts
		}
		if report.valueColumn() >= 0 {
			if identifierIsHeartRate(base) {
				return KindSamples
			}
			report.Notes = append(report.Notes, "interval file with unrecognized value column")
			return KindUnknown
		}
		return KindWorkouts
	}

	// Point files need a timestamp and a reading.
	if report.tsIdx < 0 || report.valueColumn() < 0 {
		return KindUnknown
	}
	if report.typeIdx >= 0 {
		if routed := typeColumnRouting(preview, report.typeIdx); routed != KindUnknown {
			return routed
		}
	}
	// HRV, resting rate, and recovery streams share vocabulary with heart
	// rate and pass magnitude checks. The name alone disqualifies them.
	if matchesAny(base, hrExclusions) {
		report.Notes = append(report.Notes, "adjacent heart-rate stream excluded by name")
		return KindUnknown
	}
	if identifierIsHeartRate(base) || report.bpmIdx >= 0 {
		return KindSamples
	}
	if _, ok := signalKindForName(base); ok {
		return KindSignals
	}
	return KindSamples
}

// typeColumnRouting inspects the distinct values of a type column. A file
// whose rows carry per-row HealthKit identifiers is routed row by row.
func typeColumnRouting(preview [][]string, typeIdx int) FileKind {
	hr, signal := 0, 0
	for _, row := range preview {
		if typeIdx >= len(row) {
			continue
		}
		ident := strings.ToLower(strings.TrimSpace(row[typeIdx]))
		switch {
		case ident == "":
		case identifierIsHeartRate(ident):
			hr++
		case signalKindFor(ident) != "":
			signal++
		}
	}
	if hr == 0 && signal == 0 {
		return KindUnknown
	}
	return KindRecords
}

// identifierIsHeartRate matches heart-rate identifiers while rejecting the
// adjacent streams (variability, resting, recovery) that share the words.
func identifierIsHeartRate(ident string) bool {
	ident = strings.ToLower(ident)
	if matchesAny(ident, hrExclusions) {
		return false
	}
	if matchesAny(ident, heartRateIdentifiers) {
		return true
	}
	return strings.Contains(ident, "heart") && strings.Contains(ident, "rate")
}

// signalKindFor maps a type identifier to the activity-signal kind it
// represents, or "" when it is not a signal.
func signalKindFor(ident string) incident.SignalKind {
	ident = strings.ToLower(ident)
	for _, entry := range signalIdentifiers {
		if matchesAny(ident, entry.fragments) {
			return entry.kind
		}
	}
	return ""
}

func signalKindForName(name string) (incident.SignalKind, bool) {
	kind := signalKindFor(name)
	return kind, kind != ""
}

func matchesAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// plausibleHeartRate applies the magnitude gate: the preview passes when its
// extremes sit in physiological range, or failing that, when the median does.
func plausibleHeartRate(values []float64) bool {
	if len(values) == 0 {
		return false
	}
	minV, maxV := values[0], values[0]
	for _, v := range values[1:] {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	if minV >= 20 && minV <= 260 && maxV >= 40 && maxV <= 260 {
		return true
	}
	med := incident.Median(values)
	return med >= 60 && med <= 180
}

func previewValues(preview [][]string, idx int) []float64 {
	if idx < 0 {
		return nil
	}
	values := make([]float64, 0, len(preview))
	for _, row := range preview {
		if idx >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// ParseTime parses one timestamp cell. Layouts are tried in order, then
// bare epoch seconds or milliseconds. Zone-less values are taken as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		switch {
		case len(s) == 13:
			return time.UnixMilli(n).UTC(), true
		case len(s) == 10:
			return time.Unix(n, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
