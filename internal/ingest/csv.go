package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hrtriage/internal/incident"
)

// Heart-rate readings outside (0, 300) are sensor noise, not physiology.
const maxPlausibleBPM = 300

// RowStats counts what happened to the rows of one file. Only counts leave
// this layer; dropped rows are never echoed back with their values.
type RowStats struct {
	Rows    int `json:"rows"`
	Kept    int `json:"kept"`
	Dropped int `json:"dropped"`
}

// ReadCSV streams one characterized CSV file into dataset slices. The file
// is read row by row; nothing but the kept rows is held in memory.
func ReadCSV(path string, report *SchemaReport) (Dataset, RowStats, error) {
	var (
		ds    Dataset
		stats RowStats
	)
	if report.Kind == KindUnknown {
		return ds, stats, fmt.Errorf("no schema recognized for %s", filepath.Base(path))
	}
	if report.Kind == KindSamples && !report.Plausible {
		return ds, stats, fmt.Errorf("implausible heart-rate values in %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return ds, stats, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return ds, stats, nil
		}
		return ds, stats, err
	}

	defaultSignal := signalKindFor(filepath.Base(path))

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			stats.Rows++
			stats.Dropped++
			continue
		}
		stats.Rows++

		switch report.Kind {
		case KindSamples:
			if s, ok := sampleFromRow(row, report); ok {
				ds.Samples = append(ds.Samples, s)
				stats.Kept++
			} else {
				stats.Dropped++
			}
		case KindWorkouts:
			if w, ok := workoutFromRow(row, report); ok {
				ds.Workouts = append(ds.Workouts, w)
				stats.Kept++
			} else {
				stats.Dropped++
			}
		case KindSignals:
			if sig, ok := signalFromRow(row, report, defaultSignal); ok {
				ds.Signals = append(ds.Signals, sig)
				stats.Kept++
			} else {
				stats.Dropped++
			}
		case KindRecords:
			if routeRecordRow(row, report, &ds) {
				stats.Kept++
			} else {
				stats.Dropped++
			}
		}
	}
	return ds, stats, nil
}

// sampleFromRow builds one heart-rate sample. Zone-less timestamps become
// UTC; NaN and values outside the plausible band are dropped.
func sampleFromRow(row []string, report *SchemaReport) (incident.Sample, bool) {
	ts, ok := rowTime(row, report)
	if !ok {
		return incident.Sample{}, false
	}
	v, ok := rowFloat(row, report.valueColumn())
	if !ok || math.IsNaN(v) || v <= 0 || v >= maxPlausibleBPM {
		return incident.Sample{}, false
	}
	return incident.Sample{Time: ts, BPM: v}, true
}

// workoutFromRow builds one workout interval. Intervals whose end precedes
// their start are kept: the analyzer rejects them itself and reports how
// many it ignored, and ingestion must not erase that evidence.
func workoutFromRow(row []string, report *SchemaReport) (incident.WorkoutInterval, bool) {
	start, ok := ParseTime(cell(row, report.startIdx))
	if !ok {
		return incident.WorkoutInterval{}, false
	}
	end, ok := ParseTime(cell(row, report.endIdx))
	if !ok {
		return incident.WorkoutInterval{}, false
	}
	wType := strings.ToLower(strings.TrimSpace(cell(row, report.typeIdx)))
	if wType == "" {
		wType = "unknown"
	}
	return incident.WorkoutInterval{Start: start, End: end, Type: wType}, true
}

// signalFromRow builds one activity signal. A zero or negative reading
// carries no exertion evidence and is dropped.
func signalFromRow(row []string, report *SchemaReport, fallback incident.SignalKind) (incident.ActivitySignal, bool) {
	start, end, ok := rowInterval(row, report)
	if !ok {
		return incident.ActivitySignal{}, false
	}
	if v, ok := rowFloat(row, report.valueColumn()); ok && v <= 0 {
		return incident.ActivitySignal{}, false
	}
	kind := signalKindFor(cell(row, report.typeIdx))
	if kind == "" {
		kind = fallback
	}
	if kind == "" {
		return incident.ActivitySignal{}, false
	}
	return incident.ActivitySignal{Start: start, End: end, Kind: kind}, true
}

// routeRecordRow dispatches one row of a mixed record export by its own
// type identifier.
func routeRecordRow(row []string, report *SchemaReport, ds *Dataset) bool {
	ident := strings.TrimSpace(cell(row, report.typeIdx))
	switch {
	case identifierIsHeartRate(ident):
		if s, ok := sampleFromRow(row, report); ok {
			ds.Samples = append(ds.Samples, s)
			return true
		}
	case signalKindFor(ident) != "":
		if sig, ok := signalFromRow(row, report, ""); ok {
			ds.Signals = append(ds.Signals, sig)
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func rowFloat(row []string, idx int) (float64, bool) {
	s := strings.TrimSpace(cell(row, idx))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// rowTime resolves the sample timestamp, falling back to the start column
// for exports that write point samples as degenerate intervals.
func rowTime(row []string, report *SchemaReport) (time.Time, bool) {
	if report.tsIdx >= 0 {
		return ParseTime(cell(row, report.tsIdx))
	}
	return ParseTime(cell(row, report.startIdx))
}

// rowInterval resolves a signal interval, collapsing to an instant when the
// file only carries a single timestamp.
func rowInterval(row []string, report *SchemaReport) (time.Time, time.Time, bool) {
	if report.startIdx >= 0 && report.endIdx >= 0 {
		start, ok := ParseTime(cell(row, report.startIdx))
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		end, ok := ParseTime(cell(row, report.endIdx))
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		if end.Before(start) {
			start, end = end, start
		}
		return start, end, true
	}
	ts, ok := ParseTime(cell(row, report.tsIdx))
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	return ts, ts, true
}
