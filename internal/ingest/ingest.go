// Package ingest turns heterogeneous health exports into one canonical
// dataset. CSV files are characterized by heuristics before anything is
// parsed in full; .fit recordings are decoded directly. Files that cannot
// be understood are reported and skipped, never guessed at.
package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"hrtriage/internal/incident"
)

// loadConcurrency bounds how many files are parsed at once.
const loadConcurrency = 4

// Dataset is the merged, window-clipped input to an analysis run.
type Dataset struct {
	Samples  []incident.Sample
	Workouts []incident.WorkoutInterval
	Signals  []incident.ActivitySignal
}

// FileReport records what one source file contributed. Values never appear
// here, only counts; the report is safe to log and to return over MCP.
type FileReport struct {
	Path     string   `json:"path"`
	Kind     FileKind `json:"kind"`
	Rows     int      `json:"rows"`
	Kept     int      `json:"kept"`
	Dropped  int      `json:"dropped"`
	Samples  int      `json:"samples"`
	Workouts int      `json:"workouts"`
	Signals  int      `json:"signals"`
	Error    string   `json:"error,omitempty"`
}

// Result is a finished ingestion: the dataset plus the per-file audit trail.
type Result struct {
	Dataset Dataset      `json:"-"`
	Window  Window       `json:"window"`
	Reports []FileReport `json:"reports"`
}

// Scan lists every .csv and .fit file under root, recursively, in lexical
// walk order.
func Scan(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv", ".fit":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// LoadDir ingests every .csv and .fit file under dir, recursively.
func LoadDir(ctx context.Context, dir string, window Window) (*Result, error) {
	paths, err := Scan(dir)
	if err != nil {
		return nil, err
	}
	return Load(ctx, paths, window)
}

// Load ingests the given files concurrently and merges their contributions
// into one chronologically ordered dataset.
//
// A file that fails to parse is recorded in its report and skipped; partial
// data beats no data when triaging months of exports. Only walking or
// context cancellation aborts the whole load.
func Load(ctx context.Context, paths []string, window Window) (*Result, error) {
	var (
		mu      sync.Mutex
		merged  Dataset
		reports []FileReport
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds, report := loadFile(path)

			mu.Lock()
			defer mu.Unlock()
			merged.append(ds)
			reports = append(reports, report)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(reports, func(a, b FileReport) int {
		return strings.Compare(a.Path, b.Path)
	})

	// Merging independent files has no inherent order, so the combined
	// sample series is sorted here, explicitly, as part of ingestion. The
	// analyzer itself still refuses unsorted input.
	merged.sortChronological()
	merged = merged.clip(window)

	log.Info().
		Int("files", len(reports)).
		Int("samples", len(merged.Samples)).
		Int("workouts", len(merged.Workouts)).
		Int("signals", len(merged.Signals)).
		Time("windowStart", window.Start).
		Time("windowEnd", window.End).
		Msg("Ingestion complete")

	return &Result{Dataset: merged, Window: window, Reports: reports}, nil
}

func loadFile(path string) (Dataset, FileReport) {
	report := FileReport{Path: path, Kind: KindUnknown}

	var (
		ds    Dataset
		stats RowStats
		err   error
	)
	if strings.EqualFold(filepath.Ext(path), ".fit") {
		report.Kind = KindSamples
		ds, stats, err = ReadFIT(path)
	} else {
		var schema *SchemaReport
		schema, err = Probe(path)
		if err == nil {
			report.Kind = schema.Kind
			ds, stats, err = ReadCSV(path, schema)
		}
	}

	report.Rows = stats.Rows
	report.Kept = stats.Kept
	report.Dropped = stats.Dropped
	report.Samples = len(ds.Samples)
	report.Workouts = len(ds.Workouts)
	report.Signals = len(ds.Signals)

	if err != nil {
		report.Error = err.Error()
		log.Warn().Str("path", path).Err(err).Msg("Skipping unreadable file")
		return Dataset{}, report
	}

	log.Debug().
		Str("path", path).
		Str("kind", string(report.Kind)).
		Int("rows", stats.Rows).
		Int("dropped", stats.Dropped).
		Msg("Loaded file")
	return ds, report
}

func (d *Dataset) append(other Dataset) {
	d.Samples = append(d.Samples, other.Samples...)
	d.Workouts = append(d.Workouts, other.Workouts...)
	d.Signals = append(d.Signals, other.Signals...)
}

// sortChronological orders every slice by time. The sort is stable so that
// same-timestamp samples keep their file order.
func (d *Dataset) sortChronological() {
	slices.SortStableFunc(d.Samples, func(a, b incident.Sample) int {
		return a.Time.Compare(b.Time)
	})
	slices.SortStableFunc(d.Workouts, func(a, b incident.WorkoutInterval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := a.End.Compare(b.End); c != 0 {
			return c
		}
		return strings.Compare(a.Type, b.Type)
	})
	slices.SortStableFunc(d.Signals, func(a, b incident.ActivitySignal) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if c := a.End.Compare(b.End); c != 0 {
			return c
		}
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
}

func (d Dataset) clip(window Window) Dataset {
	return Dataset{
		Samples:  window.ClipSamples(d.Samples),
		Workouts: window.ClipWorkouts(d.Workouts),
		Signals:  window.ClipSignals(d.Signals),
	}
}
