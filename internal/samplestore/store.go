// Package samplestore caches the canonical dataset in SQLite so repeated
// analyses skip re-parsing hundreds of megabytes of exports. The database
// holds exactly one dataset at a time, identified by a source fingerprint;
// when the exports change, the whole dataset is replaced.
package samplestore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"hrtriage/internal/incident"
)

// Store manages all SQLite operations. WAL mode keeps reads cheap while a
// replace transaction is in flight.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database and initializes the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Timestamps are stored as UnixNano integers: they sort correctly in SQL,
// which RFC3339 strings with mixed fractional precision do not.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dataset (
		fingerprint TEXT PRIMARY KEY,
		created_at  TEXT NOT NULL,
		files       INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS samples (
		id  INTEGER PRIMARY KEY AUTOINCREMENT,
		ts  INTEGER NOT NULL,
		bpm REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);

	CREATE TABLE IF NOT EXISTS workouts (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		start_ts INTEGER NOT NULL,
		end_ts   INTEGER NOT NULL,
		type     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_workouts_start ON workouts(start_ts);

	CREATE TABLE IF NOT EXISTS signals (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		start_ts INTEGER NOT NULL,
		end_ts   INTEGER NOT NULL,
		kind     TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signals_start ON signals(start_ts);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DatasetInfo describes the cached dataset.
type DatasetInfo struct {
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"createdAt"`
	Files       int       `json:"files"`
	Samples     int       `json:"samples"`
	Workouts    int       `json:"workouts"`
	Signals     int       `json:"signals"`
}

// Info returns the cached dataset's identity, or nil when the cache is empty.
func (s *Store) Info() (*DatasetInfo, error) {
	var info DatasetInfo
	var createdStr string
	err := s.db.QueryRow(
		`SELECT fingerprint, created_at, files FROM dataset LIMIT 1`,
	).Scan(&info.Fingerprint, &createdStr, &info.Files)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return nil, fmt.Errorf("parse dataset created_at: %w", err)
	}

	counts := []struct {
		table string
		dest  *int
	}{
		{"samples", &info.Samples},
		{"workouts", &info.Workouts},
		{"signals", &info.Signals},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + c.table).Scan(c.dest); err != nil {
			return nil, err
		}
	}
	return &info, nil
}

// Replace swaps the cached dataset for a new one in a single transaction.
// Sample insertion order is preserved so that same-timestamp readings come
// back in the order ingestion merged them.
func (s *Store) Replace(fingerprint string, files int, samples []incident.Sample, workouts []incident.WorkoutInterval, signals []incident.ActivitySignal) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"dataset", "samples", "workouts", "signals"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(
		`INSERT INTO dataset (fingerprint, created_at, files) VALUES (?, ?, ?)`,
		fingerprint, now, files,
	); err != nil {
		return err
	}

	sampleStmt, err := tx.Prepare(`INSERT INTO samples (ts, bpm) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer sampleStmt.Close()
	for _, sm := range samples {
		if _, err := sampleStmt.Exec(sm.Time.UnixNano(), sm.BPM); err != nil {
			return err
		}
	}

	workoutStmt, err := tx.Prepare(`INSERT INTO workouts (start_ts, end_ts, type) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer workoutStmt.Close()
	for _, w := range workouts {
		if _, err := workoutStmt.Exec(w.Start.UnixNano(), w.End.UnixNano(), w.Type); err != nil {
			return err
		}
	}

	signalStmt, err := tx.Prepare(`INSERT INTO signals (start_ts, end_ts, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer signalStmt.Close()
	for _, sig := range signals {
		if _, err := signalStmt.Exec(sig.Start.UnixNano(), sig.End.UnixNano(), string(sig.Kind)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SamplesInRange returns the samples with timestamps in [from, to], in
// chronological order. Ties keep insertion order, so the series satisfies
// the analyzer's ordering contract by construction.
func (s *Store) SamplesInRange(from, to time.Time) ([]incident.Sample, error) {
	rows, err := s.db.Query(
		`SELECT ts, bpm FROM samples WHERE ts >= ? AND ts <= ? ORDER BY ts, id`,
		from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []incident.Sample
	for rows.Next() {
		var ts int64
		var bpm float64
		if err := rows.Scan(&ts, &bpm); err != nil {
			return nil, err
		}
		samples = append(samples, incident.Sample{Time: time.Unix(0, ts).UTC(), BPM: bpm})
	}
	return samples, rows.Err()
}

// WorkoutsInRange returns every workout whose span touches [from, to].
// Malformed intervals are compared on their swapped span so they stay
// visible to the analyzer's accounting.
func (s *Store) WorkoutsInRange(from, to time.Time) ([]incident.WorkoutInterval, error) {
	rows, err := s.db.Query(
		`SELECT start_ts, end_ts, type FROM workouts
		 WHERE MAX(start_ts, end_ts) >= ? AND MIN(start_ts, end_ts) <= ?
		 ORDER BY start_ts, end_ts, type`,
		from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []incident.WorkoutInterval
	for rows.Next() {
		var start, end int64
		var wType string
		if err := rows.Scan(&start, &end, &wType); err != nil {
			return nil, err
		}
		workouts = append(workouts, incident.WorkoutInterval{
			Start: time.Unix(0, start).UTC(),
			End:   time.Unix(0, end).UTC(),
			Type:  wType,
		})
	}
	return workouts, rows.Err()
}

// SignalsInRange returns every activity signal whose span touches [from, to].
func (s *Store) SignalsInRange(from, to time.Time) ([]incident.ActivitySignal, error) {
	rows, err := s.db.Query(
		`SELECT start_ts, end_ts, kind FROM signals
		 WHERE end_ts >= ? AND start_ts <= ?
		 ORDER BY start_ts, end_ts, kind`,
		from.UnixNano(), to.UnixNano(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []incident.ActivitySignal
	for rows.Next() {
		var start, end int64
		var kind string
		if err := rows.Scan(&start, &end, &kind); err != nil {
			return nil, err
		}
		signals = append(signals, incident.ActivitySignal{
			Start: time.Unix(0, start).UTC(),
			End:   time.Unix(0, end).UTC(),
			Kind:  incident.SignalKind(kind),
		})
	}
	return signals, rows.Err()
}
