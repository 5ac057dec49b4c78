// Package history records runs and their per-generation statistics in a
// SQLite database.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("linear_gp.history")

// ErrUnknownRun is returned when recording against a run that was never
// started.
var ErrUnknownRun = errors.New("history: unknown run")

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// GenerationRow is one task's statistics for one generation.
type GenerationRow struct {
	Generation int     `json:"generation"`
	Task       string  `json:"task"`
	Count      int     `json:"count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Average    float64 `json:"average"`
	BestID     uint64  `json:"best_id"`
}

// Run is a recorded run.
type Run struct {
	ID      string
	Started time.Time
	Config  string // JSON as passed to StartRun
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs(
			id TEXT PRIMARY KEY,
			started REAL NOT NULL,
			config TEXT NOT NULL
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS generations(
			run TEXT NOT NULL REFERENCES runs(id),
			generation INTEGER NOT NULL,
			task TEXT NOT NULL,
			count INTEGER NOT NULL,
			min REAL NOT NULL,
			max REAL NOT NULL,
			average REAL NOT NULL,
			best_id INTEGER NOT NULL,
			PRIMARY KEY(run, generation, task)
		)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating generations table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new run with config serialized as JSON and returns its id.
func (s *Store) StartRun(config any) (string, error) {
	cfg, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("encoding run config: %w", err)
	}
	id := uuid.New().String()
	_, err = s.db.Exec("INSERT INTO runs(id, started, config) VALUES(?,?,?)",
		id, float64(time.Now().UnixMilli())/1000.0, string(cfg))
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	log.Debugf("started run %s", id)
	return id, nil
}

// Runs returns every recorded run, oldest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query("SELECT id, started, config FROM runs ORDER BY started, id")
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		var r Run
		var started float64
		if err := rows.Scan(&r.ID, &started, &r.Config); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started = time.UnixMilli(int64(started * 1000))
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *Store) hasRun(run string) (bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", run).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up run: %w", err)
	}
	return n > 0, nil
}

// RecordGeneration stores row under run, replacing any earlier row for the
// same generation and task.
func (s *Store) RecordGeneration(run string, row GenerationRow) error {
	ok, err := s.hasRun(run)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRun, run)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO generations(run, generation, task, count, min, max, average, best_id)
		VALUES(?,?,?,?,?,?,?,?)`,
		run, row.Generation, row.Task, row.Count, row.Min, row.Max, row.Average, int64(row.BestID))
	if err != nil {
		return fmt.Errorf("inserting generation %d: %w", row.Generation, err)
	}
	return nil
}

// Generations returns run's rows ordered by generation then task.
func (s *Store) Generations(run string) ([]GenerationRow, error) {
	rows, err := s.db.Query(`SELECT generation, task, count, min, max, average, best_id
		FROM generations WHERE run = ? ORDER BY generation, task`, run)
	if err != nil {
		return nil, fmt.Errorf("querying generations: %w", err)
	}
	defer rows.Close()
	var out []GenerationRow
	for rows.Next() {
		var g GenerationRow
		var best int64
		if err := rows.Scan(&g.Generation, &g.Task, &g.Count, &g.Min, &g.Max, &g.Average, &best); err != nil {
			return nil, fmt.Errorf("scanning generation: %w", err)
		}
		g.BestID = uint64(best)
		out = append(out, g)
	}
	return out, rows.Err()
}
