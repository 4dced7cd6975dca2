/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: history.go
Description: Sqlite run-history store for the Akira ABC-SMC sampler. Records
every iteration's summary row and full particle set so finished runs can be
inspected and plotted without re-running the sampler. Optional: a nil store
disables history entirely.
*/

package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kleascm/akira-abc/pkg/population"

	_ "modernc.org/sqlite"
)

// Table names for the run-history schema.
const (
	TblRuns       = "runs"
	TblIterations = "iterations"
	TblParticles  = "particles"
)

// Store persists per-iteration sampler state to an sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path. Use
// ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblRuns + " (id TEXT PRIMARY KEY, started_at TEXT, particle_count INTEGER, iteration_budget INTEGER)",
		"CREATE TABLE IF NOT EXISTS " + TblIterations + " (run_id TEXT, iter INTEGER, tolerance REAL, accept_ratio REAL, ess REAL, means TEXT)",
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (run_id TEXT, iter INTEGER, idx INTEGER, weight REAL, distance REAL, params TEXT)",
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init history schema: %w", err)
		}
	}
	return nil
}

// RecordRun registers a run before its first iteration.
func (s *Store) RecordRun(runID string, particleCount, iterationBudget int) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO "+TblRuns+" (id, started_at, particle_count, iteration_budget) VALUES (?, ?, ?, ?)",
		runID, time.Now().UTC().Format(time.RFC3339), particleCount, iterationBudget,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecordIteration stores one iteration's summary row plus all of its
// particles inside a single transaction.
func (s *Store) RecordIteration(runID string, pop *population.Population, means []float64, ess float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin history tx: %w", err)
	}
	defer tx.Rollback()

	meansJSON, err := json.Marshal(means)
	if err != nil {
		return fmt.Errorf("failed to encode means: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO "+TblIterations+" (run_id, iter, tolerance, accept_ratio, ess, means) VALUES (?, ?, ?, ?, ?, ?)",
		runID, pop.Iteration, pop.Tolerance, pop.AcceptRatio, ess, string(meansJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record iteration: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO " + TblParticles + " (run_id, iter, idx, weight, distance, params) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare particle insert: %w", err)
	}
	defer stmt.Close()
	for i, pt := range pop.Particles {
		paramsJSON, err := json.Marshal(pt.Params)
		if err != nil {
			return fmt.Errorf("failed to encode params: %w", err)
		}
		if _, err := stmt.Exec(runID, pop.Iteration, i, pt.Weight, pt.Distance, string(paramsJSON)); err != nil {
			return fmt.Errorf("failed to record particle: %w", err)
		}
	}
	return tx.Commit()
}

// IterationCount returns the number of recorded iterations for a run.
func (s *Store) IterationCount(runID string) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM "+TblIterations+" WHERE run_id = ?", runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count iterations: %w", err)
	}
	return n, nil
}
