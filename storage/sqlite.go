// Package storage persists replicate results for large parameter sweeps.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/pthm-cable/salamanders/phylo"
	"github.com/pthm-cable/salamanders/telemetry"
)

// SQLiteStore keeps one row per replicate and the lineage nodes of its tree.
// Safe for concurrent use by batch workers.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	// A single writer avoids SQLITE_BUSY between workers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// SaveRun stores a replicate's summary and tree nodes in one transaction,
// replacing any earlier save under the same run ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, sum telemetry.RunSummary, nodes []phylo.Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if sum.RunID == "" {
		return errors.New("run id is required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, run, seed, mutation_prob, temp_drift_sd, sim_thresh,
			nspecies, fit_score, avg_otemp, nalive, nlowlands, end_time, avg_elevation,
			nnodes, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			run = excluded.run,
			seed = excluded.seed,
			mutation_prob = excluded.mutation_prob,
			temp_drift_sd = excluded.temp_drift_sd,
			sim_thresh = excluded.sim_thresh,
			nspecies = excluded.nspecies,
			fit_score = excluded.fit_score,
			avg_otemp = excluded.avg_otemp,
			nalive = excluded.nalive,
			nlowlands = excluded.nlowlands,
			end_time = excluded.end_time,
			avg_elevation = excluded.avg_elevation,
			nnodes = excluded.nnodes,
			status = excluded.status,
			error = excluded.error
	`, sum.RunID, sum.Run, int64(sum.Seed), sum.MutationProb, sum.TempDriftSD, sum.SimThresh,
		sum.NSpecies, sum.FitScore, sum.AvgOptTemp, sum.NAlive, sum.NLowlands, sum.EndTime,
		sum.AvgElevation, sum.NNodes, sum.Status, sum.Error)
	if err != nil {
		return fmt.Errorf("save run %s: %w", sum.RunID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE run_id = ?`, sum.RunID); err != nil {
		return fmt.Errorf("clear nodes of %s: %w", sum.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (run_id, id, emergence, last_child, parent, founding_otemp, genome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range nodes {
		// SQLite integers are signed; the genome round-trips through int64.
		if _, err := stmt.ExecContext(ctx, sum.RunID, n.ID, n.Emergence, n.LastChild, n.Parent,
			n.FoundingTrait, int64(n.Genome)); err != nil {
			return fmt.Errorf("save node %d of %s: %w", n.ID, sum.RunID, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns every stored summary ordered by replicate index.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]telemetry.RunSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, run, seed, mutation_prob, temp_drift_sd, sim_thresh, nspecies,
			fit_score, avg_otemp, nalive, nlowlands, end_time, avg_elevation, nnodes,
			status, error
		FROM runs ORDER BY run, run_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.RunSummary
	for rows.Next() {
		var r telemetry.RunSummary
		var seed int64
		if err := rows.Scan(&r.RunID, &r.Run, &seed, &r.MutationProb, &r.TempDriftSD, &r.SimThresh,
			&r.NSpecies, &r.FitScore, &r.AvgOptTemp, &r.NAlive, &r.NLowlands, &r.EndTime,
			&r.AvgElevation, &r.NNodes, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadNodes returns a run's lineage nodes in id order. The bool reports
// whether the run has any stored nodes.
func (s *SQLiteStore) LoadNodes(ctx context.Context, runID string) ([]phylo.Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, emergence, last_child, parent, founding_otemp, genome
		FROM nodes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var out []phylo.Record
	for rows.Next() {
		var r phylo.Record
		var genome int64
		if err := rows.Scan(&r.ID, &r.Emergence, &r.LastChild, &r.Parent, &r.FoundingTrait, &genome); err != nil {
			return nil, false, err
		}
		r.Genome = uint64(genome)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return out, len(out) > 0, nil
}

// LoadTree rebuilds a stored run's lineage tree.
func (s *SQLiteStore) LoadTree(ctx context.Context, runID string) (*phylo.Tree, bool, error) {
	nodes, ok, err := s.LoadNodes(ctx, runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	tree, err := phylo.FromNodes(nodes)
	if err != nil {
		return nil, false, fmt.Errorf("rebuild tree %s: %w", runID, err)
	}
	return tree, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			run INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			mutation_prob REAL NOT NULL,
			temp_drift_sd REAL NOT NULL,
			sim_thresh REAL NOT NULL,
			nspecies INTEGER NOT NULL,
			fit_score REAL NOT NULL,
			avg_otemp REAL NOT NULL,
			nalive INTEGER NOT NULL,
			nlowlands INTEGER NOT NULL,
			end_time REAL NOT NULL,
			avg_elevation REAL NOT NULL,
			nnodes INTEGER NOT NULL,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS nodes (
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			id INTEGER NOT NULL,
			emergence REAL NOT NULL,
			last_child REAL NOT NULL,
			parent INTEGER NOT NULL,
			founding_otemp REAL NOT NULL,
			genome INTEGER NOT NULL,
			PRIMARY KEY (run_id, id)
		);
	`)
	return err
}
