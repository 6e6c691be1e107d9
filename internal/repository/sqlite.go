package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id          TEXT PRIMARY KEY,
    index_name  TEXT NOT NULL,
    cancer_site TEXT NOT NULL DEFAULT '',
    patients    INTEGER NOT NULL,
    malformed   INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS score_results (
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    patient    TEXT NOT NULL,
    score      REAL,
    band       INTEGER,
    indicators TEXT,
    PRIMARY KEY (run_id, patient)
);

CREATE INDEX IF NOT EXISTS idx_score_results_patient ON score_results(patient);
`

// SQLiteStore implements Store on an embedded database, for standalone batch
// runs that have no warehouse to write to.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during batch inserts.
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting sqlite pragmas: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun persists the run summary and every patient row in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, result *engine.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, index_name, cancer_site, patients, malformed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		result.RunID, result.Index.String(), result.Site.String(),
		len(result.Patients), result.MalformedCodes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO score_results (run_id, patient, score, band, indicators)
		 VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing result insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range result.Patients {
		var score sql.NullFloat64
		var band sql.NullInt64
		if p.Scored {
			score = sql.NullFloat64{Float64: p.Score, Valid: true}
			band = sql.NullInt64{Int64: int64(p.Band), Valid: true}
		}

		var indicators sql.NullString
		if p.Indicators != nil {
			raw, err := json.Marshal(p.Indicators)
			if err != nil {
				return fmt.Errorf("encoding indicators: %w", err)
			}
			indicators = sql.NullString{String: string(raw), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, result.RunID, string(p.Patient), score, band, indicators); err != nil {
			return fmt.Errorf("inserting result row: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run summary.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, index_name, cancer_site, patients, malformed, created_at
		 FROM runs WHERE id = ?`, runID)

	summary := &RunSummary{}
	err := row.Scan(&summary.ID, &summary.Index, &summary.Site,
		&summary.Patients, &summary.Malformed, &summary.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run: %w", err)
	}
	return summary, nil
}

// GetResults loads the per-patient rows of a run.
func (s *SQLiteStore) GetResults(ctx context.Context, runID string) ([]engine.PatientResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT patient, score, band, indicators
		 FROM score_results WHERE run_id = ? ORDER BY patient`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading results: %w", err)
	}
	defer rows.Close()

	var out []engine.PatientResult
	for rows.Next() {
		var (
			patient    string
			score      sql.NullFloat64
			band       sql.NullInt64
			indicators sql.NullString
		)
		if err := rows.Scan(&patient, &score, &band, &indicators); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}

		p := engine.PatientResult{
			Patient: domain.PatientKey(patient),
			Band:    domain.BandUndefined,
		}
		if score.Valid {
			p.Score = score.Float64
			p.Band = domain.ScoreBand(band.Int64)
			p.Scored = true
		}
		if indicators.Valid && indicators.String != "" {
			if err := json.Unmarshal([]byte(indicators.String), &p.Indicators); err != nil {
				return nil, fmt.Errorf("decoding indicators: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRuns returns recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, index_name, cancer_site, patients, malformed, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Index, &r.Site, &r.Patients, &r.Malformed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
