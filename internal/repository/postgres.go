package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/comorbid-index-engine/internal/domain"
	"github.com/comorbid-index-engine/internal/engine"
)

// PostgresStore implements Store against the shared results warehouse. It
// expects the schema to already exist (created via migrations).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an existing connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// SaveRun persists the run summary and every patient row in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, result *engine.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, index_name, cancer_site, patients, malformed, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.RunID, result.Index.String(), result.Site.String(),
		len(result.Patients), result.MalformedCodes, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO score_results (run_id, patient, score, band, indicators)
		 VALUES ($1, $2, $3, $4, $5)`)
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

		var indicators []byte
		if p.Indicators != nil {
			indicators, err = json.Marshal(p.Indicators)
			if err != nil {
				return fmt.Errorf("encoding indicators: %w", err)
			}
		}

		if _, err := stmt.ExecContext(ctx, result.RunID, string(p.Patient), score, band, indicators); err != nil {
			return fmt.Errorf("inserting result row: %w", err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run summary.
func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, index_name, cancer_site, patients, malformed, created_at
		 FROM runs WHERE id = $1`, runID)

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
func (s *PostgresStore) GetResults(ctx context.Context, runID string) ([]engine.PatientResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT patient, score, band, indicators
		 FROM score_results WHERE run_id = $1 ORDER BY patient`, runID)
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
			indicators []byte
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
		if len(indicators) > 0 {
			if err := json.Unmarshal(indicators, &p.Indicators); err != nil {
				return nil, fmt.Errorf("decoding indicators: %w", err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListRuns returns recent runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, index_name, cancer_site, patients, malformed, created_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
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

// Close closes the underlying connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
