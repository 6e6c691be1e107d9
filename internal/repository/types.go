// Package repository persists run results: a PostgreSQL store for the shared
// results warehouse and a SQLite store for standalone batch use.
package repository

import (
	"context"
	"time"

	"github.com/comorbid-index-engine/internal/engine"
)

// RunSummary describes one persisted run.
type RunSummary struct {
	ID        string    `json:"id"`
	Index     string    `json:"index"`
	Site      string    `json:"site"`
	Patients  int       `json:"patients"`
	Malformed int64     `json:"malformed"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists and retrieves run results.
type Store interface {
	// SaveRun persists a complete run result.
	SaveRun(ctx context.Context, result *engine.Result) error

	// GetRun loads the summary of a persisted run. Returns
	// domain.ErrNotFound (wrapped) for unknown ids.
	GetRun(ctx context.Context, runID string) (*RunSummary, error)

	// GetResults loads the per-patient rows of a persisted run.
	GetResults(ctx context.Context, runID string) ([]engine.PatientResult, error)

	// ListRuns returns recent run summaries, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// Close releases store resources.
	Close() error
}
